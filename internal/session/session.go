// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package session owns the lab session store (sessions.json) and the
// lifecycle of a session from start through cleanup.
package session

import (
	"time"
)

// Status is a session lifecycle state.
type Status string

const (
	StatusRunning       Status = "running"
	StatusStopped       Status = "stopped"
	StatusCompleted     Status = "completed"
	StatusCleanedUp     Status = "cleaned_up"
	StatusCleanupFailed Status = "cleanup_failed"
)

// Tag keys and fixed values applied to every AWS resource a lab creates.
// Project identifies the lab system as a whole; SessionId and LabId
// attribute a resource to one session.
const (
	TagProject   = "Project"
	TagManagedBy = "ManagedBy"
	TagSessionID = "SessionId"
	TagLabID     = "LabId"

	ProjectTagValue   = "AWSDevOpsLabs"
	ManagedByTagValue = "LabManager"
)

// Resources tracks the AWS resources attributed to a session, by kind.
type Resources struct {
	CloudFormationStacks []string `json:"cloudformation_stacks"`
	EC2Instances         []string `json:"ec2_instances"`
	LambdaFunctions      []string `json:"lambda_functions"`
	S3Buckets            []string `json:"s3_buckets"`
	IAMRoles             []string `json:"iam_roles"`
}

// Step is one unit of progress within a session.
type Step struct {
	Name        string     `json:"name"`
	Completed   bool       `json:"completed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Notes       string     `json:"notes,omitempty"`
}

// Progress is the per-session step ledger.
type Progress struct {
	Steps                []Step    `json:"steps"`
	CurrentStep          string    `json:"current_step"`
	CompletionPercentage float64   `json:"completion_percentage"`
	LastUpdated          time.Time `json:"last_updated"`
}

// Session is one lab run.
type Session struct {
	LabID           string            `json:"lab_id"`
	Status          Status            `json:"status"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	CleanupTime     *time.Time        `json:"cleanup_time,omitempty"`
	CompletionTime  *time.Time        `json:"completion_time,omitempty"`
	EstimatedCost   float64           `json:"estimated_cost"`
	ActualCost      float64           `json:"actual_cost"`
	ResourceTags    map[string]string `json:"resource_tags"`
	Resources       Resources         `json:"resources"`
	Progress        *Progress         `json:"progress,omitempty"`
	CleanupVerified bool              `json:"cleanup_verified,omitempty"`
}

// NewID builds a session id from the lab id and a timestamp.
func NewID(labID string, now time.Time) string {
	return labID + "-" + now.Format("20060102-150405")
}

// Tags returns the full tag set a session's resources must carry.
func Tags(sessionID, labID string) map[string]string {
	return map[string]string{
		TagProject:   ProjectTagValue,
		TagManagedBy: ManagedByTagValue,
		TagSessionID: sessionID,
		TagLabID:     labID,
	}
}

// Active reports whether the session may still own live AWS resources.
func (s *Session) Active() bool {
	return s.Status == StatusRunning || s.Status == StatusStopped
}
