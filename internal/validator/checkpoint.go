// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package validator

import (
	"fmt"
	"strings"

	"github.com/labctl/labctl/internal/inventory"
)

// Check statuses, ordered from best to worst.
const (
	StatusPassed  = "passed"
	StatusWarning = "warning"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// Check is the outcome of one validation rule.
type Check struct {
	Type        string              `json:"type"`
	Description string              `json:"description"`
	Status      string              `json:"status"`
	Message     string              `json:"message"`
	Details     map[string][]string `json:"details,omitempty"`
}

// CheckpointResult is the outcome of validating one named checkpoint.
type CheckpointResult struct {
	SessionID      string   `json:"session_id"`
	CheckpointName string   `json:"checkpoint_name"`
	Valid          bool     `json:"valid"`
	Checks         []Check  `json:"checks"`
	Warnings       []string `json:"warnings"`
	Errors         []string `json:"errors"`
}

// checkpointRule is one expectation a checkpoint places on the inventory.
type checkpointRule struct {
	kind          string
	description   string
	expectedCount int
	statusFilter  []string
	stateFilter   []string
}

const (
	ruleStack    = "cloudformation_stack"
	ruleInstance = "ec2_instance"
	ruleFunction = "lambda_function"
	ruleAnyCount = "resource_count"
)

// checkpointRules maps a lab and checkpoint name to the expectations that
// checkpoint carries. Labs without a specific rule set fall back to "at
// least one resource exists".
func checkpointRules(labID, checkpointName string) []checkpointRule {
	id := strings.ToLower(labID)
	var rules []checkpointRule

	switch {
	case strings.Contains(id, "cloudformation"):
		switch checkpointName {
		case "stack_deployed":
			rules = append(rules, checkpointRule{
				kind:          ruleStack,
				description:   "CloudFormation stack should be deployed",
				expectedCount: 1,
				statusFilter:  []string{"CREATE_COMPLETE", "UPDATE_COMPLETE"},
			})
		case "nested_stacks":
			rules = append(rules, checkpointRule{
				kind:          ruleStack,
				description:   "Multiple nested stacks should exist",
				expectedCount: 2,
				statusFilter:  []string{"CREATE_COMPLETE", "UPDATE_COMPLETE"},
			})
		}
	case strings.Contains(id, "ec2") || strings.Contains(id, "deployment"):
		if checkpointName == "instances_running" {
			rules = append(rules, checkpointRule{
				kind:          ruleInstance,
				description:   "EC2 instances should be running",
				expectedCount: 1,
				stateFilter:   []string{"running"},
			})
		}
	case strings.Contains(id, "lambda") || strings.Contains(id, "serverless"):
		if checkpointName == "functions_deployed" {
			rules = append(rules, checkpointRule{
				kind:          ruleFunction,
				description:   "Lambda functions should be deployed",
				expectedCount: 1,
			})
		}
	}

	if len(rules) == 0 {
		rules = append(rules, checkpointRule{
			kind:          ruleAnyCount,
			description:   "At least one resource should be deployed",
			expectedCount: 1,
		})
	}

	return rules
}

// ValidateCheckpoint evaluates a checkpoint's rules against a collected
// inventory. A nil inventory means AWS was unreachable; that degrades to a
// warning so local progress tracking still works.
func ValidateCheckpoint(sessionID, checkpointName, labID string, inv *inventory.Inventory) *CheckpointResult {
	result := &CheckpointResult{
		SessionID:      sessionID,
		CheckpointName: checkpointName,
		Valid:          true,
		Checks:         []Check{},
		Warnings:       []string{},
		Errors:         []string{},
	}

	if inv == nil {
		result.Warnings = append(result.Warnings,
			"AWS credentials not available for resource validation")
		return result
	}

	for _, rule := range checkpointRules(labID, checkpointName) {
		check := runRule(rule, inv)
		result.Checks = append(result.Checks, check)

		switch check.Status {
		case StatusFailed:
			result.Valid = false
			result.Errors = append(result.Errors, check.Message)
		case StatusWarning:
			result.Warnings = append(result.Warnings, check.Message)
		}
	}

	return result
}

func runRule(rule checkpointRule, inv *inventory.Inventory) Check {
	check := Check{
		Type:        rule.kind,
		Description: rule.description,
		Status:      StatusPassed,
		Details:     map[string][]string{},
	}

	switch rule.kind {
	case ruleStack:
		var names []string
		for _, stack := range inv.CloudFormationStacks {
			if len(rule.statusFilter) == 0 || contains(rule.statusFilter, stack.Status) {
				names = append(names, stack.Name)
			}
		}
		if len(names) >= rule.expectedCount {
			check.Message = fmt.Sprintf("found %d CloudFormation stack(s)", len(names))
			check.Details["stacks"] = names
		} else {
			check.Status = StatusFailed
			check.Message = fmt.Sprintf("expected %d stack(s), found %d", rule.expectedCount, len(names))
		}

	case ruleInstance:
		var ids []string
		for _, instance := range inv.EC2Instances {
			if len(rule.stateFilter) == 0 || contains(rule.stateFilter, instance.State) {
				ids = append(ids, instance.InstanceID)
			}
		}
		if len(ids) >= rule.expectedCount {
			check.Message = fmt.Sprintf("found %d EC2 instance(s)", len(ids))
			check.Details["instances"] = ids
		} else {
			check.Status = StatusFailed
			check.Message = fmt.Sprintf("expected %d instance(s), found %d", rule.expectedCount, len(ids))
		}

	case ruleFunction:
		var names []string
		for _, fn := range inv.LambdaFunctions {
			names = append(names, fn.Name)
		}
		if len(names) >= rule.expectedCount {
			check.Message = fmt.Sprintf("found %d Lambda function(s)", len(names))
			check.Details["functions"] = names
		} else {
			check.Status = StatusFailed
			check.Message = fmt.Sprintf("expected %d function(s), found %d", rule.expectedCount, len(names))
		}

	case ruleAnyCount:
		total := inv.Count()
		if total >= rule.expectedCount {
			check.Message = fmt.Sprintf("found %d total resource(s)", total)
		} else {
			check.Status = StatusFailed
			check.Message = fmt.Sprintf("expected %d resource(s), found %d", rule.expectedCount, total)
		}
	}

	return check
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
