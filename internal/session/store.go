// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/labctl/labctl/internal/log"
)

// StoreFileName is the session store file, kept under the lab root's config
// directory alongside the catalog.
const StoreFileName = "sessions.json"

// Store reads and writes the session map for one lab root.
type Store struct {
	path string
}

// NewStore returns a Store for the given lab root.
func NewStore(labDir string) *Store {
	return &Store{path: filepath.Join(labDir, "config", StoreFileName)}
}

// Path returns the store file location.
func (st *Store) Path() string {
	return st.path
}

// Load reads all sessions. A missing or unparseable store yields an empty
// map so a fresh checkout (or a corrupted file) does not block the CLI.
func (st *Store) Load() map[string]*Session {
	raw, err := os.ReadFile(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warnf("failed to read session store %s", st.path)
		}
		return map[string]*Session{}
	}

	var sessions map[string]*Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		log.WithError(err).Warnf("session store %s is corrupt, starting empty", st.path)
		return map[string]*Session{}
	}
	if sessions == nil {
		sessions = map[string]*Session{}
	}

	return sessions
}

// Save writes the full session map, creating the config directory if needed.
func (st *Store) Save(sessions map[string]*Session) error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	raw, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	if err := os.WriteFile(st.path, raw, 0o644); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write session store: %w", err)
	}

	log.Debugf("session store saved: path=%s sessions=%d", st.path, len(sessions))
	return nil
}

// Get returns one session by id.
func (st *Store) Get(sessionID string) (*Session, bool) {
	s, ok := st.Load()[sessionID]
	return s, ok
}

// RunningSession returns the id of the running session for a lab, if any.
// Only one session per lab may be running at a time.
func (st *Store) RunningSession(labID string) (string, bool) {
	for id, s := range st.Load() {
		if s.LabID == labID && s.Status == StatusRunning {
			return id, true
		}
	}
	return "", false
}

// Start creates a new running session for a lab and persists it. It fails if
// the lab already has a running session.
func (st *Store) Start(labID string, estimatedCost float64, now time.Time) (string, *Session, error) {
	sessions := st.Load()

	for id, s := range sessions {
		if s.LabID == labID && s.Status == StatusRunning {
			return "", nil, fmt.Errorf("lab %q is already running (session: %s)", labID, id)
		}
	}

	id := NewID(labID, now)
	s := &Session{
		LabID:         labID,
		Status:        StatusRunning,
		StartTime:     now,
		EstimatedCost: estimatedCost,
		ResourceTags:  Tags(id, labID),
		Resources: Resources{
			CloudFormationStacks: []string{},
			EC2Instances:         []string{},
			LambdaFunctions:      []string{},
			S3Buckets:            []string{},
			IAMRoles:             []string{},
		},
	}

	sessions[id] = s
	if err := st.Save(sessions); err != nil {
		return "", nil, err
	}

	log.Infof("session started: id=%s lab=%s", id, labID)
	return id, s, nil
}

// Stop marks a running session stopped. Stopping does not touch AWS
// resources; cleanup is a separate operation.
func (st *Store) Stop(sessionID string, now time.Time) (*Session, error) {
	sessions := st.Load()

	s, ok := sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}
	if s.Status != StatusRunning {
		return nil, fmt.Errorf("session %q is not running", sessionID)
	}

	s.Status = StatusStopped
	s.EndTime = &now

	if err := st.Save(sessions); err != nil {
		return nil, err
	}

	log.Infof("session stopped: id=%s", sessionID)
	return s, nil
}

// FinishCleanup records the outcome of a cleanup run against a session.
func (st *Store) FinishCleanup(sessionID string, success, verified bool, now time.Time) (*Session, error) {
	sessions := st.Load()

	s, ok := sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}

	if success {
		s.Status = StatusCleanedUp
	} else {
		s.Status = StatusCleanupFailed
	}
	s.CleanupTime = &now
	s.CleanupVerified = verified && success

	if err := st.Save(sessions); err != nil {
		return nil, err
	}

	return s, nil
}

// Update applies fn to one session and persists the store.
func (st *Store) Update(sessionID string, fn func(*Session) error) (*Session, error) {
	sessions := st.Load()

	s, ok := sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}

	if err := fn(s); err != nil {
		return nil, err
	}

	if err := st.Save(sessions); err != nil {
		return nil, err
	}

	return s, nil
}

// ActiveSessionIDs returns the ids of sessions that may still own live
// resources (running or stopped).
func (st *Store) ActiveSessionIDs() map[string]bool {
	active := map[string]bool{}
	for id, s := range st.Load() {
		if s.Active() {
			active[id] = true
		}
	}
	return active
}
