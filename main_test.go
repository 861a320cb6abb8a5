// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestHandleVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{
			name:     "no version flag",
			args:     []string{"labctl", "labs"},
			expected: false,
		},
		{
			name:     "long flag",
			args:     []string{"labctl", "--version"},
			expected: true,
		},
		{
			name:     "short flag",
			args:     []string{"labctl", "-v"},
			expected: true,
		},
		{
			name:     "flag after command",
			args:     []string{"labctl", "labs", "--version"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := handleVersion(tt.args); got != tt.expected {
				t.Errorf("handleVersion(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestHandleNakedCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "binary only gets help",
			args:     []string{"labctl"},
			expected: []string{"labctl", "--help"},
		},
		{
			name:     "command present untouched",
			args:     []string{"labctl", "labs"},
			expected: []string{"labctl", "labs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := handleNakedCommand(tt.args); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("handleNakedCommand(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestProcessOtherArgs(t *testing.T) {
	cwd, _ := os.Getwd()

	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "no labdir inserts cwd",
			args:     []string{"labctl", "labs"},
			expected: []string{"labctl", "labs", cwd},
		},
		{
			name:     "flag after command inserts cwd before it",
			args:     []string{"labctl", "labs", "--output", "json"},
			expected: []string{"labctl", "labs", cwd, "--output", "json"},
		},
		{
			name:     "explicit labdir preserved",
			args:     []string{"labctl", "labs", "/tmp"},
			expected: []string{"labctl", "labs", "/tmp"},
		},
		{
			name:     "labdir with region override preserved",
			args:     []string{"labctl", "resources", "/tmp::us-west-2"},
			expected: []string{"labctl", "resources", "/tmp::us-west-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := processOtherArgs(tt.args); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("processOtherArgs(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestProcessRulesArgs(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(doc, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "bare command gets stdin marker",
			args:     []string{"labctl", "rules"},
			expected: []string{"labctl", "rules", "-"},
		},
		{
			name:     "stdin marker preserved",
			args:     []string{"labctl", "rules", "-"},
			expected: []string{"labctl", "rules", "-"},
		},
		{
			name:     "existing file preserved",
			args:     []string{"labctl", "rules", doc},
			expected: []string{"labctl", "rules", doc},
		},
		{
			name:     "flag gets stdin marker inserted",
			args:     []string{"labctl", "rules", "--rule", "ec2-no-public-ip"},
			expected: []string{"labctl", "rules", "-", "--rule", "ec2-no-public-ip"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := processRulesArgs(tt.args); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("processRulesArgs(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestProcessCommandArgs_CompletionPassthrough(t *testing.T) {
	args := []string{"labctl", "completion", "zsh"}
	if got := processCommandArgs(args); !reflect.DeepEqual(got, args) {
		t.Errorf("processCommandArgs(%v) = %v, want passthrough", args, got)
	}
}

func TestProcessSetOnly(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "no set marker untouched",
			args:     []string{"labctl", "labs", "--titles"},
			expected: []string{"labctl", "labs", "--titles"},
		},
		{
			name:     "unknown set removed",
			args:     []string{"labctl", "labs", "@nosuchset", "--titles"},
			expected: []string{"labctl", "labs", "--titles"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := processSetOnly(tt.args); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("processSetOnly(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestIsExistingFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "exists")
	if err := os.WriteFile(f, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if !isExistingFile(f) {
		t.Errorf("isExistingFile(%s) = false, want true", f)
	}
	if isExistingFile(filepath.Join(t.TempDir(), "missing")) {
		t.Error("isExistingFile(missing) = true, want false")
	}
}
