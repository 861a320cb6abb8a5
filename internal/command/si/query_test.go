// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package si

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testDoc = []byte(`{
	"iam-basics-20260115-093000": {
		"id": "iam-basics-20260115-093000",
		"lab_id": "iam-basics",
		"status": "completed",
		"estimated_cost": 0.0,
		"progress": {
			"completion_percentage": 100
		}
	},
	"ec2-fundamentals-20260116-141500": {
		"id": "ec2-fundamentals-20260116-141500",
		"lab_id": "ec2-fundamentals",
		"status": "running",
		"estimated_cost": 0.96
	},
	"s3-static-site-20260117-100000": {
		"id": "s3-static-site-20260117-100000",
		"lab_id": "s3-static-site",
		"status": "stopped",
		"estimated_cost": 0.05
	}
}`)

func TestProcessQuery_BuiltIns(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:  "ids sorted",
			query: "ids",
			expected: "ec2-fundamentals-20260116-141500\n" +
				"iam-basics-20260115-093000\n" +
				"s3-static-site-20260117-100000",
		},
		{
			name:  "active means running or stopped",
			query: "active",
			expected: "ec2-fundamentals-20260116-141500\n" +
				"s3-static-site-20260117-100000",
		},
		{
			name:     "count",
			query:    "count",
			expected: "3",
		},
		{
			name:     "status filter",
			query:    "status.running",
			expected: "ec2-fundamentals-20260116-141500",
		},
		{
			name:     "status filter completed",
			query:    "status.completed",
			expected: "iam-basics-20260115-093000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProcessQuery(testDoc, tt.query))
		})
	}
}

func TestProcessQuery_Paths(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "string scalar rendered bare",
			query:    "iam-basics-20260115-093000.status",
			expected: "completed",
		},
		{
			name:     "number scalar rendered raw",
			query:    "ec2-fundamentals-20260116-141500.estimated_cost",
			expected: "0.96",
		},
		{
			name:     "nested path",
			query:    "iam-basics-20260115-093000.progress.completion_percentage",
			expected: "100",
		},
		{
			name:     "whitespace trimmed",
			query:    "  iam-basics-20260115-093000.lab_id  ",
			expected: "iam-basics",
		},
		{
			name:     "missing path reports no match",
			query:    "nosuchsession.status",
			expected: `no match for "nosuchsession.status"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProcessQuery(testDoc, tt.query))
		})
	}
}

func TestProcessQuery_JSONMode(t *testing.T) {
	got := ProcessQuery(testDoc, ".iam-basics-20260115-093000.progress")
	assert.True(t, strings.HasPrefix(got, "{"))
	assert.Contains(t, got, "\n")
	assert.Contains(t, got, `"completion_percentage"`)
}

func TestProcessQuery_Empty(t *testing.T) {
	assert.Equal(t, "", ProcessQuery(testDoc, ""))
	assert.Equal(t, "", ProcessQuery(testDoc, "   "))
}

func TestProcessQuery_Help(t *testing.T) {
	got := ProcessQuery(testDoc, "help")
	assert.Contains(t, got, "Query syntax")
	assert.Contains(t, got, "status.running")
}

func TestSessionIDs_NonObjectDoc(t *testing.T) {
	assert.Nil(t, sessionIDs([]byte(`["not","a","store"]`), ""))
}
