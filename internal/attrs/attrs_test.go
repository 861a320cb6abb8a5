// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want AttrList
	}{
		{
			name: "single key",
			spec: "lab_id",
			want: AttrList{
				{Key: "lab_id", Include: true, OutputKey: "lab_id"},
			},
		},
		{
			name: "excluded key",
			spec: "!status",
			want: AttrList{
				{Key: "status", Include: false, OutputKey: "status"},
			},
		},
		{
			name: "dotted key takes last segment as title",
			spec: ".progress.current_step",
			want: AttrList{
				{Key: "progress.current_step", Include: true, OutputKey: "current_step"},
			},
		},
		{
			name: "output key and transform",
			spec: "start_time:started:T",
			want: AttrList{
				{Key: "start_time", Include: true, OutputKey: "started", TransformSpec: "T"},
			},
		},
		{
			name: "dollar transform",
			spec: "estimated_cost:cost:$",
			want: AttrList{
				{Key: "estimated_cost", Include: true, OutputKey: "cost", TransformSpec: "$"},
			},
		},
		{
			name: "multiple specs",
			spec: "lab_id,status,!resources",
			want: AttrList{
				{Key: "lab_id", Include: true, OutputKey: "lab_id"},
				{Key: "status", Include: true, OutputKey: "status"},
				{Key: "resources", Include: false, OutputKey: "resources"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var al AttrList
			require.NoError(t, al.Set(tt.spec))
			assert.Equal(t, tt.want, al)
		})
	}
}

func TestSetUpdatesExisting(t *testing.T) {
	var al AttrList
	require.NoError(t, al.Set("status"))
	require.NoError(t, al.Set("status:state:u"))

	require.Len(t, al, 1)
	assert.Equal(t, "state", al[0].OutputKey)
	assert.Equal(t, "u", al[0].TransformSpec)
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name  string
		attr  Attr
		value interface{}
		want  interface{}
	}{
		{
			name:  "upper case",
			attr:  Attr{TransformSpec: "u"},
			value: "running",
			want:  "RUNNING",
		},
		{
			name:  "lower case",
			attr:  Attr{TransformSpec: "l"},
			value: "RUNNING",
			want:  "running",
		},
		{
			name:  "truncation",
			attr:  Attr{TransformSpec: "7"},
			value: "cicd-codepipeline-basics",
			want:  "cicd-co",
		},
		{
			name:  "middle chop",
			attr:  Attr{TransformSpec: "-10"},
			value: "monitoring-xray-microservices",
			want:  "moni..ices",
		},
		{
			name:  "dollar formats float",
			attr:  Attr{TransformSpec: "$"},
			value: 1234.5,
			want:  "$1,234.5",
		},
		{
			name:  "non-string passthrough",
			attr:  Attr{TransformSpec: "u"},
			value: 42.0,
			want:  42.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.attr.Transform(tt.value))
		})
	}
}

func TestSetGlobalTransformSpec(t *testing.T) {
	var al AttrList
	require.NoError(t, al.Set("*::U,lab_id,status::l"))
	require.NoError(t, al.SetGlobalTransformSpec())

	for _, attr := range al {
		assert.True(t, len(attr.TransformSpec) == 0 || attr.TransformSpec[0] == 'U',
			"global spec should be prepended: %q", attr.TransformSpec)
	}
}
