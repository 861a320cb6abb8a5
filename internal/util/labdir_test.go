// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabDir(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "labs.yaml")
	require.NoError(t, os.WriteFile(file, []byte("labs: {}\n"), 0o600))

	tests := []struct {
		name       string
		labDir     string
		wantDir    string
		wantRegion string
		wantErr    bool
	}{
		{
			name:    "absolute directory",
			labDir:  tmp,
			wantDir: tmp,
		},
		{
			name:       "region override",
			labDir:     tmp + "::us-west-2",
			wantDir:    tmp,
			wantRegion: "us-west-2",
		},
		{
			name:    "empty spec",
			labDir:  "",
			wantErr: true,
		},
		{
			name:    "missing directory",
			labDir:  filepath.Join(tmp, "nope"),
			wantErr: true,
		},
		{
			name:    "file not directory",
			labDir:  file,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, region, err := ParseLabDir(tt.labDir)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDir, dir)
			assert.Equal(t, tt.wantRegion, region)
		})
	}
}

func TestParseLabDirRelative(t *testing.T) {
	tmp := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	defer func() { _ = os.Chdir(cwd) }()

	require.NoError(t, os.Mkdir("labs", 0o755))

	dir, region, err := ParseLabDir("labs")
	require.NoError(t, err)
	assert.Equal(t, "", region)
	assert.True(t, filepath.IsAbs(dir))
	assert.Equal(t, "labs", filepath.Base(dir))
}
