// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cacheutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDir_WithLABCTL_CACHE_DIR verifies Dir() respects LABCTL_CACHE_DIR
// environment variable with highest priority.
func TestDir_WithLABCTL_CACHE_DIR(t *testing.T) {
	customDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", customDir)

	result, ok := Dir()

	assert.True(t, ok)
	assert.Equal(t, customDir, result)
}

// TestDir_WithoutLABCTL_CACHE_DIR verifies Dir() falls back to
// os.UserCacheDir/labctl when env var not set.
func TestDir_WithoutLABCTL_CACHE_DIR(t *testing.T) {
	t.Setenv("LABCTL_CACHE_DIR", "")

	result, ok := Dir()

	// Result depends on system, but should be absolute when resolvable.
	if ok {
		assert.NotEmpty(t, result)
		assert.True(t, filepath.IsAbs(result))
	}
}

// TestEnabled_WithLABCTL_CACHE_Set verifies caching is enabled for any value
// other than "0" or "false".
func TestEnabled_WithLABCTL_CACHE_Set(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{"1", "1", true},
		{"true", "true", true},
		{"yes", "yes", true},
		{"empty string", "", true},
		{"0", "0", false},
		{"false", "false", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LABCTL_CACHE", tt.value)
			assert.Equal(t, tt.expected, Enabled())
		})
	}
}

// TestEnsureBaseDir_CachingDisabled verifies EnsureBaseDir returns empty
// when caching is disabled.
func TestEnsureBaseDir_CachingDisabled(t *testing.T) {
	t.Setenv("LABCTL_CACHE", "0")

	base, ok, err := EnsureBaseDir()

	assert.False(t, ok)
	assert.Empty(t, base)
	assert.NoError(t, err)
}

// TestEnsureBaseDir_CreatesDirectory verifies EnsureBaseDir creates the
// cache directory when it doesn't exist.
func TestEnsureBaseDir_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	cacheDir := filepath.Join(tmpDir, "cache", "nested")
	t.Setenv("LABCTL_CACHE_DIR", cacheDir)
	t.Setenv("LABCTL_CACHE", "1")

	assert.NoFileExists(t, cacheDir)

	base, ok, err := EnsureBaseDir()

	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cacheDir, base)
	assert.DirExists(t, cacheDir)
}

// TestEntryPath_NonexistentEntry verifies EntryPath returns computed path
// and false when file doesn't exist.
func TestEntryPath_NonexistentEntry(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", tmpDir)

	path, exists := EntryPath([]string{"pricing", "us-east-1"}, "ec2.t3.micro")

	assert.False(t, exists)
	assert.NotEmpty(t, path)
	assert.True(t, filepath.IsAbs(path))
}

// TestEntryPath_ExistingEntry verifies EntryPath returns true when file
// exists at computed path.
func TestEntryPath_ExistingEntry(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", tmpDir)

	subdir := filepath.Join(tmpDir, "pricing")
	err := os.MkdirAll(subdir, 0o755)
	require.NoError(t, err)

	encodedKey := encodeKey("ec2.t3.micro")
	filePath := filepath.Join(subdir, encodedKey)
	err = os.WriteFile(filePath, []byte("0.0104"), 0o600)
	require.NoError(t, err)

	path, exists := EntryPath([]string{"pricing"}, "ec2.t3.micro")

	assert.True(t, exists)
	assert.Equal(t, filePath, path)
}

// TestRead_CachingDisabled verifies Read returns false when caching is
// disabled.
func TestRead_CachingDisabled(t *testing.T) {
	t.Setenv("LABCTL_CACHE", "0")

	entry, found := Read([]string{"pricing"}, "key")

	assert.False(t, found)
	assert.Nil(t, entry)
}

// TestRead_SuccessfulRead verifies Read returns populated Entry when file
// exists.
func TestRead_SuccessfulRead(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", tmpDir)
	t.Setenv("LABCTL_CACHE", "1")

	subdir := filepath.Join(tmpDir, "costs")
	err := os.MkdirAll(subdir, 0o755)
	require.NoError(t, err)

	testData := []byte(`{"session_id":"iam-basics-20260115-093000","total":0.42}`)
	testKey := "costs/iam-basics-20260115-093000"
	encodedKey := encodeKey(testKey)
	filePath := filepath.Join(subdir, encodedKey)

	err = os.WriteFile(filePath, testData, 0o600)
	require.NoError(t, err)

	entry, found := Read([]string{"costs"}, testKey)

	assert.True(t, found)
	assert.NotNil(t, entry)
	assert.Equal(t, testKey, entry.Key)
	assert.Equal(t, encodedKey, entry.EncodedKey)
	assert.Equal(t, filePath, entry.Path)
	assert.Equal(t, testData, entry.Data)
}

// TestRead_TrimsWhitespace verifies Read trims leading/trailing whitespace
// from file content.
func TestRead_TrimsWhitespace(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", tmpDir)
	t.Setenv("LABCTL_CACHE", "1")

	subdir := filepath.Join(tmpDir, "data")
	err := os.MkdirAll(subdir, 0o755)
	require.NoError(t, err)

	testData := []byte("  \n  cached content  \n  ")
	testKey := "key-with-whitespace"
	filePath := filepath.Join(subdir, encodeKey(testKey))

	err = os.WriteFile(filePath, testData, 0o600)
	require.NoError(t, err)

	entry, found := Read([]string{"data"}, testKey)

	assert.True(t, found)
	assert.Equal(t, []byte("cached content"), entry.Data)
}

// TestWrite_CreatesDirectories verifies Write creates missing
// subdirectories.
func TestWrite_CreatesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", tmpDir)
	t.Setenv("LABCTL_CACHE", "1")

	subdir := filepath.Join(tmpDir, "pricing", "us-east-1")
	assert.NoFileExists(t, subdir)

	err := Write([]string{"pricing", "us-east-1"}, "lambda.requests", []byte("0.20"))

	assert.NoError(t, err)
	assert.DirExists(t, subdir)
}

// TestWrite_FilePermissions verifies Write creates files with 0600
// permissions (user read/write only).
func TestWrite_FilePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", tmpDir)
	t.Setenv("LABCTL_CACHE", "1")

	testKey := "perm-test-key"

	err := Write([]string{}, testKey, []byte("permission test data"))

	assert.NoError(t, err)

	expectedPath := filepath.Join(tmpDir, encodeKey(testKey))
	info, err := os.Stat(expectedPath)
	assert.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

// TestWrite_OverwritesExisting verifies Write overwrites existing cache
// files.
func TestWrite_OverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", tmpDir)
	t.Setenv("LABCTL_CACHE", "1")

	testKey := "overwrite-key"
	expectedPath := filepath.Join(tmpDir, encodeKey(testKey))

	err := Write([]string{}, testKey, []byte("old data"))
	require.NoError(t, err)

	err = Write([]string{}, testKey, []byte("new data"))
	assert.NoError(t, err)

	content, err := os.ReadFile(expectedPath)
	assert.NoError(t, err)
	assert.Equal(t, []byte("new data"), content)
}

// TestPurge_DisabledWithZeroHours verifies Purge is no-op when hours <= 0.
func TestPurge_DisabledWithZeroHours(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", tmpDir)

	oldPath := filepath.Join(tmpDir, "old_file.txt")
	err := os.WriteFile(oldPath, []byte("data"), 0o600)
	require.NoError(t, err)

	err = Purge(0)

	assert.NoError(t, err)
	assert.FileExists(t, oldPath)
}

// TestPurge_MixedAges verifies Purge only removes files matching age
// criteria.
func TestPurge_MixedAges(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", tmpDir)

	oldPath := filepath.Join(tmpDir, "old.txt")
	err := os.WriteFile(oldPath, []byte("old"), 0o600)
	require.NoError(t, err)

	pastTime := time.Now().Add(-3 * time.Hour)
	err = os.Chtimes(oldPath, pastTime, pastTime)
	require.NoError(t, err)

	recentPath := filepath.Join(tmpDir, "recent.txt")
	err = os.WriteFile(recentPath, []byte("recent"), 0o600)
	require.NoError(t, err)

	err = Purge(1)

	assert.NoError(t, err)
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, recentPath)
}

// TestPurge_NestedDirectories verifies Purge processes files in nested
// directories.
func TestPurge_NestedDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", tmpDir)

	nestedDir := filepath.Join(tmpDir, "pricing", "us-west-2")
	err := os.MkdirAll(nestedDir, 0o755)
	require.NoError(t, err)

	oldPath := filepath.Join(nestedDir, "old.txt")
	err = os.WriteFile(oldPath, []byte("old"), 0o600)
	require.NoError(t, err)

	pastTime := time.Now().Add(-3 * time.Hour)
	err = os.Chtimes(oldPath, pastTime, pastTime)
	require.NoError(t, err)

	err = Purge(1)

	assert.NoError(t, err)
	assert.NoFileExists(t, oldPath)
}

// TestEncodeKey_HexFormat verifies encodeKey returns a stable sha256 hex
// string.
func TestEncodeKey_HexFormat(t *testing.T) {
	encoded := encodeKey("hex-format-test")

	assert.Equal(t, encoded, encodeKey("hex-format-test"))
	assert.NotEqual(t, encoded, encodeKey("another-key"))
	assert.Equal(t, 64, len(encoded))
	for _, c := range encoded {
		assert.True(t,
			(c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'),
			"invalid hex character: %c", c,
		)
	}
}

// TestIntegration_FullWorkflow verifies the complete caching workflow as
// used by the pricing and cost lookups.
func TestIntegration_FullWorkflow(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LABCTL_CACHE_DIR", tmpDir)
	t.Setenv("LABCTL_CACHE", "1")

	assert.True(t, Enabled())

	base, ok, err := EnsureBaseDir()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.DirExists(t, base)

	data1 := []byte(`{"service":"ec2","rate":0.0104}`)
	data2 := []byte(`{"service":"lambda","rate":0.20}`)

	err = Write([]string{"pricing"}, "ec2.t3.micro", data1)
	require.NoError(t, err)

	err = Write([]string{"pricing"}, "lambda.requests", data2)
	require.NoError(t, err)

	entry1, found1 := Read([]string{"pricing"}, "ec2.t3.micro")
	entry2, found2 := Read([]string{"pricing"}, "lambda.requests")

	assert.True(t, found1)
	assert.True(t, found2)
	assert.Equal(t, data1, entry1.Data)
	assert.Equal(t, data2, entry2.Data)

	path1, exists1 := EntryPath([]string{"pricing"}, "ec2.t3.micro")
	assert.True(t, exists1)
	assert.NotEmpty(t, path1)
}
