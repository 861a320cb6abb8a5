// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package session

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSessions() map[string]*Session {
	return map[string]*Session{
		"iam-basics-20260115-093000": {
			LabID:         "iam-basics",
			Status:        StatusRunning,
			StartTime:     testNow,
			EstimatedCost: 1.25,
			ResourceTags:  Tags("iam-basics-20260115-093000", "iam-basics"),
		},
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	data, err := Export(sampleSessions(), "correct horse")
	require.NoError(t, err)

	sessions, err := Import(data, "correct horse")
	require.NoError(t, err)

	require.Len(t, sessions, 1)
	s := sessions["iam-basics-20260115-093000"]
	require.NotNil(t, s)
	assert.Equal(t, "iam-basics", s.LabID)
	assert.Equal(t, StatusRunning, s.Status)
	assert.Equal(t, 1.25, s.EstimatedCost)
}

func TestExport_ArchiveShape(t *testing.T) {
	data, err := Export(sampleSessions(), "pw")
	require.NoError(t, err)

	var a struct {
		Meta struct {
			Salt       string `json:"salt"`
			Iterations int    `json:"iterations"`
			HashFunc   string `json:"hash_function"`
			KeyLength  int    `json:"key_length"`
		} `json:"meta"`
		EncryptedData string `json:"encrypted_data"`
	}
	require.NoError(t, json.Unmarshal(data, &a))

	assert.Equal(t, "sha512", a.Meta.HashFunc)
	assert.Equal(t, 32, a.Meta.KeyLength)
	assert.Greater(t, a.Meta.Iterations, 0)

	salt, err := base64.StdEncoding.DecodeString(a.Meta.Salt)
	require.NoError(t, err)
	assert.Len(t, salt, 16)

	// Session contents never appear in the clear.
	assert.NotContains(t, string(data), "iam-basics")
}

func TestImport_WrongPassphrase(t *testing.T) {
	data, err := Export(sampleSessions(), "right")
	require.NoError(t, err)

	_, err = Import(data, "wrong")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decrypt")
}

func TestImport_NotAnArchive(t *testing.T) {
	_, err := Import([]byte("not json"), "pw")

	assert.Error(t, err)
}

func TestImport_CiphertextTooShort(t *testing.T) {
	a := map[string]interface{}{
		"meta": map[string]interface{}{
			"salt":          base64.StdEncoding.EncodeToString([]byte("0123456789abcdef")),
			"iterations":    1000,
			"hash_function": "sha512",
			"key_length":    32,
		},
		"encrypted_data": base64.StdEncoding.EncodeToString([]byte("short")),
	}
	data, err := json.Marshal(a)
	require.NoError(t, err)

	_, err = Import(data, "pw")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ciphertext too short")
}

func TestExport_UniqueSaltAndNonce(t *testing.T) {
	first, err := Export(sampleSessions(), "pw")
	require.NoError(t, err)
	second, err := Export(sampleSessions(), "pw")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
