// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"os"
	"path/filepath"
	"strings"
)

// ParseLabDir parses a LabDir string and returns the absolute lab repository
// directory and any optional region override. It returns an error if the fs
// entry does not exist, is empty or is not a directory.
func ParseLabDir(labDir string) (string, string, error) {

	if labDir == "" {
		return "", "", os.ErrInvalid
	}

	var dir, region string

	// First, split the path to see if there is a ::region override.
	parts := strings.Split(labDir, "::")
	if len(parts) > 1 {
		region = parts[1]
	}

	// Now determine if the actual lab directory (parts[0]) is absolute or
	// relative. If it is relative, make it absolute.
	if !strings.HasPrefix(parts[0], "/") {
		cwd, err := os.Getwd()
		if err != nil {
			return "", "", err
		}
		dir = filepath.Join(cwd, parts[0])
	} else {
		dir = parts[0]
	}

	// If the labDir is not a directory, return an error.
	if r, err := os.Stat(dir); err != nil {
		return "", "", err
	} else if !r.IsDir() {
		return "", "", os.ErrInvalid
	}

	return dir, region, nil
}
