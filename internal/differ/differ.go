// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"encoding/json"
	"fmt"

	"github.com/apex/log"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// Identical is returned when the two snapshots do not differ.
const Identical = "The snapshots are identical."

// Diff compares two inventory snapshots and returns an ascii-formatted delta
// with the before snapshot as the base. Keys named in skip are removed from
// the base before formatting.
func Diff(before, after []byte, skip []string, coloring bool) (string, error) {
	log.Debugf(">> differ()")

	if len(before) == 0 || len(after) == 0 {
		return "", nil
	}

	delta, err := gojsondiff.New().Compare(before, after)
	if err != nil {
		return "", fmt.Errorf("failed to compare snapshots: %w", err)
	}

	if !delta.Modified() {
		return Identical, nil
	}

	var jdoc map[string]interface{}
	if err := json.Unmarshal(before, &jdoc); err != nil {
		return "", fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	for _, key := range skip {
		if key != "" {
			delete(jdoc, key)
		}
	}

	config := formatter.AsciiFormatterConfig{
		ShowArrayIndex: false,
		Coloring:       coloring,
	}

	diffString, err := formatter.NewAsciiFormatter(jdoc, config).Format(delta)
	if err != nil {
		return "", err
	}

	return diffString, nil
}
