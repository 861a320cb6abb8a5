// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package si implements the query engine behind the interactive session
// inspector. Queries are gjson dot-paths over the session store document,
// plus a few built-ins for the questions students actually ask.
package si

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// ProcessQuery evaluates one console query against the session store
// document and returns the rendered result. A leading '.' forces pretty
// JSON output; anything else renders compactly.
func ProcessQuery(doc []byte, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	jsonMode := strings.HasPrefix(query, ".")
	if jsonMode {
		query = strings.TrimPrefix(query, ".")
	}

	if result := handleSpecialQueries(doc, query); result != "" {
		return result
	}

	result := gjson.GetBytes(doc, query)
	if !result.Exists() {
		return fmt.Sprintf("no match for %q", query)
	}

	if jsonMode {
		return prettyJSON(result)
	}
	return compact(result)
}

// handleSpecialQueries handles the built-in queries. An empty return means
// the query is a plain path.
func handleSpecialQueries(doc []byte, query string) string {
	switch query {
	case "ids":
		return strings.Join(sessionIDs(doc, ""), "\n")
	case "active":
		return strings.Join(sessionIDs(doc, "active"), "\n")
	case "count":
		return fmt.Sprintf("%d", len(sessionIDs(doc, "")))
	case "help":
		return Help()
	}

	// status.<value> lists the ids in that state.
	if after, found := strings.CutPrefix(query, "status."); found {
		return strings.Join(sessionIDs(doc, after), "\n")
	}

	return ""
}

// sessionIDs returns the store's session ids, sorted. A non-empty want
// narrows to that status; "active" means running or stopped.
func sessionIDs(doc []byte, want string) []string {
	parsed := gjson.ParseBytes(doc)
	if !parsed.IsObject() {
		return nil
	}

	var ids []string
	parsed.ForEach(func(key, value gjson.Result) bool {
		status := value.Get("status").String()
		switch {
		case want == "":
		case want == "active":
			if status != "running" && status != "stopped" {
				return true
			}
		case status != want:
			return true
		}
		ids = append(ids, key.String())
		return true
	})

	sort.Strings(ids)
	return ids
}

// prettyJSON renders a result as indented JSON.
func prettyJSON(result gjson.Result) string {
	raw, err := json.MarshalIndent(result.Value(), "", "  ")
	if err != nil {
		return result.Raw
	}
	return string(raw)
}

// compact renders scalars bare and composites as single-line JSON.
func compact(result gjson.Result) string {
	switch result.Type {
	case gjson.String:
		return result.String()
	case gjson.Number, gjson.True, gjson.False:
		return result.Raw
	default:
		return result.Raw
	}
}

// Help returns the console help text.
func Help() string {
	return `Query syntax:
  Queries are dot-paths into the session store document.

  1. JSON output (queries starting with '.')
     .iam-basics-20260115-093000          - Full session as JSON
     .iam-basics-20260115-093000.progress - Progress ledger as JSON

  2. Plain output (queries not starting with '.')
     iam-basics-20260115-093000.status    - Session status
     iam-basics-20260115-093000.lab_id    - Owning lab
     iam-basics-20260115-093000.resources.ec2_instances

  Built-ins:
     ids                              - All session ids
     active                           - Running or stopped session ids
     status.running                   - Ids with a given status
     count                            - Number of sessions

  Navigation:
     up/down arrows                   - Navigate command history
     Ctrl+C                           - Exit`
}
