// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/inventory"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/session"
	"github.com/labctl/labctl/internal/validator"
)

// completeDefaultAttrs specifies the default attributes displayed for
// completion requirements.
var completeDefaultAttrs = []string{".met", "description"}

// completeCommandAction is the action handler for the "complete" subcommand.
// It runs the final lab_complete checkpoint against live resources, then
// verifies the session's step ledger and cleanup state, promoting the session
// to completed when every ledger requirement is met. The checkpoint outcome
// is reported alongside the other requirements.
func completeCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "complete"

	if ShortCircuitTLDR(ctx, cmd, "complete") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(session.CompletionRequirement{})) {
		return nil
	}

	args := argsAfterLabDir(cmd)
	if len(args) == 0 {
		return fmt.Errorf("usage: labctl complete [LabDir] <session-id>")
	}
	sessionID := args[0]

	st := session.NewStore(m.LabDir)
	s, ok := st.Get(sessionID)
	if !ok {
		return fmt.Errorf("session %q not found", sessionID)
	}

	var inv *inventory.Inventory
	if collected, err := collectInventory(ctx, cmd, sessionID); err != nil {
		log.WithError(err).Warn("AWS unreachable, verifying without resource checks")
	} else {
		inv = collected
	}

	final := validator.ValidateCheckpoint(sessionID, "lab_complete", s.LabID, inv)
	result, err := st.VerifyCompletion(sessionID, checkpointRequirements(final), time.Now().UTC())
	if err != nil {
		return err
	}

	verdict := "NOT COMPLETED"
	if result.Completed {
		verdict = "COMPLETED"
	}
	cmd.Metadata["header"] = fmt.Sprintf("\nLab %s session %s: %s (%.1f%%)",
		result.LabID, sessionID, verdict, result.CompletionPercentage)

	attrs := BuildAttrs(cmd, completeDefaultAttrs...)
	return EmitSlice(result.Requirements, attrs, cmd)
}

// checkpointRequirements turns a final checkpoint result into completion
// requirement lines: one pass line, or one line per validation error.
func checkpointRequirements(result *validator.CheckpointResult) []session.CompletionRequirement {
	if result.Valid {
		return []session.CompletionRequirement{
			{Met: true, Description: "Final checkpoint validation passed"},
		}
	}
	reqs := make([]session.CompletionRequirement, 0, len(result.Errors))
	for _, e := range result.Errors {
		reqs = append(reqs, session.CompletionRequirement{Met: false, Description: e})
	}
	return reqs
}

// completeCommandBuilder constructs the cli.Command for "complete".
func completeCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "complete",
		Usage:     "verify and record lab completion",
		UsageText: "labctl complete [LabDir] <session-id> [options]",
		Flags: []cli.Flag{
			NewRegionFlag("complete", meta.Config.Source),
			NewProfileFlag("complete", meta.Config.Source),
		},
		Action: completeCommandAction,
		Meta:   meta,
	}).Build()
}
