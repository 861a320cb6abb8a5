// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/inventory"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/session"
	"github.com/labctl/labctl/internal/validator"
)

// checkpointDefaultAttrs specifies the default attributes displayed for
// checkpoint checks.
var checkpointDefaultAttrs = []string{
	".type",
	"description",
	"status",
	"message",
}

// checkpointCommandAction is the action handler for the "checkpoint"
// subcommand. It validates a named checkpoint against the session's live AWS
// inventory; a passing checkpoint is recorded as a completed progress step.
// Unreachable AWS degrades to warnings, not failure.
func checkpointCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "checkpoint"

	if ShortCircuitTLDR(ctx, cmd, "checkpoint") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(validator.Check{})) {
		return nil
	}

	args := argsAfterLabDir(cmd)
	if len(args) < 2 { //nolint:mnd
		return fmt.Errorf("usage: labctl checkpoint [LabDir] <session-id> <checkpoint-name>")
	}
	sessionID, checkpointName := args[0], args[1]

	st := session.NewStore(m.LabDir)
	s, ok := st.Get(sessionID)
	if !ok {
		return fmt.Errorf("session %q not found", sessionID)
	}

	var inv *inventory.Inventory
	if collected, err := collectInventory(ctx, cmd, sessionID); err != nil {
		log.WithError(err).Warn("AWS unreachable, validating without resource checks")
	} else {
		inv = collected
	}

	result := validator.ValidateCheckpoint(sessionID, checkpointName, s.LabID, inv)

	if result.Valid {
		notes := "checkpoint validated"
		if len(result.Warnings) > 0 {
			notes = "checkpoint validated: " + strings.Join(result.Warnings, "; ")
		}
		if _, err := st.UpdateStep(sessionID, checkpointName, true, notes, time.Now().UTC()); err != nil {
			return err
		}
	}

	verdict := "INVALID"
	if result.Valid {
		verdict = "VALID"
	}
	cmd.Metadata["header"] = fmt.Sprintf("\nCheckpoint %s for %s: %s", checkpointName, sessionID, verdict)
	if len(result.Warnings) > 0 {
		cmd.Metadata["footer"] = "Warnings: " + strings.Join(result.Warnings, "; ")
	}

	attrs := BuildAttrs(cmd, checkpointDefaultAttrs...)
	return EmitSlice(result.Checks, attrs, cmd)
}

// checkpointCommandBuilder constructs the cli.Command for "checkpoint",
// wiring metadata, flags, and the action handler.
func checkpointCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "checkpoint",
		Usage:     "validate a lab checkpoint against live resources",
		UsageText: "labctl checkpoint [LabDir] <session-id> <checkpoint-name> [options]",
		Flags: []cli.Flag{
			NewRegionFlag("checkpoint", meta.Config.Source),
			NewProfileFlag("checkpoint", meta.Config.Source),
		},
		Action: checkpointCommandAction,
		Meta:   meta,
	}).Build()
}
