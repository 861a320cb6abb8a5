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
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/session"
)

// progressDefaultAttrs specifies the default attributes displayed for session
// progress steps.
var progressDefaultAttrs = []string{
	".name",
	"completed",
	"started_at",
	"completed_at",
	"notes",
}

// progressCommandAction is the action handler for the "progress" subcommand.
// With --step it records a step update first; it then shows the session's
// step ledger through the standard output pipeline.
func progressCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "progress"

	if ShortCircuitTLDR(ctx, cmd, "progress") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(session.Step{})) {
		return nil
	}

	args := argsAfterLabDir(cmd)
	if len(args) == 0 {
		return fmt.Errorf("usage: labctl progress [LabDir] <session-id> [options]")
	}
	sessionID := args[0]

	st := session.NewStore(m.LabDir)

	if step := cmd.String("step"); step != "" {
		if _, err := st.UpdateStep(sessionID, step, cmd.Bool("done"),
			cmd.String("notes"), time.Now().UTC()); err != nil {
			return err
		}
	}

	s, ok := st.Get(sessionID)
	if !ok {
		return fmt.Errorf("session %q not found", sessionID)
	}

	var steps []session.Step
	if s.Progress != nil {
		steps = s.Progress.Steps
		cmd.Metadata["header"] = fmt.Sprintf("\nProgress for %s: %.1f%% complete (current: %s)",
			sessionID, s.Progress.CompletionPercentage, s.Progress.CurrentStep)
	} else {
		cmd.Metadata["header"] = fmt.Sprintf("\nProgress for %s: no steps recorded", sessionID)
	}

	attrs := BuildAttrs(cmd, progressDefaultAttrs...)
	return EmitSlice(steps, attrs, cmd)
}

// progressCommandBuilder constructs the cli.Command for "progress", wiring
// metadata, flags, and the action handler.
func progressCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "progress",
		Usage:     "show or update session progress",
		UsageText: "labctl progress [LabDir] <session-id> [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "step",
				Usage: "record an update for this step",
			},
			&cli.BoolFlag{
				Name:  "done",
				Usage: "mark the step completed",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "notes",
				Usage: "notes to attach to the step",
			},
		},
		Action: progressCommandAction,
		Meta:   meta,
	}).Build()
}
