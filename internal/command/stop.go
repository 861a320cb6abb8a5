// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/session"
)

// stopCommandAction is the action handler for the "stop" subcommand. It moves
// a running session to stopped. AWS resources are untouched; cleanup is a
// separate, explicit step.
func stopCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "stop"

	if ShortCircuitTLDR(ctx, cmd, "stop") {
		return nil
	}

	args := argsAfterLabDir(cmd)
	if len(args) == 0 {
		return fmt.Errorf("usage: labctl stop [LabDir] <session-id>")
	}
	sessionID := args[0]

	st := session.NewStore(m.LabDir)
	s, err := st.Stop(sessionID, time.Now().UTC())
	if err != nil {
		return err
	}

	fmt.Printf("Stopped session %s (lab %s)\n", sessionID, s.LabID)
	fmt.Println("Resources are still running. Run 'labctl cleanup' to remove them.")
	return nil
}

// stopCommandBuilder constructs the cli.Command for "stop".
func stopCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "stop",
		Usage:     "stop a running lab session",
		UsageText: "labctl stop [LabDir] <session-id>",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  append([]cli.Flag{tldrFlag}, NewGlobalFlags("stop")...),
		Action: stopCommandAction,
	}
}
