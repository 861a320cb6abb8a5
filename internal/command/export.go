// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/session"
)

// defaultArchiveName is where export writes when no file is named.
const defaultArchiveName = "labctl-sessions.json"

// resolvePassphrase returns the archive passphrase from the --passphrase
// flag, the LABCTL_PASSPHRASE env var, or an interactive no-echo prompt, in
// that order.
func resolvePassphrase(cmd *cli.Command) (string, error) {
	if p := cmd.String("passphrase"); p != "" {
		return p, nil
	}
	if p, ok := os.LookupEnv("LABCTL_PASSPHRASE"); ok && p != "" {
		return p, nil
	}
	return session.GetPassphrase()
}

// exportCommandAction is the action handler for the "export" subcommand. It
// encrypts the full session store under a passphrase-derived key and writes
// the archive document.
func exportCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "export"

	if ShortCircuitTLDR(ctx, cmd, "export") {
		return nil
	}

	file := defaultArchiveName
	if args := argsAfterLabDir(cmd); len(args) > 0 {
		file = args[0]
	}

	passphrase, err := resolvePassphrase(cmd)
	if err != nil {
		return err
	}

	st := session.NewStore(m.LabDir)
	sessions := st.Load()

	data, err := session.Export(sessions, passphrase)
	if err != nil {
		return err
	}

	if err := os.WriteFile(file, data, 0o600); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write archive: %w", err)
	}

	fmt.Printf("Exported %d sessions to %s\n", len(sessions), file)
	return nil
}

// exportCommandBuilder constructs the cli.Command for "export".
func exportCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "export sessions to an encrypted archive",
		UsageText: "labctl export [LabDir] [file] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			tldrFlag,
			&cli.StringFlag{
				Name:    "passphrase",
				Aliases: []string{"p"},
				Usage:   "archive passphrase",
				Value:   "",
			},
		}, NewGlobalFlags("export")...),
		Action: exportCommandAction,
	}
}
