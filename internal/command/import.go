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

// importCommandAction is the action handler for the "import" subcommand. It
// decrypts an exported archive and merges its sessions into the store.
// Imported sessions win on id collision.
func importCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "import"

	if ShortCircuitTLDR(ctx, cmd, "import") {
		return nil
	}

	args := argsAfterLabDir(cmd)
	if len(args) == 0 {
		return fmt.Errorf("usage: labctl import [LabDir] <file>")
	}
	file := args[0]

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	passphrase, err := resolvePassphrase(cmd)
	if err != nil {
		return err
	}

	imported, err := session.Import(data, passphrase)
	if err != nil {
		return err
	}

	st := session.NewStore(m.LabDir)
	sessions := st.Load()
	for id, s := range imported {
		sessions[id] = s
	}
	if err := st.Save(sessions); err != nil {
		return err
	}

	fmt.Printf("Imported %d sessions from %s\n", len(imported), file)
	return nil
}

// importCommandBuilder constructs the cli.Command for "import".
func importCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "import sessions from an encrypted archive",
		UsageText: "labctl import [LabDir] <file> [options]",
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
		}, NewGlobalFlags("import")...),
		Action: importCommandAction,
	}
}
