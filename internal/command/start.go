// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/urfave/cli/v3"

	awsx "github.com/labctl/labctl/internal/aws"
	"github.com/labctl/labctl/internal/catalog"
	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/costwatch"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/session"
)

// startCommandAction is the action handler for the "start" subcommand. It
// refuses unknown labs and labs with a running session, creates the session
// with its resource tags, and prints the guide path and cost estimate. With
// --budget a session budget alert is created best-effort.
func startCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "start"

	if ShortCircuitTLDR(ctx, cmd, "start") {
		return nil
	}

	args := argsAfterLabDir(cmd)
	if len(args) == 0 {
		return fmt.Errorf("usage: labctl start [LabDir] <lab-id>")
	}
	labID := args[0]

	c, err := catalog.Load(m.LabDir)
	if err != nil {
		return err
	}
	lab, ok := c.Get(labID)
	if !ok {
		return fmt.Errorf("lab %q not found in catalog", labID)
	}

	st := session.NewStore(m.LabDir)
	sessionID, s, err := st.Start(labID, lab.EstimatedCost, time.Now().UTC())
	if err != nil {
		return err
	}

	fmt.Printf("Started session %s\n", sessionID)
	fmt.Printf("Lab guide: %s\n", filepath.Join(m.LabDir, lab.Path, "lab-guide.md"))
	fmt.Printf("Estimated cost: $%.2f\n", s.EstimatedCost)
	fmt.Println("Tag your resources with:")

	keys := make([]string, 0, len(s.ResourceTags))
	for key := range s.ResourceTags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("  %s=%s\n", key, s.ResourceTags[key])
	}

	if limit := cmd.Float64("budget"); limit > 0 {
		if err := createSessionBudget(ctx, cmd, sessionID, limit); err != nil {
			// A missing budget alert should not fail the lab start.
			log.WithError(err).Warnf("budget alert not created for %s", sessionID)
		} else {
			fmt.Printf("Budget alert created: $%.2f/month\n", limit)
		}
	}

	return nil
}

// createSessionBudget resolves the account id and creates a monthly budget
// scoped to the session's SessionId tag.
func createSessionBudget(ctx context.Context, cmd *cli.Command, sessionID string, limit float64) error {
	cfg, err := loadAWSConfig(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	identity, err := awsx.NewSTS(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("failed to resolve account: %w", err)
	}

	return costwatch.CreateSessionBudget(ctx, awsx.NewBudgets(cfg),
		*identity.Account, sessionID, limit, cmd.String("email"), time.Now().UTC())
}

// startCommandBuilder constructs the cli.Command for "start", wiring
// metadata, flags, and the action handler.
func startCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "start a lab session",
		UsageText: "labctl start [LabDir] <lab-id> [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			tldrFlag,
			&cli.Float64Flag{
				Name:  "budget",
				Usage: "create a monthly budget alert for this amount (USD)",
				Value: 0,
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "email address for budget notifications",
			},
			NewRegionFlag("start", meta.Config.Source),
			NewProfileFlag("start", meta.Config.Source),
		}, NewGlobalFlags("start")...),
		Action: startCommandAction,
	}
}
