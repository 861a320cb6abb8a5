// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/urfave/cli/v3"

	awsx "github.com/labctl/labctl/internal/aws"
	"github.com/labctl/labctl/internal/catalog"
	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/costwatch"
	"github.com/labctl/labctl/internal/differ"
	"github.com/labctl/labctl/internal/inventory"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/session"
)

// cleanupTimeout bounds a lab's cleanup.sh run.
const cleanupTimeout = 5 * time.Minute

// cleanupCommandAction is the action handler for the "cleanup" subcommand.
// It runs the lab's cleanup script when one exists, re-collects the session
// inventory to verify, and records the outcome. Remaining resources are
// reported; --diff shows the pre/post snapshot difference.
func cleanupCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "cleanup"

	if ShortCircuitTLDR(ctx, cmd, "cleanup") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(ResourceRow{})) {
		return nil
	}

	args := argsAfterLabDir(cmd)
	if len(args) == 0 {
		return fmt.Errorf("usage: labctl cleanup [LabDir] <session-id>")
	}
	sessionID := args[0]

	st := session.NewStore(m.LabDir)
	s, ok := st.Get(sessionID)
	if !ok {
		return fmt.Errorf("session %q not found", sessionID)
	}

	// Snapshots must reflect the live account, so the cache is bypassed on
	// both collection passes.
	cfg, err := loadAWSConfig(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	clients := inventoryClients(cfg)

	pre := inventory.Collect(ctx, clients, sessionID)
	log.Debugf("pre-cleanup inventory: count=%d", pre.Count())

	success := runCleanupScript(ctx, m.LabDir, s.LabID, sessionID)

	post := inventory.Collect(ctx, clients, sessionID)
	verified := post.Count() == 0

	if _, err := st.FinishCleanup(sessionID, success, verified, time.Now().UTC()); err != nil {
		return err
	}

	if verified {
		fmt.Printf("Cleanup verified for %s: no resources remain\n", sessionID)
		deleteSessionBudget(ctx, cfg, sessionID)
	} else {
		fmt.Printf("Cleanup incomplete for %s: %d resources remain\n", sessionID, post.Count())
	}

	if cmd.Bool("diff") {
		if err := printSnapshotDiff(pre, post, cmd); err != nil {
			return err
		}
	}

	if post.Count() == 0 {
		return nil
	}

	rows := resourceRows(post)
	cmd.Metadata["header"] = "\nRemaining resources:"
	return emitInventory(rows, post.TotalEstimatedCost, cmd)
}

// runCleanupScript executes <lab-path>/scripts/cleanup.sh with the session id
// under the cleanup timeout. A missing script is not a failure; verification
// still runs.
func runCleanupScript(ctx context.Context, labDir, labID, sessionID string) bool {
	script := filepath.Join(labDir, labPath(labDir, labID), "scripts", "cleanup.sh")
	if _, err := os.Stat(script); err != nil {
		log.Debugf("no cleanup script: path=%s", script)
		return true
	}

	scriptCtx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	c := exec.CommandContext(scriptCtx, script, sessionID)
	c.Dir = filepath.Dir(filepath.Dir(script))
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	if err := c.Run(); err != nil {
		log.WithError(err).Errorf("cleanup script failed: %s", script)
		return false
	}
	return true
}

// labPath resolves the lab's relative path from the catalog, falling back to
// the lab id when the catalog is unreadable.
func labPath(labDir, labID string) string {
	c, err := catalog.Load(labDir)
	if err != nil {
		log.WithError(err).Warnf("catalog unreadable under %s", labDir)
		return labID
	}
	if lab, ok := c.Get(labID); ok {
		return lab.Path
	}
	return labID
}

// printSnapshotDiff renders the pre/post inventory difference. --diff_filter
// names top-level keys to drop from the comparison.
func printSnapshotDiff(pre, post *inventory.Inventory, cmd *cli.Command) error {
	before, err := json.Marshal(pre)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	after, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var skip []string
	if spec := cmd.String("diff_filter"); spec != "" {
		skip = strings.Split(spec, ",")
	}

	out, err := differ.Diff(before, after, skip, cmd.Bool("color"))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// deleteSessionBudget removes the session's budget alert best-effort. Not
// every session has one, so failures only surface at debug.
func deleteSessionBudget(ctx context.Context, cfg awsv2.Config, sessionID string) {
	identity, err := awsx.NewSTS(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		log.Debugf("budget delete skipped: err=%v", err)
		return
	}
	if err := costwatch.DeleteSessionBudget(ctx, awsx.NewBudgets(cfg),
		*identity.Account, sessionID); err != nil {
		log.Debugf("budget delete skipped: err=%v", err)
	}
}

// cleanupCommandBuilder constructs the cli.Command for "cleanup", wiring
// metadata, flags, and the action handler.
func cleanupCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "cleanup",
		Usage:     "run and verify a session's resource cleanup",
		UsageText: "labctl cleanup [LabDir] <session-id> [options]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "diff",
				Usage: "show the pre/post inventory snapshot difference",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "diff_filter",
				Usage: "comma-separated top-level keys to exclude from the diff",
			},
			NewRegionFlag("cleanup", meta.Config.Source),
			NewProfileFlag("cleanup", meta.Config.Source),
		},
		Action: cleanupCommandAction,
		Meta:   meta,
	}).Build()
}
