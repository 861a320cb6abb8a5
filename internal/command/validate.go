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

	awsx "github.com/labctl/labctl/internal/aws"
	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/inventory"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/session"
	"github.com/labctl/labctl/internal/validator"
)

// validateDefaultAttrs specifies the default attributes displayed for health
// check families.
var validateDefaultAttrs = []string{".check", "status", "issues"}

// validateCommandAction is the action handler for the "validate" subcommand.
// It runs the config-driven health checks against the session's live
// inventory. Unreachable AWS yields an error report, not a crash.
func validateCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "validate"

	if ShortCircuitTLDR(ctx, cmd, "validate") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(validator.Report{})) {
		return nil
	}

	args := argsAfterLabDir(cmd)
	if len(args) == 0 {
		return fmt.Errorf("usage: labctl validate [LabDir] <session-id>")
	}
	sessionID := args[0]

	st := session.NewStore(m.LabDir)
	s, ok := st.Get(sessionID)
	if !ok {
		return fmt.Errorf("session %q not found", sessionID)
	}

	settings := validator.LoadSettings()

	var inv *inventory.Inventory
	var clients validator.Clients
	if cfg, err := loadAWSConfig(ctx, cmd); err != nil {
		log.WithError(err).Warn("AWS unreachable, reporting credential failure")
	} else {
		inv = inventory.Collect(ctx, inventoryClients(cfg), sessionID)
		clients = validator.Clients{
			CloudFormation: awsx.NewCloudFormation(cfg),
			EC2:            awsx.NewEC2(cfg),
			CloudWatch:     awsx.NewCloudWatch(cfg),
			S3:             awsx.NewS3(cfg),
			IAM:            awsx.NewIAM(cfg),
		}
	}

	report := validator.Run(ctx, clients, settings, sessionID, s.LabID, inv, time.Now().UTC())

	cmd.Metadata["header"] = fmt.Sprintf("\nValidation of %s: %s", sessionID, report.OverallStatus)
	if len(report.Errors) > 0 || len(report.Warnings) > 0 {
		cmd.Metadata["footer"] = fmt.Sprintf("%d errors, %d warnings",
			len(report.Errors), len(report.Warnings))
	}

	attrs := BuildAttrs(cmd, validateDefaultAttrs...)
	return EmitKeyedMap(report.Checks, "check", attrs, cmd)
}

// validateCommandBuilder constructs the cli.Command for "validate", wiring
// metadata, flags, and the action handler.
func validateCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "validate",
		Usage:     "health-check a session's resources",
		UsageText: "labctl validate [LabDir] <session-id> [options]",
		Flags: []cli.Flag{
			NewRegionFlag("validate", meta.Config.Source),
			NewProfileFlag("validate", meta.Config.Source),
		},
		Action: validateCommandAction,
		Meta:   meta,
	}).Build()
}
