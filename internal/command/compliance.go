// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/urfave/cli/v3"

	awsx "github.com/labctl/labctl/internal/aws"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/rules"
)

// complianceDefaultAttrs specifies the default attributes displayed for
// deployed Config rule compliance.
var complianceDefaultAttrs = []string{
	".rule_name",
	"compliance_type",
	"contributor_count",
	"cap_exceeded",
}

// complianceCommandAction is the action handler for the "compliance"
// subcommand. It summarizes the compliance state of deployed AWS Config
// rules, optionally narrowed by --rules.
func complianceCommandAction(ctx context.Context, cmd *cli.Command) error {
	fn := func(ctx context.Context, cmd *cli.Command) ([]rules.RuleCompliance, error) {
		cfg, err := loadAWSConfig(ctx, cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		var names []string
		if spec := cmd.String("rules"); spec != "" {
			names = strings.Split(spec, ",")
		}

		return rules.ComplianceByRule(ctx, awsx.NewConfigService(cfg), names)
	}

	return NewQueryActionRunner(
		"compliance",
		reflect.TypeOf(rules.RuleCompliance{}),
		complianceDefaultAttrs,
		fn,
	).Run(ctx, cmd)
}

// complianceCommandBuilder constructs the cli.Command for "compliance".
func complianceCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "compliance",
		Usage:     "deployed Config rule compliance summary",
		UsageText: "labctl compliance [LabDir] [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "rules",
				Usage: "comma-separated Config rule names to include",
			},
			NewRegionFlag("compliance", meta.Config.Source),
			NewProfileFlag("compliance", meta.Config.Source),
		},
		Action: complianceCommandAction,
		Meta:   meta,
	}).Build()
}
