// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"reflect"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/catalog"
	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/pricing"
)

// pricingDefaultAttrs specifies the default attributes displayed for the
// per-service lines of a lab cost breakdown.
var pricingDefaultAttrs = []string{
	".service",
	"usage",
	"usage_unit",
	"free_cost::$",
	"standard_cost::$",
}

// pricingCommandAction is the action handler for the "pricing" subcommand.
// With a lab id it emits that lab's cost breakdown; without one it lists
// every lab's simple estimate.
func pricingCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "pricing"

	if ShortCircuitTLDR(ctx, cmd, "pricing") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(pricing.ServiceLine{})) {
		return nil
	}

	c, err := catalog.Load(m.LabDir)
	if err != nil {
		return err
	}

	args := argsAfterLabDir(cmd)
	if len(args) == 0 {
		// No lab named; list every lab's simple estimate.
		attrs := BuildAttrs(cmd, ".id", "name", "duration", "estimated_cost::$")
		return EmitKeyedMap(c.Labs, "id", attrs, cmd)
	}

	labID := args[0]
	lab, ok := c.Get(labID)
	if !ok {
		return fmt.Errorf("lab %q not found in catalog", labID)
	}

	durationHours := float64(lab.Duration) / 60 //nolint:mnd
	b := pricing.EstimateLabCost(lab.AWSServices, durationHours)

	cmd.Metadata["header"] = fmt.Sprintf("\nCost breakdown for %s (%.1f hours):", lab.Name, b.DurationHours)
	cmd.Metadata["footer"] = fmt.Sprintf(
		"Free Tier: $%.4f  Standard: $%.4f  Potential savings: $%.4f",
		b.FreeTierCost, b.StandardCost, b.PotentialSavings)

	attrs := BuildAttrs(cmd, pricingDefaultAttrs...)
	return EmitSlice(b.Lines, attrs, cmd)
}

// pricingCommandBuilder constructs the cli.Command for "pricing",
// configuring metadata, flags, and the associated action.
func pricingCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "pricing",
		Usage:     "per-lab cost breakdown",
		UsageText: "labctl pricing [LabDir] [lab-id] [options]",
		Action:    pricingCommandAction,
		Meta:      meta,
	}).Build()
}
