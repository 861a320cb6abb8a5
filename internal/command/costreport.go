// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/catalog"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/pricing"
)

// LabCostLine is one lab's row in the catalog-wide cost report.
type LabCostLine struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	FreeTierCost float64 `json:"free_tier_cost"`
	StandardCost float64 `json:"standard_cost"`
	Savings      float64 `json:"savings"`
}

// costReportDocument is the JSON report written under --file.
type costReportDocument struct {
	GeneratedAt       time.Time     `json:"generated_at"`
	Labs              []LabCostLine `json:"labs"`
	TotalFreeTierCost float64       `json:"total_free_tier_cost"`
	TotalStandardCost float64       `json:"total_standard_cost"`
	TotalSavings      float64       `json:"total_savings"`
}

// costreportDefaultAttrs specifies the default attributes displayed for lab
// cost report lines.
var costreportDefaultAttrs = []string{
	".id",
	"name",
	"category",
	"free_tier_cost::$",
	"standard_cost::$",
	"savings::$",
}

// costreportCommandAction is the action handler for the "costreport"
// subcommand. It estimates every catalog lab at both Free Tier and standard
// rates, totals the savings, and optionally writes the full report as JSON.
func costreportCommandAction(ctx context.Context, cmd *cli.Command) error {
	fn := func(ctx context.Context, cmd *cli.Command) ([]LabCostLine, error) {
		m := GetMeta(cmd)

		c, err := catalog.Load(m.LabDir)
		if err != nil {
			return nil, err
		}

		ids := make([]string, 0, len(c.Labs))
		for id := range c.Labs {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		doc := costReportDocument{GeneratedAt: time.Now().UTC()}
		for _, id := range ids {
			lab := c.Labs[id]
			b := pricing.EstimateLabCost(lab.AWSServices, float64(lab.Duration)/60) //nolint:mnd
			doc.Labs = append(doc.Labs, LabCostLine{
				ID:           id,
				Name:         lab.Name,
				Category:     lab.Category,
				FreeTierCost: b.FreeTierCost,
				StandardCost: b.StandardCost,
				Savings:      b.PotentialSavings,
			})
			doc.TotalFreeTierCost += b.FreeTierCost
			doc.TotalStandardCost += b.StandardCost
			doc.TotalSavings += b.PotentialSavings
		}

		cmd.Metadata["footer"] = fmt.Sprintf(
			"Totals: Free Tier $%.2f  Standard $%.2f  Savings $%.2f",
			doc.TotalFreeTierCost, doc.TotalStandardCost, doc.TotalSavings)

		if file := cmd.String("file"); file != "" {
			raw, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal cost report: %w", err)
			}
			if err := os.WriteFile(file, raw, 0o644); err != nil { //nolint:mnd
				return nil, fmt.Errorf("failed to write cost report: %w", err)
			}
		}

		return doc.Labs, nil
	}

	return NewQueryActionRunner(
		"costreport",
		reflect.TypeOf(LabCostLine{}),
		costreportDefaultAttrs,
		fn,
	).Run(ctx, cmd)
}

// costreportCommandBuilder constructs the cli.Command for "costreport".
func costreportCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "costreport",
		Usage:     "catalog-wide cost report with Free Tier savings",
		UsageText: "labctl costreport [LabDir] [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "write the full report as JSON to this file",
			},
		},
		Action: costreportCommandAction,
		Meta:   meta,
	}).Build()
}
