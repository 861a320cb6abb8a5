// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/urfave/cli/v3"

	awsx "github.com/labctl/labctl/internal/aws"
	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/costwatch"
	"github.com/labctl/labctl/internal/meta"
)

// SessionCostRow is one session's total in the all-lab cost rollup.
type SessionCostRow struct {
	SessionID string  `json:"session_id"`
	Cost      float64 `json:"cost"`
}

var (
	// costsDailyAttrs are the defaults for a single session's daily costs.
	costsDailyAttrs = []string{".date", "cost::$"}

	// costsRollupAttrs are the defaults for the all-lab rollup.
	costsRollupAttrs = []string{".session_id", "cost::$"}

	// costsBudgetAttrs are the defaults for budget listings.
	costsBudgetAttrs = []string{".session_id", "limit::$", "actual::$", "percent", "time_unit"}
)

// costsCommandAction is the action handler for the "costs" subcommand. With
// --session it reports that session's daily and per-service actuals from
// Cost Explorer; without one it rolls up every lab session. --budgets lists
// budget alerts instead.
func costsCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "costs"

	if ShortCircuitTLDR(ctx, cmd, "costs") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(costwatch.SessionCosts{})) {
		return nil
	}

	cfg, err := loadAWSConfig(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cmd.Bool("budgets") {
		return emitBudgets(ctx, cfg, cmd)
	}

	ce := awsx.NewCostExplorer(cfg)
	days := int(cmd.Int("days"))
	now := time.Now().UTC()

	if sessionID := cmd.String("session"); sessionID != "" {
		return emitSessionCosts(ctx, ce, cmd, sessionID, days, now)
	}

	lc, err := costwatch.GetAllLabCosts(ctx, ce, days, now)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(lc.SessionCosts))
	for id := range lc.SessionCosts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]SessionCostRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, SessionCostRow{SessionID: id, Cost: lc.SessionCosts[id]})
	}

	cmd.Metadata["header"] = fmt.Sprintf("\nLab spend over %d days: $%.2f", lc.PeriodDays, lc.TotalCost)

	attrs := BuildAttrs(cmd, costsRollupAttrs...)
	return EmitSlice(rows, attrs, cmd)
}

// emitSessionCosts reports one session's daily actuals, with the service
// split and an optional forecast in the footer.
func emitSessionCosts(ctx context.Context, ce costwatch.CostReader, cmd *cli.Command,
	sessionID string, days int, now time.Time) error {
	sc, err := costwatch.GetSessionCosts(ctx, ce, sessionID, days, now)
	if err != nil {
		return err
	}

	cmd.Metadata["header"] = fmt.Sprintf("\nCosts for %s over %d days: $%.2f",
		sessionID, sc.PeriodDays, sc.TotalCost)

	var footer []string
	services := make([]string, 0, len(sc.ServiceCosts))
	for service := range sc.ServiceCosts {
		services = append(services, service)
	}
	sort.Strings(services)
	for _, service := range services {
		footer = append(footer, fmt.Sprintf("%s $%.2f", service, sc.ServiceCosts[service]))
	}

	if fcDays := int(cmd.Int("forecast")); fcDays > 0 {
		if fc, err := costwatch.GetCostForecast(ctx, ce, sessionID, fcDays, now); err != nil {
			// Forecasts need sufficient history; their absence is not fatal.
			log.WithError(err).Warnf("forecast unavailable for %s", sessionID)
		} else {
			footer = append(footer, fmt.Sprintf("forecast(%dd) $%.2f", fc.ForecastDays, fc.ForecastAmount))
		}
	}
	if len(footer) > 0 {
		cmd.Metadata["footer"] = strings.Join(footer, "  ")
	}

	attrs := BuildAttrs(cmd, costsDailyAttrs...)
	return EmitSlice(sc.DailyCosts, attrs, cmd)
}

// emitBudgets lists every lab budget with its consumption.
func emitBudgets(ctx context.Context, cfg awsv2.Config, cmd *cli.Command) error {
	identity, err := awsx.NewSTS(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("failed to resolve account: %w", err)
	}

	alerts, err := costwatch.ListBudgets(ctx, awsx.NewBudgets(cfg), *identity.Account)
	if err != nil {
		return err
	}

	attrs := BuildAttrs(cmd, costsBudgetAttrs...)
	return EmitSlice(alerts, attrs, cmd)
}

// costsCommandBuilder constructs the cli.Command for "costs", wiring
// metadata, flags, and the action handler.
func costsCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "costs",
		Usage:     "actual session spend from Cost Explorer",
		UsageText: "labctl costs [LabDir] [options]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Usage:   "lookback window in days",
				Value:   7, //nolint:mnd
			},
			&cli.IntFlag{
				Name:  "forecast",
				Usage: "also project spend this many days ahead",
				Value: 0,
			},
			&cli.BoolFlag{
				Name:  "budgets",
				Usage: "list lab budget alerts instead of costs",
				Value: false,
			},
			sessionFlag,
			NewRegionFlag("costs", meta.Config.Source),
			NewProfileFlag("costs", meta.Config.Source),
		},
		Action: costsCommandAction,
		Meta:   meta,
	}).Build()
}
