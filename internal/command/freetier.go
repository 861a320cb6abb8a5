// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"reflect"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/pricing"
)

// FreeTierLimit is one monthly Free Tier allowance row.
type FreeTierLimit struct {
	Service string `json:"service"`
	Limit   string `json:"limit"`
}

// freetierDefaultAttrs specifies the default attributes displayed for Free
// Tier allowances.
var freetierDefaultAttrs = []string{".service", "limit"}

// freetierCommandAction is the action handler for the "freetier" subcommand.
// It lists the monthly Free Tier allowances the cost estimates assume.
func freetierCommandAction(ctx context.Context, cmd *cli.Command) error {
	fn := func(ctx context.Context, cmd *cli.Command) ([]FreeTierLimit, error) {
		limits := pricing.FreeTierLimits()

		services := make([]string, 0, len(limits))
		for service := range limits {
			services = append(services, service)
		}
		sort.Strings(services)

		rows := make([]FreeTierLimit, 0, len(services))
		for _, service := range services {
			rows = append(rows, FreeTierLimit{Service: service, Limit: limits[service]})
		}
		return rows, nil
	}

	return NewQueryActionRunner(
		"freetier",
		reflect.TypeOf(FreeTierLimit{}),
		freetierDefaultAttrs,
		fn,
	).Run(ctx, cmd)
}

// freetierCommandBuilder constructs the cli.Command for "freetier".
func freetierCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "freetier",
		Usage:     "monthly Free Tier allowances",
		UsageText: "labctl freetier [LabDir] [options]",
		Action:    freetierCommandAction,
		Meta:      meta,
	}).Build()
}
