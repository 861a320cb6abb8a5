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
	"github.com/labctl/labctl/internal/session"
)

// certDefaultAttrs specifies the default attributes displayed for per-category
// certification progress.
var certDefaultAttrs = []string{".category", "completed", "total", "labs"}

// certCommandAction is the action handler for the "cert" subcommand. It
// aggregates completed sessions against the catalog into a per-category
// certification progress summary.
func certCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "cert"

	if ShortCircuitTLDR(ctx, cmd, "cert") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(session.CategoryProgress{})) {
		return nil
	}

	c, err := catalog.Load(m.LabDir)
	if err != nil {
		return err
	}

	labCategories := make(map[string]string, len(c.Labs))
	for id, lab := range c.Labs {
		labCategories[id] = lab.Category
	}

	st := session.NewStore(m.LabDir)
	progress := st.Certification(labCategories)

	cmd.Metadata["header"] = fmt.Sprintf(
		"\nCertification progress: %d/%d labs (%.1f%%), total cost $%.2f",
		progress.CompletedLabs, progress.TotalLabs,
		progress.CompletionPercentage, progress.TotalCost)

	attrs := BuildAttrs(cmd, certDefaultAttrs...)
	return EmitKeyedMap(progress.Categories, "category", attrs, cmd)
}

// certCommandBuilder constructs the cli.Command for "cert".
func certCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "cert",
		Usage:     "certification progress by category",
		UsageText: "labctl cert [LabDir] [options]",
		Action:    certCommandAction,
		Meta:      meta,
	}).Build()
}
