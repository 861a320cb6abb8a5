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
)

// discoverCommandAction is the action handler for the "discover" subcommand.
// It rescans the lab root for lab-guide.md files, rebuilds labs.yaml, and
// emits the discovered entries per common flags.
func discoverCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "discover"

	if ShortCircuitTLDR(ctx, cmd, "discover") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(catalog.Lab{})) {
		return nil
	}

	c, err := catalog.Discover(m.LabDir)
	if err != nil {
		return fmt.Errorf("failed to discover labs: %w", err)
	}

	cmd.Metadata["header"] = fmt.Sprintf("\nDiscovered %d labs:", len(c.Labs))

	attrs := BuildAttrs(cmd, labsDefaultAttrs...)
	return EmitKeyedMap(c.Labs, "id", attrs, cmd)
}

// discoverCommandBuilder constructs the cli.Command for "discover", wiring
// metadata, flags, and action handlers.
func discoverCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "discover",
		Usage:     "rescan the lab root and rebuild the catalog",
		UsageText: "labctl discover [LabDir] [options]",
		Action:    discoverCommandAction,
		Meta:      meta,
	}).Build()
}
