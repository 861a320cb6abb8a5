// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"reflect"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/catalog"
	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/meta"
)

// labsDefaultAttrs specifies the default attributes displayed for catalog
// entries in the "labs" command output.
var labsDefaultAttrs = []string{
	".id",
	"name",
	"category",
	"difficulty",
	"duration",
	"estimated_cost::$",
}

// labsCommandAction is the action handler for the "labs" subcommand. It loads
// the lab catalog for the LabDir, supports --tldr/--schema short-circuit
// behavior, and emits entries per common flags.
func labsCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "labs"

	if ShortCircuitTLDR(ctx, cmd, "labs") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(catalog.Lab{})) {
		return nil
	}

	c, err := catalog.Load(m.LabDir)
	if err != nil {
		return err
	}

	attrs := BuildAttrs(cmd, labsDefaultAttrs...)
	return EmitKeyedMap(c.Labs, "id", attrs, cmd)
}

// labsCommandBuilder constructs the cli.Command for "labs", configuring
// metadata, flags, and the associated action/validator.
func labsCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "labs",
		Usage:     "lab catalog query",
		UsageText: "labctl labs [LabDir] [options]",
		Action:    labsCommandAction,
		Meta:      meta,
	}).Build()
}
