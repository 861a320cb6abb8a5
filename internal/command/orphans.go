// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"reflect"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/inventory"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/session"
)

// orphansCommandAction is the action handler for the "orphans" subcommand.
// It reports lab resources whose SessionId does not belong to an active
// session, the leftovers a failed cleanup leaves behind.
func orphansCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "orphans"

	if ShortCircuitTLDR(ctx, cmd, "orphans") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(ResourceRow{})) {
		return nil
	}

	inv, err := collectInventory(ctx, cmd, "")
	if err != nil {
		return err
	}

	st := session.NewStore(m.LabDir)
	orphaned := inventory.Orphans(inv, st.ActiveSessionIDs())

	rows := resourceRows(orphaned)
	cmd.Metadata["header"] = fmt.Sprintf("\n%d orphaned lab resources ($%.2f/hour):",
		len(rows), inventory.HourlyCost(orphaned))

	return emitInventory(rows, inventory.HourlyCost(orphaned), cmd)
}

// orphansCommandBuilder constructs the cli.Command for "orphans".
func orphansCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "orphans",
		Usage:     "lab resources not owned by an active session",
		UsageText: "labctl orphans [LabDir] [options]",
		Flags: []cli.Flag{
			NewRegionFlag("orphans", meta.Config.Source),
			NewProfileFlag("orphans", meta.Config.Source),
		},
		Action: orphansCommandAction,
		Meta:   meta,
	}).Build()
}
