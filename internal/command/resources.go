// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/inventory"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/output"
	"github.com/labctl/labctl/internal/session"
)

// ResourceRow is one AWS resource flattened for the output pipeline.
type ResourceRow struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Created   time.Time `json:"created,omitempty"`
}

// resourcesDefaultAttrs specifies the default attributes displayed for lab
// resources.
var resourcesDefaultAttrs = []string{
	".kind",
	"id",
	"status",
	"detail",
	"session_id",
}

// resourceRows flattens an inventory into output pipeline rows.
func resourceRows(inv *inventory.Inventory) []ResourceRow {
	rows := make([]ResourceRow, 0, inv.Count())

	for _, stack := range inv.CloudFormationStacks {
		rows = append(rows, ResourceRow{
			Kind:      "cloudformation",
			ID:        stack.Name,
			Status:    stack.Status,
			SessionID: stack.Tags[session.TagSessionID],
			Created:   stack.CreationTime,
		})
	}
	for _, instance := range inv.EC2Instances {
		rows = append(rows, ResourceRow{
			Kind:      "ec2",
			ID:        instance.InstanceID,
			Status:    instance.State,
			Detail:    instance.InstanceType,
			SessionID: instance.Tags[session.TagSessionID],
			Created:   instance.LaunchTime,
		})
	}
	for _, fn := range inv.LambdaFunctions {
		rows = append(rows, ResourceRow{
			Kind:      "lambda",
			ID:        fn.Name,
			Status:    fn.State,
			Detail:    fn.Runtime,
			SessionID: fn.Tags[session.TagSessionID],
		})
	}

	return rows
}

// emitInventory wraps rows in a resources document and runs it through the
// common output routine, so --output=raw carries the burn rate too.
func emitInventory(rows []ResourceRow, hourlyCost float64, cmd *cli.Command) error {
	doc := struct {
		Resources  []ResourceRow `json:"resources"`
		HourlyCost float64       `json:"hourly_cost"`
	}{Resources: rows, HourlyCost: hourlyCost}

	var raw bytes.Buffer
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	raw.Write(jsonBytes)

	attrs := BuildAttrs(cmd, resourcesDefaultAttrs...)
	output.SliceDiceSpit(raw, attrs, cmd, "resources", os.Stdout, nil)
	return nil
}

// resourcesCommandAction is the action handler for the "resources"
// subcommand. It collects the live AWS inventory of lab resources, optionally
// scoped to one session, and emits it per common flags.
func resourcesCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "resources"

	if ShortCircuitTLDR(ctx, cmd, "resources") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(ResourceRow{})) {
		return nil
	}

	inv, err := collectInventory(ctx, cmd, cmd.String("session"))
	if err != nil {
		return err
	}

	rows := resourceRows(inv)
	cmd.Metadata["header"] = fmt.Sprintf("\n%d lab resources ($%.2f/hour):",
		len(rows), inv.TotalEstimatedCost)

	return emitInventory(rows, inv.TotalEstimatedCost, cmd)
}

// resourcesCommandBuilder constructs the cli.Command for "resources",
// configuring metadata, flags, and the associated action/validator.
func resourcesCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "resources",
		Usage:     "live lab resource inventory",
		UsageText: "labctl resources [LabDir] [options]",
		Flags: []cli.Flag{
			sessionFlag,
			NewRegionFlag("resources", meta.Config.Source),
			NewProfileFlag("resources", meta.Config.Source),
		},
		Action: resourcesCommandAction,
		Meta:   meta,
	}).Build()
}
