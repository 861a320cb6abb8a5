// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"reflect"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/attrs"
	awsx "github.com/labctl/labctl/internal/aws"
	"github.com/labctl/labctl/internal/cacheutil"
	"github.com/labctl/labctl/internal/inventory"
	"github.com/labctl/labctl/internal/log"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/output"
)

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (al attrs.AttrList) {
	//nolint:errcheck
	{
		for _, d := range defaults {
			al.Set(d)
		}
		if extras := cmd.String("attrs"); extras != "" {
			al.Set(extras)
		}
		al.SetGlobalTransformSpec()
	}
	return
}

// DumpSchemaIfRequested writes the JSON schema for the provided type to stdout
// when --schema is set, and returns true if it handled the request.
func DumpSchemaIfRequested(cmd *cli.Command, t reflect.Type) bool {
	if cmd.Bool("schema") {
		output.DumpSchema("", t, nil)
		return true
	}
	return false
}

// EmitSlice marshals a slice as JSON and passes it to the common output
// routine.
func EmitSlice(results any, al attrs.AttrList, cmd *cli.Command) error {
	var raw bytes.Buffer
	jsonBytes, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	raw.Write(jsonBytes)
	output.SliceDiceSpit(raw, al, cmd, "", os.Stdout, nil)
	return nil
}

// EmitKeyedMap marshals an id-keyed map (the shape of the session store and
// the lab catalog), flattens it to rows with the key injected under keyField,
// and passes it to the common output routine.
func EmitKeyedMap(results any, keyField string, al attrs.AttrList, cmd *cli.Command) error {
	var raw bytes.Buffer
	jsonBytes, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	raw.Write(jsonBytes)
	raw = output.FlattenKeyedMap(raw, keyField)
	output.SliceDiceSpit(raw, al, cmd, "", os.Stdout, nil)
	return nil
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr labctl <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "labctl", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// argsAfterLabDir returns the positional arguments following the LabDir
// positional. Argument pre-processing in main guarantees the LabDir occupies
// the first positional slot for every command that takes one.
func argsAfterLabDir(cmd *cli.Command) []string {
	args := cmd.Args().Slice()
	if len(args) > 0 {
		return args[1:]
	}
	return nil
}

// loadAWSConfig resolves the AWS config for a command. The --region flag
// beats the LabDir ::region override; --profile beats AWS_PROFILE. With
// neither set the SDK's shared config chain applies untouched.
func loadAWSConfig(ctx context.Context, cmd *cli.Command) (awsv2.Config, error) {
	m := GetMeta(cmd)

	region := cmd.String("region")
	if region == "" {
		region = m.Region
	}

	var opts []awsx.Option
	if region != "" {
		opts = append(opts, awsx.WithRegion(region))
	}
	if profile := cmd.String("profile"); profile != "" {
		opts = append(opts, awsx.WithProfile(profile))
	}

	return awsx.LoadAWSConfig(ctx, opts...)
}

// inventoryClients bundles the service clients a collection pass needs.
func inventoryClients(cfg awsv2.Config) inventory.Clients {
	return inventory.Clients{
		CloudFormation: awsx.NewCloudFormation(cfg),
		EC2:            awsx.NewEC2(cfg),
		Lambda:         awsx.NewLambda(cfg),
	}
}

// collectInventory loads AWS config and runs a full collection pass for the
// session (empty session id means all lab resources). Responses are cached
// under the inventory cache subtree; main purges stale entries on startup.
func collectInventory(ctx context.Context, cmd *cli.Command, sessionID string) (*inventory.Inventory, error) {
	cfg, err := loadAWSConfig(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cacheKey := fmt.Sprintf("inventory|%s|%s", cfg.Region, sessionID)
	if entry, ok := cacheutil.Read([]string{"inventory"}, cacheKey); ok {
		var inv inventory.Inventory
		if err := json.Unmarshal(entry.Data, &inv); err == nil {
			return &inv, nil
		}
		log.Debugf("cache entry unreadable, recollecting: key=%s", cacheKey)
	}

	inv := inventory.Collect(ctx, inventoryClients(cfg), sessionID)

	if data, err := json.Marshal(inv); err == nil {
		if err := cacheutil.Write([]string{"inventory"}, cacheKey, data); err != nil {
			log.Debugf("cache write failed: err=%v", err)
		}
	}

	return inv, nil
}
