// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/rules"
)

// rulesDefaultAttrs specifies the default attributes displayed for rule
// evaluations.
var rulesDefaultAttrs = []string{
	".rule_name",
	"resource_type",
	"resource_id",
	"compliance_type",
	"annotation",
}

// rulesCommandAction is the action handler for the "rules" subcommand. It
// reads a configuration-item JSON document from a file or stdin and evaluates
// the lab's compliance rules against it locally, no AWS Config deployment
// needed.
func rulesCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "rules"

	if ShortCircuitTLDR(ctx, cmd, "rules") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(rules.Evaluation{})) {
		return nil
	}

	// Get the positional argument (the document file or default to stdin).
	var docInput string
	if len(m.Args) > 2 && m.Args[2] != "-" {
		docInput = m.Args[2]
	} else {
		docInput = "-"
	}

	var input io.ReadCloser
	if docInput == "-" {
		input = os.Stdin
	} else {
		if info, err := os.Stat(docInput); err != nil {
			return fmt.Errorf("document does not exist: %s", docInput)
		} else if info.IsDir() {
			return fmt.Errorf("document cannot be a directory: %s", docInput)
		}
		f, err := os.Open(docInput)
		if err != nil {
			return fmt.Errorf("failed to open document: %w", err)
		}
		defer f.Close()
		input = f
	}

	doc, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	params := map[string]string{}
	if approved := cmd.String("approved-types"); approved != "" {
		params["approvedInstanceTypes"] = approved
	}

	names := rules.Names()
	if rule := cmd.String("rule"); rule != "" {
		names = []string{rule}
	}

	evaluations := make([]rules.Evaluation, 0, len(names))
	for _, name := range names {
		eval, err := rules.Evaluate(name, doc, params)
		if err != nil {
			return err
		}
		evaluations = append(evaluations, *eval)
	}

	attrs := BuildAttrs(cmd, rulesDefaultAttrs...)
	return EmitSlice(evaluations, attrs, cmd)
}

// rulesCommandBuilder constructs the "rules" subcommand.
func rulesCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "rules",
		Usage:     "evaluate compliance rules against a configuration item",
		UsageText: "labctl rules [document-file] [options]",
		Metadata:  map[string]any{"meta": meta},
		Flags: append([]cli.Flag{
			tldrFlag,
			schemaFlag,
			&cli.StringFlag{
				Name:  "rule",
				Usage: "evaluate only this rule (" + strings.Join(rules.Names(), ", ") + ")",
			},
			&cli.StringFlag{
				Name:  "approved-types",
				Usage: "comma-separated EC2 instance types the type rule accepts",
			},
		}, NewGlobalFlags("rules")...),
		Action: rulesCommandAction,
	}
}
