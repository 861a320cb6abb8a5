// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"reflect"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/session"
)

// sessionsDefaultAttrs specifies the default attributes displayed for
// sessions in the "sessions" command output.
var sessionsDefaultAttrs = []string{
	".id",
	"lab_id",
	"status",
	"start_time",
	"estimated_cost::$",
}

// sessionsCommandAction is the action handler for the "sessions" subcommand.
// It queries the session store through the standard output pipeline; status
// and any other attribute are filterable via --filter.
func sessionsCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "sessions"

	if ShortCircuitTLDR(ctx, cmd, "sessions") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(session.Session{})) {
		return nil
	}

	st := session.NewStore(m.LabDir)

	attrs := BuildAttrs(cmd, sessionsDefaultAttrs...)
	return EmitKeyedMap(st.Load(), "id", attrs, cmd)
}

// sessionsCommandBuilder constructs the cli.Command for "sessions",
// configuring metadata, flags, and the associated action/validator.
func sessionsCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "sessions",
		Usage:     "session store query",
		UsageText: "labctl sessions [LabDir] [options]",
		Action:    sessionsCommandAction,
		Meta:      meta,
	}).Build()
}
