// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package meta

import (
	"context"

	"github.com/labctl/labctl/internal/config"
)

// LabDirSpec holds the resolved lab repository directory and optional AWS
// region override used when evaluating lab resources.
type LabDirSpec struct {
	LabDir string
	Region string
}

// Meta contains runtime metadata shared by commands. It carries CLI arguments,
// loaded configuration, context, the resolved lab directory specification, and
// the starting working directory.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context
	LabDirSpec
	StartingDir string
}
