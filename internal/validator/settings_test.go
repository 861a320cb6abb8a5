// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labctl/labctl/internal/config"
)

func TestLoadSettings_Defaults(t *testing.T) {
	config.Config = config.Type{Data: map[string]interface{}{"noop": true}}
	t.Cleanup(func() { config.Config = config.Type{} })

	s := LoadSettings()

	assert.True(t, s.CloudFormation.Enabled)
	assert.Equal(t, []string{"Project", "SessionId", "LabId"}, s.CloudFormation.RequiredTags)
	assert.True(t, s.CloudFormation.CheckDrift)
	assert.Contains(t, s.EC2.AllowedInstanceTypes, "t2.micro")
	assert.Contains(t, s.EC2.AllowedInstanceTypes, "t3.micro")
	assert.InDelta(t, 5.0, s.Lambda.MaxErrorRate, 0.001)
	assert.InDelta(t, 10.0, s.Cost.MaxHourlyCost, 0.001)
	assert.InDelta(t, 0.8, s.Cost.AlertThreshold, 0.001)
}

func TestLoadSettings_Overrides(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "labctl.yaml")
	cfgYaml := `
validate:
  ec2:
    enabled: false
    allowed_instance_types:
      - t3.nano
  lambda:
    max_error_rate: 2.5
  cost:
    max_hourly_cost: 3
`
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfgYaml), 0o600))
	t.Setenv("LABCTL_CFG_FILE", cfgFile)
	_, err := config.Load()
	require.NoError(t, err)
	t.Cleanup(func() { config.Config = config.Type{} })

	s := LoadSettings()

	assert.False(t, s.EC2.Enabled)
	assert.Equal(t, []string{"t3.nano"}, s.EC2.AllowedInstanceTypes)
	assert.InDelta(t, 2.5, s.Lambda.MaxErrorRate, 0.001)
	assert.InDelta(t, 3.0, s.Cost.MaxHourlyCost, 0.001)
	// Untouched sections keep their defaults.
	assert.True(t, s.S3.Enabled)
}
