// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package validator

import (
	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/session"
)

// Settings controls which health checks run and with what thresholds.
// Every field has a usable default so a missing config file means a full
// default validation pass, not a skipped one.
type Settings struct {
	CloudFormation CloudFormationSettings
	EC2            EC2Settings
	Lambda         LambdaSettings
	S3             S3Settings
	IAM            IAMSettings
	Cost           CostSettings
}

type CloudFormationSettings struct {
	Enabled      bool
	RequiredTags []string
	CheckDrift   bool
}

type EC2Settings struct {
	Enabled              bool
	AllowedInstanceTypes []string
	CheckSecurityGroups  bool
}

type LambdaSettings struct {
	Enabled         bool
	CheckErrorRates bool
	MaxErrorRate    float64
}

type S3Settings struct {
	Enabled         bool
	CheckEncryption bool
	CheckPublic     bool
}

type IAMSettings struct {
	Enabled               bool
	CheckPolicyCompliance bool
}

type CostSettings struct {
	Enabled        bool
	MaxHourlyCost  float64
	AlertThreshold float64
}

// LoadSettings resolves validation settings from the `validate.*` keyspace of
// the config file, falling back to defaults for anything unset.
func LoadSettings() Settings {
	s := Settings{}

	s.CloudFormation.Enabled, _ = config.GetBool("validate.cloudformation.enabled", true)
	s.CloudFormation.RequiredTags, _ = config.GetStringSlice("validate.cloudformation.required_tags",
		[]string{session.TagProject, session.TagSessionID, session.TagLabID})
	s.CloudFormation.CheckDrift, _ = config.GetBool("validate.cloudformation.check_drift", true)

	s.EC2.Enabled, _ = config.GetBool("validate.ec2.enabled", true)
	s.EC2.AllowedInstanceTypes, _ = config.GetStringSlice("validate.ec2.allowed_instance_types",
		[]string{"t2.micro", "t3.micro", "t3.small", "t3.medium"})
	s.EC2.CheckSecurityGroups, _ = config.GetBool("validate.ec2.check_security_groups", true)

	s.Lambda.Enabled, _ = config.GetBool("validate.lambda.enabled", true)
	s.Lambda.CheckErrorRates, _ = config.GetBool("validate.lambda.check_error_rates", true)
	s.Lambda.MaxErrorRate, _ = config.GetFloat64("validate.lambda.max_error_rate", 5.0)

	s.S3.Enabled, _ = config.GetBool("validate.s3.enabled", true)
	s.S3.CheckEncryption, _ = config.GetBool("validate.s3.check_bucket_encryption", true)
	s.S3.CheckPublic, _ = config.GetBool("validate.s3.check_public_access", true)

	s.IAM.Enabled, _ = config.GetBool("validate.iam.enabled", true)
	s.IAM.CheckPolicyCompliance, _ = config.GetBool("validate.iam.check_policy_compliance", true)

	s.Cost.Enabled, _ = config.GetBool("validate.cost.enabled", true)
	s.Cost.MaxHourlyCost, _ = config.GetFloat64("validate.cost.max_hourly_cost", 10.0)
	s.Cost.AlertThreshold, _ = config.GetFloat64("validate.cost.alert_threshold", 0.8)

	return s
}
