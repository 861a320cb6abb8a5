// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	budgetsv2 "github.com/aws/aws-sdk-go-v2/service/budgets"
	cfnv2 "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cwv2 "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	configsvcv2 "github.com/aws/aws-sdk-go-v2/service/configservice"
	cev2 "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	ec2v2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	iamv2 "github.com/aws/aws-sdk-go-v2/service/iam"
	lambdav2 "github.com/aws/aws-sdk-go-v2/service/lambda"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	stsv2 "github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/labctl/labctl/internal/log"
)

// options holds optional overrides for AWS config loading.
type options struct {
	profile string
	region  string
	retryer func() awsv2.Retryer
}

// Option customizes how AWS config is loaded.
// Default behavior (no options) inherits the shell environment and shared
// config chain (AWS_PROFILE, ~/.aws/config, ~/.aws/credentials, IMDS, etc.).
type Option func(*options)

// LoadAWSConfig loads AWS SDK v2 config. By default it inherits the shell's
// AWS setup (AWS_PROFILE, shared config, env, IMDS). Options can override
// profile, region, and retryer without changing callers.
func LoadAWSConfig(ctx context.Context, opts ...Option) (awsv2.Config, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log.Debugf("opts applied: profile=%s, region=%s", o.profile, o.region)

	var loadOpts []func(*config.LoadOptions) error
	if o.profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(o.profile))
	}
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	if o.retryer != nil {
		loadOpts = append(loadOpts, config.WithRetryer(o.retryer))
	}
	log.Debugf("loadOpts built: len=%d", len(loadOpts))

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.Debugf("config load err: err=%v", err)
		return awsv2.Config{}, err
	}
	log.Debugf("config loaded")
	return cfg, nil
}

// WithProfile sets the shared config profile. Defaults to AWS_PROFILE/env chain.
func WithProfile(profile string) Option {
	return func(o *options) { o.profile = profile }
}

// WithRegion sets the region override. Defaults to env/profile/metadata chain.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithRetryer injects a custom retryer; if not set, SDK defaults are used.
func WithRetryer(newRetryer func() awsv2.Retryer) Option {
	return func(o *options) { o.retryer = newRetryer }
}

// NewCloudFormation constructs a v2 CloudFormation client from the provided
// config.
func NewCloudFormation(cfg awsv2.Config, optFns ...func(*cfnv2.Options)) *cfnv2.Client {
	client := cfnv2.NewFromConfig(cfg, optFns...)
	log.Debugf("cloudformation client created")
	return client
}

// NewEC2 constructs a v2 EC2 client from the provided config.
func NewEC2(cfg awsv2.Config, optFns ...func(*ec2v2.Options)) *ec2v2.Client {
	client := ec2v2.NewFromConfig(cfg, optFns...)
	log.Debugf("ec2 client created")
	return client
}

// NewLambda constructs a v2 Lambda client from the provided config.
func NewLambda(cfg awsv2.Config, optFns ...func(*lambdav2.Options)) *lambdav2.Client {
	client := lambdav2.NewFromConfig(cfg, optFns...)
	log.Debugf("lambda client created")
	return client
}

// NewS3 constructs a v2 S3 client from the provided config. Additional service
// options can be supplied via optFns.
func NewS3(cfg awsv2.Config, optFns ...func(*s3v2.Options)) *s3v2.Client {
	client := s3v2.NewFromConfig(cfg, optFns...)
	log.Debugf("s3 client created")
	return client
}

// NewIAM constructs a v2 IAM client from the provided config.
func NewIAM(cfg awsv2.Config, optFns ...func(*iamv2.Options)) *iamv2.Client {
	client := iamv2.NewFromConfig(cfg, optFns...)
	log.Debugf("iam client created")
	return client
}

// NewSTS constructs a v2 STS client from the provided config.
func NewSTS(cfg awsv2.Config, optFns ...func(*stsv2.Options)) *stsv2.Client {
	client := stsv2.NewFromConfig(cfg, optFns...)
	log.Debugf("sts client created")
	return client
}

// NewCostExplorer constructs a v2 Cost Explorer client. The Cost Explorer API
// is only served out of us-east-1, so that region is forced here.
func NewCostExplorer(cfg awsv2.Config, optFns ...func(*cev2.Options)) *cev2.Client {
	optFns = append(optFns, func(o *cev2.Options) { o.Region = "us-east-1" })
	client := cev2.NewFromConfig(cfg, optFns...)
	log.Debugf("costexplorer client created")
	return client
}

// NewBudgets constructs a v2 Budgets client. Budgets is a global service
// served out of us-east-1.
func NewBudgets(cfg awsv2.Config, optFns ...func(*budgetsv2.Options)) *budgetsv2.Client {
	optFns = append(optFns, func(o *budgetsv2.Options) { o.Region = "us-east-1" })
	client := budgetsv2.NewFromConfig(cfg, optFns...)
	log.Debugf("budgets client created")
	return client
}

// NewCloudWatch constructs a v2 CloudWatch client from the provided config.
func NewCloudWatch(cfg awsv2.Config, optFns ...func(*cwv2.Options)) *cwv2.Client {
	client := cwv2.NewFromConfig(cfg, optFns...)
	log.Debugf("cloudwatch client created")
	return client
}

// NewConfigService constructs a v2 AWS Config client from the provided config.
func NewConfigService(cfg awsv2.Config, optFns ...func(*configsvcv2.Options)) *configsvcv2.Client {
	client := configsvcv2.NewFromConfig(cfg, optFns...)
	log.Debugf("configservice client created")
	return client
}
