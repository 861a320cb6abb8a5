// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package inventory collects the AWS resources attributed to lab sessions.
// Attribution is tag based: a resource belongs to the lab system iff its
// Project tag matches, and to one session iff its SessionId tag matches.
package inventory

import (
	"context"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/labctl/labctl/internal/log"
	"github.com/labctl/labctl/internal/pricing"
	"github.com/labctl/labctl/internal/session"
)

// StackLister is the CloudFormation surface Collect needs.
type StackLister interface {
	ListStacks(ctx context.Context, params *cloudformation.ListStacksInput,
		optFns ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error)
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput,
		optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// InstanceDescriber is the EC2 surface Collect needs.
type InstanceDescriber interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput,
		optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// FunctionLister is the Lambda surface Collect needs.
type FunctionLister interface {
	ListFunctions(ctx context.Context, params *lambda.ListFunctionsInput,
		optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
	ListTags(ctx context.Context, params *lambda.ListTagsInput,
		optFns ...func(*lambda.Options)) (*lambda.ListTagsOutput, error)
}

// Clients bundles the service surfaces needed for a collection pass.
type Clients struct {
	CloudFormation StackLister
	EC2            InstanceDescriber
	Lambda         FunctionLister
}

// Stack is one CloudFormation stack in an inventory.
type Stack struct {
	Name         string            `json:"name"`
	Status       string            `json:"status"`
	CreationTime time.Time         `json:"creation_time"`
	Tags         map[string]string `json:"tags"`
}

// Instance is one EC2 instance in an inventory.
type Instance struct {
	InstanceID     string            `json:"instance_id"`
	InstanceType   string            `json:"instance_type"`
	State          string            `json:"state"`
	LaunchTime     time.Time         `json:"launch_time"`
	SecurityGroups []string          `json:"security_groups,omitempty"`
	Tags           map[string]string `json:"tags"`
}

// Function is one Lambda function in an inventory.
type Function struct {
	Name         string            `json:"name"`
	Runtime      string            `json:"runtime"`
	State        string            `json:"state,omitempty"`
	LastModified string            `json:"last_modified"`
	Tags         map[string]string `json:"tags"`
}

// Inventory is the result of one collection pass.
type Inventory struct {
	CloudFormationStacks []Stack    `json:"cloudformation_stacks"`
	EC2Instances         []Instance `json:"ec2_instances"`
	LambdaFunctions      []Function `json:"lambda_functions"`
	TotalEstimatedCost   float64    `json:"total_estimated_cost"`
}

// Count returns the total number of resources across all kinds.
func (inv *Inventory) Count() int {
	return len(inv.CloudFormationStacks) + len(inv.EC2Instances) + len(inv.LambdaFunctions)
}

// healthyStackStatuses are the stack states a lab inventory cares about.
// Deleted and in-flight stacks are excluded.
var healthyStackStatuses = []cfntypes.StackStatus{
	cfntypes.StackStatusCreateComplete,
	cfntypes.StackStatusUpdateComplete,
	cfntypes.StackStatusRollbackComplete,
}

// Collect gathers all lab-tagged resources, optionally narrowed to one
// session. A failure against one service degrades to a warning so a partial
// inventory is still useful.
func Collect(ctx context.Context, clients Clients, sessionID string) *Inventory {
	inv := &Inventory{
		CloudFormationStacks: []Stack{},
		EC2Instances:         []Instance{},
		LambdaFunctions:      []Function{},
	}

	collectStacks(ctx, clients.CloudFormation, sessionID, inv)
	collectInstances(ctx, clients.EC2, sessionID, inv)
	collectFunctions(ctx, clients.Lambda, sessionID, inv)

	inv.TotalEstimatedCost = HourlyCost(inv)

	return inv
}

func collectStacks(ctx context.Context, client StackLister, sessionID string, inv *Inventory) {
	if client == nil {
		return
	}

	var nextToken *string
	for {
		out, err := client.ListStacks(ctx, &cloudformation.ListStacksInput{
			StackStatusFilter: healthyStackStatuses,
			NextToken:         nextToken,
		})
		if err != nil {
			log.WithError(err).Warn("failed to list CloudFormation stacks")
			return
		}

		for _, summary := range out.StackSummaries {
			name := aws.ToString(summary.StackName)
			tags := stackTags(ctx, client, name)
			if !IsLabResource(tags, sessionID) {
				continue
			}
			inv.CloudFormationStacks = append(inv.CloudFormationStacks, Stack{
				Name:         name,
				Status:       string(summary.StackStatus),
				CreationTime: aws.ToTime(summary.CreationTime),
				Tags:         tags,
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
}

// stackTags fetches the tags of one stack. ListStacks summaries don't carry
// tags, so each candidate costs a DescribeStacks call.
func stackTags(ctx context.Context, client StackLister, stackName string) map[string]string {
	out, err := client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil || len(out.Stacks) == 0 {
		return map[string]string{}
	}

	tags := make(map[string]string, len(out.Stacks[0].Tags))
	for _, tag := range out.Stacks[0].Tags {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return tags
}

func collectInstances(ctx context.Context, client InstanceDescriber, sessionID string, inv *Inventory) {
	if client == nil {
		return
	}

	var nextToken *string
	for {
		out, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			NextToken: nextToken,
		})
		if err != nil {
			log.WithError(err).Warn("failed to describe EC2 instances")
			return
		}

		for _, reservation := range out.Reservations {
			for _, instance := range reservation.Instances {
				if instance.State != nil &&
					instance.State.Name == ec2types.InstanceStateNameTerminated {
					continue
				}

				tags := make(map[string]string, len(instance.Tags))
				for _, tag := range instance.Tags {
					tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
				}
				if !IsLabResource(tags, sessionID) {
					continue
				}

				state := ""
				if instance.State != nil {
					state = string(instance.State.Name)
				}
				groups := make([]string, 0, len(instance.SecurityGroups))
				for _, sg := range instance.SecurityGroups {
					groups = append(groups, aws.ToString(sg.GroupId))
				}
				inv.EC2Instances = append(inv.EC2Instances, Instance{
					InstanceID:     aws.ToString(instance.InstanceId),
					InstanceType:   string(instance.InstanceType),
					State:          state,
					LaunchTime:     aws.ToTime(instance.LaunchTime),
					SecurityGroups: groups,
					Tags:           tags,
				})
			}
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
}

func collectFunctions(ctx context.Context, client FunctionLister, sessionID string, inv *Inventory) {
	if client == nil {
		return
	}

	var marker *string
	for {
		out, err := client.ListFunctions(ctx, &lambda.ListFunctionsInput{
			Marker: marker,
		})
		if err != nil {
			log.WithError(err).Warn("failed to list Lambda functions")
			return
		}

		for _, fn := range out.Functions {
			tags := map[string]string{}
			tagsOut, err := client.ListTags(ctx, &lambda.ListTagsInput{
				Resource: fn.FunctionArn,
			})
			if err == nil {
				tags = tagsOut.Tags
			}
			if !IsLabResource(tags, sessionID) {
				continue
			}

			inv.LambdaFunctions = append(inv.LambdaFunctions, Function{
				Name:         aws.ToString(fn.FunctionName),
				Runtime:      string(fn.Runtime),
				State:        string(fn.State),
				LastModified: aws.ToString(fn.LastModified),
				Tags:         tags,
			})
		}

		if out.NextMarker == nil {
			break
		}
		marker = out.NextMarker
	}
}

// IsLabResource reports whether a tag set marks a lab resource, and when
// sessionID is non-empty, whether it belongs to that session.
func IsLabResource(tags map[string]string, sessionID string) bool {
	if tags[session.TagProject] != session.ProjectTagValue {
		return false
	}
	if sessionID != "" && tags[session.TagSessionID] != sessionID {
		return false
	}
	return true
}

// baseHourlyCost covers the incidental burn every inventory carries (data
// transfer, log ingestion).
const baseHourlyCost = 0.50

// lambdaHourlyCost is a nominal per-function burn rate.
const lambdaHourlyCost = 0.01

// HourlyCost estimates the hourly burn rate of an inventory. Only running
// instances accrue; stacks have no direct cost of their own.
func HourlyCost(inv *Inventory) float64 {
	total := baseHourlyCost

	for _, instance := range inv.EC2Instances {
		if instance.State == string(ec2types.InstanceStateNameRunning) {
			total += pricing.InstanceHourlyRate(instance.InstanceType)
		}
	}

	total += float64(len(inv.LambdaFunctions)) * lambdaHourlyCost

	return math.Round(total*100) / 100 //nolint:mnd
}

// Orphans returns the resources whose SessionId tag names no active session.
// Untagged lab resources (no SessionId at all) are orphans too.
func Orphans(inv *Inventory, activeSessionIDs map[string]bool) *Inventory {
	orphaned := &Inventory{
		CloudFormationStacks: []Stack{},
		EC2Instances:         []Instance{},
		LambdaFunctions:      []Function{},
	}

	for _, stack := range inv.CloudFormationStacks {
		if !activeSessionIDs[stack.Tags[session.TagSessionID]] {
			orphaned.CloudFormationStacks = append(orphaned.CloudFormationStacks, stack)
		}
	}
	for _, instance := range inv.EC2Instances {
		if !activeSessionIDs[instance.Tags[session.TagSessionID]] {
			orphaned.EC2Instances = append(orphaned.EC2Instances, instance)
		}
	}
	for _, fn := range inv.LambdaFunctions {
		if !activeSessionIDs[fn.Tags[session.TagSessionID]] {
			orphaned.LambdaFunctions = append(orphaned.LambdaFunctions, fn)
		}
	}

	orphaned.TotalEstimatedCost = HourlyCost(orphaned)

	return orphaned
}
