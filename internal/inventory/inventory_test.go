// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var launchTime = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

func labTags(sessionID string) []cfntypes.Tag {
	return []cfntypes.Tag{
		{Key: aws.String("Project"), Value: aws.String("AWSDevOpsLabs")},
		{Key: aws.String("ManagedBy"), Value: aws.String("LabManager")},
		{Key: aws.String("SessionId"), Value: aws.String(sessionID)},
	}
}

type fakeCloudFormation struct {
	summaries []cfntypes.StackSummary
	tags      map[string][]cfntypes.Tag
	err       error
}

func (f *fakeCloudFormation) ListStacks(_ context.Context, _ *cloudformation.ListStacksInput,
	_ ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cloudformation.ListStacksOutput{StackSummaries: f.summaries}, nil
}

func (f *fakeCloudFormation) DescribeStacks(_ context.Context, params *cloudformation.DescribeStacksInput,
	_ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	name := aws.ToString(params.StackName)
	return &cloudformation.DescribeStacksOutput{
		Stacks: []cfntypes.Stack{{StackName: params.StackName, Tags: f.tags[name]}},
	}, nil
}

type fakeEC2 struct {
	instances []ec2types.Instance
	err       error
}

func (f *fakeEC2) DescribeInstances(_ context.Context, _ *ec2.DescribeInstancesInput,
	_ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: f.instances}},
	}, nil
}

type fakeLambda struct {
	functions []lambdaFunction
	err       error
}

type lambdaFunction struct {
	name string
	arn  string
	tags map[string]string
}

func (f *fakeLambda) ListFunctions(_ context.Context, _ *lambda.ListFunctionsInput,
	_ ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &lambda.ListFunctionsOutput{}
	for _, fn := range f.functions {
		out.Functions = append(out.Functions, lambdatypes.FunctionConfiguration{
			FunctionName: aws.String(fn.name),
			FunctionArn:  aws.String(fn.arn),
			Runtime:      lambdatypes.RuntimePython312,
		})
	}
	return out, nil
}

func (f *fakeLambda) ListTags(_ context.Context, params *lambda.ListTagsInput,
	_ ...func(*lambda.Options)) (*lambda.ListTagsOutput, error) {
	for _, fn := range f.functions {
		if fn.arn == aws.ToString(params.Resource) {
			return &lambda.ListTagsOutput{Tags: fn.tags}, nil
		}
	}
	return nil, fmt.Errorf("function not found")
}

func ec2Tags(sessionID string) []ec2types.Tag {
	return []ec2types.Tag{
		{Key: aws.String("Project"), Value: aws.String("AWSDevOpsLabs")},
		{Key: aws.String("SessionId"), Value: aws.String(sessionID)},
	}
}

func runningInstance(id, instanceType, sessionID string) ec2types.Instance {
	return ec2types.Instance{
		InstanceId:   aws.String(id),
		InstanceType: ec2types.InstanceType(instanceType),
		State:        &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
		LaunchTime:   aws.Time(launchTime),
		Tags:         ec2Tags(sessionID),
	}
}

func TestCollect(t *testing.T) {
	sid := "iam-basics-20260115-093000"

	cfn := &fakeCloudFormation{
		summaries: []cfntypes.StackSummary{
			{
				StackName:    aws.String("lab-stack"),
				StackStatus:  cfntypes.StackStatusCreateComplete,
				CreationTime: aws.Time(launchTime),
			},
			{
				StackName:    aws.String("unrelated-stack"),
				StackStatus:  cfntypes.StackStatusCreateComplete,
				CreationTime: aws.Time(launchTime),
			},
		},
		tags: map[string][]cfntypes.Tag{
			"lab-stack": labTags(sid),
			"unrelated-stack": {
				{Key: aws.String("Team"), Value: aws.String("platform")},
			},
		},
	}

	ec2Client := &fakeEC2{
		instances: []ec2types.Instance{
			runningInstance("i-111", "t3.micro", sid),
			runningInstance("i-222", "t3.micro", "other-session"),
			{
				// Terminated instances are excluded even when tagged.
				InstanceId:   aws.String("i-333"),
				InstanceType: ec2types.InstanceTypeT3Micro,
				State:        &ec2types.InstanceState{Name: ec2types.InstanceStateNameTerminated},
				Tags:         ec2Tags(sid),
			},
		},
	}

	lambdaClient := &fakeLambda{
		functions: []lambdaFunction{
			{name: "lab-fn", arn: "arn:fn:1", tags: map[string]string{
				"Project": "AWSDevOpsLabs", "SessionId": sid,
			}},
			{name: "other-fn", arn: "arn:fn:2", tags: map[string]string{}},
		},
	}

	inv := Collect(context.Background(), Clients{
		CloudFormation: cfn,
		EC2:            ec2Client,
		Lambda:         lambdaClient,
	}, sid)

	require.Len(t, inv.CloudFormationStacks, 1)
	assert.Equal(t, "lab-stack", inv.CloudFormationStacks[0].Name)
	assert.Equal(t, "CREATE_COMPLETE", inv.CloudFormationStacks[0].Status)

	require.Len(t, inv.EC2Instances, 1)
	assert.Equal(t, "i-111", inv.EC2Instances[0].InstanceID)
	assert.Equal(t, "running", inv.EC2Instances[0].State)

	require.Len(t, inv.LambdaFunctions, 1)
	assert.Equal(t, "lab-fn", inv.LambdaFunctions[0].Name)

	assert.Equal(t, 3, inv.Count())
	// base 0.50 + t3.micro 0.0104 + one function 0.01, rounded.
	assert.InDelta(t, 0.52, inv.TotalEstimatedCost, 0.001)
}

func TestCollect_NoSessionFilter(t *testing.T) {
	ec2Client := &fakeEC2{
		instances: []ec2types.Instance{
			runningInstance("i-111", "t3.micro", "session-a"),
			runningInstance("i-222", "t3.small", "session-b"),
		},
	}

	inv := Collect(context.Background(), Clients{EC2: ec2Client}, "")

	assert.Len(t, inv.EC2Instances, 2)
}

func TestCollect_ServiceFailureDegrades(t *testing.T) {
	cfn := &fakeCloudFormation{err: fmt.Errorf("throttled")}
	ec2Client := &fakeEC2{
		instances: []ec2types.Instance{runningInstance("i-111", "t3.micro", "sid")},
	}

	inv := Collect(context.Background(), Clients{
		CloudFormation: cfn,
		EC2:            ec2Client,
	}, "")

	// CloudFormation failed but the EC2 half of the inventory survived.
	assert.Empty(t, inv.CloudFormationStacks)
	assert.Len(t, inv.EC2Instances, 1)
}

func TestCollect_NilClients(t *testing.T) {
	inv := Collect(context.Background(), Clients{}, "")

	assert.Equal(t, 0, inv.Count())
	assert.InDelta(t, baseHourlyCost, inv.TotalEstimatedCost, 0.001)
}

func TestIsLabResource(t *testing.T) {
	tests := []struct {
		name      string
		tags      map[string]string
		sessionID string
		want      bool
	}{
		{
			name: "project tag matches",
			tags: map[string]string{"Project": "AWSDevOpsLabs"},
			want: true,
		},
		{
			name: "wrong project",
			tags: map[string]string{"Project": "SomethingElse"},
			want: false,
		},
		{
			name: "no tags",
			tags: map[string]string{},
			want: false,
		},
		{
			name:      "session matches",
			tags:      map[string]string{"Project": "AWSDevOpsLabs", "SessionId": "s-1"},
			sessionID: "s-1",
			want:      true,
		},
		{
			name:      "session mismatch",
			tags:      map[string]string{"Project": "AWSDevOpsLabs", "SessionId": "s-2"},
			sessionID: "s-1",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLabResource(tt.tags, tt.sessionID))
		})
	}
}

func TestHourlyCost(t *testing.T) {
	inv := &Inventory{
		EC2Instances: []Instance{
			{InstanceID: "i-1", InstanceType: "m5.large", State: "running"},
			{InstanceID: "i-2", InstanceType: "t3.micro", State: "stopped"},
		},
		LambdaFunctions: []Function{{Name: "fn-1"}, {Name: "fn-2"}},
	}

	// base 0.50 + m5.large 0.096 + two functions 0.02; stopped instance free.
	assert.InDelta(t, 0.62, HourlyCost(inv), 0.001)
}

func TestOrphans(t *testing.T) {
	inv := &Inventory{
		CloudFormationStacks: []Stack{
			{Name: "active-stack", Tags: map[string]string{"SessionId": "s-active"}},
			{Name: "orphan-stack", Tags: map[string]string{"SessionId": "s-gone"}},
		},
		EC2Instances: []Instance{
			{InstanceID: "i-1", State: "running", InstanceType: "t3.micro",
				Tags: map[string]string{"SessionId": "s-active"}},
			{InstanceID: "i-2", State: "running", InstanceType: "t3.micro",
				Tags: map[string]string{}},
		},
		LambdaFunctions: []Function{
			{Name: "fn-1", Tags: map[string]string{"SessionId": "s-gone"}},
		},
	}

	orphaned := Orphans(inv, map[string]bool{"s-active": true})

	require.Len(t, orphaned.CloudFormationStacks, 1)
	assert.Equal(t, "orphan-stack", orphaned.CloudFormationStacks[0].Name)

	// The untagged instance is an orphan too.
	require.Len(t, orphaned.EC2Instances, 1)
	assert.Equal(t, "i-2", orphaned.EC2Instances[0].InstanceID)

	require.Len(t, orphaned.LambdaFunctions, 1)
	assert.Greater(t, orphaned.TotalEstimatedCost, 0.0)
}
