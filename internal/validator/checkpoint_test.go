// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labctl/labctl/internal/inventory"
)

func TestValidateCheckpoint_StackDeployed(t *testing.T) {
	inv := &inventory.Inventory{
		CloudFormationStacks: []inventory.Stack{
			{Name: "lab-stack", Status: "CREATE_COMPLETE"},
		},
	}

	result := ValidateCheckpoint("s-1", "stack_deployed", "cloudformation-nested-stacks", inv)

	assert.True(t, result.Valid)
	require.Len(t, result.Checks, 1)
	assert.Equal(t, "cloudformation_stack", result.Checks[0].Type)
	assert.Equal(t, StatusPassed, result.Checks[0].Status)
	assert.Equal(t, []string{"lab-stack"}, result.Checks[0].Details["stacks"])
}

func TestValidateCheckpoint_StackStatusFiltered(t *testing.T) {
	// A rolled-back stack does not satisfy the deployment checkpoint.
	inv := &inventory.Inventory{
		CloudFormationStacks: []inventory.Stack{
			{Name: "lab-stack", Status: "ROLLBACK_COMPLETE"},
		},
	}

	result := ValidateCheckpoint("s-1", "stack_deployed", "cloudformation-nested-stacks", inv)

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected 1 stack(s), found 0")
}

func TestValidateCheckpoint_NestedStacksNeedTwo(t *testing.T) {
	inv := &inventory.Inventory{
		CloudFormationStacks: []inventory.Stack{
			{Name: "parent", Status: "CREATE_COMPLETE"},
		},
	}

	result := ValidateCheckpoint("s-1", "nested_stacks", "cloudformation-nested-stacks", inv)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "expected 2 stack(s), found 1")
}

func TestValidateCheckpoint_InstancesRunning(t *testing.T) {
	inv := &inventory.Inventory{
		EC2Instances: []inventory.Instance{
			{InstanceID: "i-1", State: "running"},
			{InstanceID: "i-2", State: "stopped"},
		},
	}

	result := ValidateCheckpoint("s-1", "instances_running", "ec2-deployment-strategies", inv)

	assert.True(t, result.Valid)
	assert.Equal(t, []string{"i-1"}, result.Checks[0].Details["instances"])
}

func TestValidateCheckpoint_FunctionsDeployed(t *testing.T) {
	inv := &inventory.Inventory{
		LambdaFunctions: []inventory.Function{{Name: "handler"}},
	}

	result := ValidateCheckpoint("s-1", "functions_deployed", "serverless-api-basics", inv)

	assert.True(t, result.Valid)
	assert.Equal(t, "lambda_function", result.Checks[0].Type)
}

func TestValidateCheckpoint_DefaultRule(t *testing.T) {
	// Unknown lab/checkpoint combinations fall back to "anything exists".
	empty := &inventory.Inventory{}

	result := ValidateCheckpoint("s-1", "some_checkpoint", "iam-policy-basics", empty)

	assert.False(t, result.Valid)
	require.Len(t, result.Checks, 1)
	assert.Equal(t, "resource_count", result.Checks[0].Type)

	withResource := &inventory.Inventory{
		EC2Instances: []inventory.Instance{{InstanceID: "i-1", State: "running"}},
	}
	result = ValidateCheckpoint("s-1", "some_checkpoint", "iam-policy-basics", withResource)
	assert.True(t, result.Valid)
}

func TestValidateCheckpoint_NoInventory(t *testing.T) {
	result := ValidateCheckpoint("s-1", "stack_deployed", "cloudformation-nested-stacks", nil)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Checks)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "AWS credentials not available")
}
