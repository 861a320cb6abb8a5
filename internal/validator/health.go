// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package validator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/tidwall/gjson"

	"github.com/labctl/labctl/internal/inventory"
	"github.com/labctl/labctl/internal/session"
)

// DriftDetector is the CloudFormation surface the drift check needs.
type DriftDetector interface {
	DetectStackDrift(ctx context.Context, params *cloudformation.DetectStackDriftInput,
		optFns ...func(*cloudformation.Options)) (*cloudformation.DetectStackDriftOutput, error)
	DescribeStackDriftDetectionStatus(ctx context.Context,
		params *cloudformation.DescribeStackDriftDetectionStatusInput,
		optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackDriftDetectionStatusOutput, error)
}

// SecurityGroupDescriber is the EC2 surface the security-group check needs.
type SecurityGroupDescriber interface {
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput,
		optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
}

// MetricReader is the CloudWatch surface the error-rate check needs.
type MetricReader interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput,
		optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// BucketInspector is the S3 surface the bucket checks need.
type BucketInspector interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput,
		optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput,
		optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
	GetBucketEncryption(ctx context.Context, params *s3.GetBucketEncryptionInput,
		optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error)
	GetPublicAccessBlock(ctx context.Context, params *s3.GetPublicAccessBlockInput,
		optFns ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error)
}

// RoleInspector is the IAM surface the policy checks need.
type RoleInspector interface {
	ListRoles(ctx context.Context, params *iam.ListRolesInput,
		optFns ...func(*iam.Options)) (*iam.ListRolesOutput, error)
	ListRoleTags(ctx context.Context, params *iam.ListRoleTagsInput,
		optFns ...func(*iam.Options)) (*iam.ListRoleTagsOutput, error)
	ListAttachedRolePolicies(ctx context.Context, params *iam.ListAttachedRolePoliciesInput,
		optFns ...func(*iam.Options)) (*iam.ListAttachedRolePoliciesOutput, error)
	GetPolicy(ctx context.Context, params *iam.GetPolicyInput,
		optFns ...func(*iam.Options)) (*iam.GetPolicyOutput, error)
	GetPolicyVersion(ctx context.Context, params *iam.GetPolicyVersionInput,
		optFns ...func(*iam.Options)) (*iam.GetPolicyVersionOutput, error)
}

// Clients bundles the optional AWS surfaces the health checks reach for.
// A nil field disables the corresponding check.
type Clients struct {
	CloudFormation DriftDetector
	EC2            SecurityGroupDescriber
	CloudWatch     MetricReader
	S3             BucketInspector
	IAM            RoleInspector
}

// HealthCheck is the outcome of one health-check family.
type HealthCheck struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details"`
	Issues  []string       `json:"issues"`
}

// Report is a full session validation report.
type Report struct {
	Timestamp     time.Time               `json:"timestamp"`
	SessionID     string                  `json:"session_id"`
	LabID         string                  `json:"lab_id,omitempty"`
	OverallStatus string                  `json:"overall_status"`
	Checks        map[string]*HealthCheck `json:"checks"`
	Errors        []string                `json:"errors"`
	Warnings      []string                `json:"warnings"`
}

func newHealthCheck() *HealthCheck {
	return &HealthCheck{
		Status:  StatusPassed,
		Details: map[string]any{},
		Issues:  []string{},
	}
}

func (hc *HealthCheck) issue(status, format string, args ...any) {
	hc.Issues = append(hc.Issues, fmt.Sprintf(format, args...))
	if worse(status, hc.Status) {
		hc.Status = status
	}
}

// worse reports whether status a outranks status b in severity.
func worse(a, b string) bool {
	rank := map[string]int{StatusPassed: 0, StatusWarning: 1, StatusFailed: 2, StatusError: 3}
	return rank[a] > rank[b]
}

// Run executes every enabled health check against a collected inventory and
// the extra AWS surfaces in clients. A nil inventory means AWS was
// unreachable; the report carries that as its only (error) finding.
func Run(ctx context.Context, clients Clients, settings Settings,
	sessionID, labID string, inv *inventory.Inventory, now time.Time) *Report {
	report := &Report{
		Timestamp: now,
		SessionID: sessionID,
		LabID:     labID,
		Checks:    map[string]*HealthCheck{},
		Errors:    []string{},
		Warnings:  []string{},
	}

	if inv == nil {
		report.OverallStatus = StatusError
		report.Errors = append(report.Errors, "AWS credentials not available")
		return report
	}

	if settings.CloudFormation.Enabled {
		report.Checks["cloudformation"] = checkStacks(ctx, clients.CloudFormation, settings.CloudFormation, inv)
	}
	if settings.EC2.Enabled {
		report.Checks["ec2"] = checkInstances(ctx, clients.EC2, settings.EC2, inv)
	}
	if settings.Lambda.Enabled {
		report.Checks["lambda"] = checkFunctions(ctx, clients.CloudWatch, settings.Lambda, inv, now)
	}
	if settings.S3.Enabled && clients.S3 != nil {
		report.Checks["s3"] = checkBuckets(ctx, clients.S3, settings.S3, sessionID)
	}
	if settings.IAM.Enabled && clients.IAM != nil {
		report.Checks["iam"] = checkRoles(ctx, clients.IAM, settings.IAM, sessionID)
	}
	if settings.Cost.Enabled {
		report.Checks["cost"] = checkCost(settings.Cost, inv)
	}

	finalize(report)

	return report
}

func checkStacks(ctx context.Context, client DriftDetector,
	settings CloudFormationSettings, inv *inventory.Inventory) *HealthCheck {
	hc := newHealthCheck()
	hc.Details["stack_count"] = len(inv.CloudFormationStacks)

	for _, stack := range inv.CloudFormationStacks {
		if !strings.HasSuffix(stack.Status, "_COMPLETE") {
			hc.issue(StatusFailed, "stack %s status: %s", stack.Name, stack.Status)
		}

		for _, tag := range settings.RequiredTags {
			if _, ok := stack.Tags[tag]; !ok {
				hc.issue(StatusWarning, "stack %s missing required tag: %s", stack.Name, tag)
			}
		}

		if settings.CheckDrift && client != nil && stackDrifted(ctx, client, stack.Name) {
			hc.issue(StatusWarning, "stack %s has configuration drift", stack.Name)
		}
	}

	return hc
}

// stackDrifted kicks off drift detection and reads its status once. Drift
// detection is not available for every stack, so failures are swallowed.
func stackDrifted(ctx context.Context, client DriftDetector, stackName string) bool {
	detect, err := client.DetectStackDrift(ctx, &cloudformation.DetectStackDriftInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return false
	}

	status, err := client.DescribeStackDriftDetectionStatus(ctx,
		&cloudformation.DescribeStackDriftDetectionStatusInput{
			StackDriftDetectionId: detect.StackDriftDetectionId,
		})
	if err != nil {
		return false
	}

	return status.StackDriftStatus == cfntypes.StackDriftStatusDrifted
}

func checkInstances(ctx context.Context, client SecurityGroupDescriber,
	settings EC2Settings, inv *inventory.Inventory) *HealthCheck {
	hc := newHealthCheck()
	hc.Details["instance_count"] = len(inv.EC2Instances)

	for _, instance := range inv.EC2Instances {
		if instance.State != "running" && instance.State != "stopped" {
			hc.issue(StatusWarning, "instance %s in unexpected state: %s",
				instance.InstanceID, instance.State)
		}

		if len(settings.AllowedInstanceTypes) > 0 &&
			!contains(settings.AllowedInstanceTypes, instance.InstanceType) {
			hc.issue(StatusWarning, "instance %s using non-approved type: %s",
				instance.InstanceID, instance.InstanceType)
		}

		if settings.CheckSecurityGroups && client != nil {
			for _, sgID := range instance.SecurityGroups {
				if openToWorld(ctx, client, sgID) {
					hc.issue(StatusWarning, "instance %s has overly permissive security group: %s",
						instance.InstanceID, sgID)
				}
			}
		}
	}

	return hc
}

// openToWorld reports whether a security group has an ingress rule open to
// 0.0.0.0/0.
func openToWorld(ctx context.Context, client SecurityGroupDescriber, sgID string) bool {
	out, err := client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{sgID},
	})
	if err != nil || len(out.SecurityGroups) == 0 {
		return false
	}

	for _, rule := range out.SecurityGroups[0].IpPermissions {
		for _, ipRange := range rule.IpRanges {
			if aws.ToString(ipRange.CidrIp) == "0.0.0.0/0" {
				return true
			}
		}
	}

	return false
}

func checkFunctions(ctx context.Context, client MetricReader,
	settings LambdaSettings, inv *inventory.Inventory, now time.Time) *HealthCheck {
	hc := newHealthCheck()
	hc.Details["function_count"] = len(inv.LambdaFunctions)

	for _, fn := range inv.LambdaFunctions {
		if fn.State != "" && fn.State != "Active" {
			hc.issue(StatusWarning, "function %s not in Active state", fn.Name)
		}

		if settings.CheckErrorRates && client != nil {
			rate := lambdaErrorRate(ctx, client, fn.Name, now)
			if rate > settings.MaxErrorRate {
				hc.issue(StatusWarning, "function %s error rate too high: %.2f%%", fn.Name, rate)
			}
		}
	}

	return hc
}

// lambdaErrorRate computes the error percentage over the last hour from the
// AWS/Lambda Invocations and Errors metrics.
func lambdaErrorRate(ctx context.Context, client MetricReader, functionName string, now time.Time) float64 {
	sum := func(metric string) (float64, error) {
		out, err := client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
			Namespace:  aws.String("AWS/Lambda"),
			MetricName: aws.String(metric),
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String("FunctionName"), Value: aws.String(functionName)},
			},
			StartTime:  aws.Time(now.Add(-time.Hour)),
			EndTime:    aws.Time(now),
			Period:     aws.Int32(3600),
			Statistics: []cwtypes.Statistic{cwtypes.StatisticSum},
		})
		if err != nil {
			return 0, err
		}
		var total float64
		for _, point := range out.Datapoints {
			total += aws.ToFloat64(point.Sum)
		}
		return total, nil
	}

	invocations, err := sum("Invocations")
	if err != nil || invocations == 0 {
		return 0
	}
	failures, err := sum("Errors")
	if err != nil {
		return 0
	}

	return failures / invocations * 100
}

func checkBuckets(ctx context.Context, client BucketInspector,
	settings S3Settings, sessionID string) *HealthCheck {
	hc := newHealthCheck()

	buckets, err := sessionBuckets(ctx, client, sessionID)
	if err != nil {
		hc.issue(StatusError, "S3 validation error: %v", err)
		return hc
	}
	hc.Details["bucket_count"] = len(buckets)

	for _, bucket := range buckets {
		if settings.CheckEncryption && !bucketEncrypted(ctx, client, bucket) {
			hc.issue(StatusWarning, "bucket %s does not have encryption enabled", bucket)
		}
		if settings.CheckPublic && bucketPublic(ctx, client, bucket) {
			hc.issue(StatusWarning, "bucket %s may have public access enabled", bucket)
		}
	}

	return hc
}

// sessionBuckets lists the buckets whose SessionId tag matches. Buckets
// without tags are skipped.
func sessionBuckets(ctx context.Context, client BucketInspector, sessionID string) ([]string, error) {
	out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, err
	}

	var names []string
	for _, bucket := range out.Buckets {
		name := aws.ToString(bucket.Name)
		tagging, err := client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{
			Bucket: aws.String(name),
		})
		if err != nil {
			continue
		}
		for _, tag := range tagging.TagSet {
			if aws.ToString(tag.Key) == session.TagSessionID && aws.ToString(tag.Value) == sessionID {
				names = append(names, name)
				break
			}
		}
	}

	return names, nil
}

func bucketEncrypted(ctx context.Context, client BucketInspector, bucket string) bool {
	_, err := client.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ServerSideEncryptionConfigurationNotFoundError" {
		return false
	}

	// Assume encrypted when the check itself fails.
	log.WithError(err).Debugf("encryption check failed for bucket %s", bucket)
	return true
}

func bucketPublic(ctx context.Context, client BucketInspector, bucket string) bool {
	out, err := client.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{
		Bucket: aws.String(bucket),
	})
	if err != nil || out.PublicAccessBlockConfiguration == nil {
		// Assume public when the check itself fails.
		return true
	}

	cfg := out.PublicAccessBlockConfiguration
	blocked := aws.ToBool(cfg.BlockPublicAcls) &&
		aws.ToBool(cfg.BlockPublicPolicy) &&
		aws.ToBool(cfg.IgnorePublicAcls) &&
		aws.ToBool(cfg.RestrictPublicBuckets)

	return !blocked
}

func checkRoles(ctx context.Context, client RoleInspector,
	settings IAMSettings, sessionID string) *HealthCheck {
	hc := newHealthCheck()

	roles, err := sessionRoles(ctx, client, sessionID)
	if err != nil {
		hc.issue(StatusError, "IAM validation error: %v", err)
		return hc
	}
	hc.Details["role_count"] = len(roles)

	if !settings.CheckPolicyCompliance {
		return hc
	}

	for _, role := range roles {
		if roleOverlyPermissive(ctx, client, role) {
			hc.issue(StatusWarning, "role %s may have overly permissive policies", role)
		}
	}

	return hc
}

func sessionRoles(ctx context.Context, client RoleInspector, sessionID string) ([]string, error) {
	out, err := client.ListRoles(ctx, &iam.ListRolesInput{})
	if err != nil {
		return nil, err
	}

	var names []string
	for _, role := range out.Roles {
		name := aws.ToString(role.RoleName)
		tags, err := client.ListRoleTags(ctx, &iam.ListRoleTagsInput{
			RoleName: aws.String(name),
		})
		if err != nil {
			continue
		}
		for _, tag := range tags.Tags {
			if aws.ToString(tag.Key) == session.TagSessionID && aws.ToString(tag.Value) == sessionID {
				names = append(names, name)
				break
			}
		}
	}

	return names, nil
}

// roleOverlyPermissive reports whether any customer-managed policy attached
// to the role allows Action:* on Resource:*. AWS-managed policies are
// skipped.
func roleOverlyPermissive(ctx context.Context, client RoleInspector, roleName string) bool {
	attached, err := client.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{
		RoleName: aws.String(roleName),
	})
	if err != nil {
		return false
	}

	for _, policy := range attached.AttachedPolicies {
		arn := aws.ToString(policy.PolicyArn)
		if strings.HasPrefix(arn, "arn:aws:iam::aws:policy/") {
			continue
		}

		doc, err := policyDocument(ctx, client, arn)
		if err != nil {
			continue
		}
		if policyAllowsWildcard(doc) {
			return true
		}
	}

	return false
}

// policyDocument fetches the default version of a policy. The document comes
// back URL-encoded.
func policyDocument(ctx context.Context, client RoleInspector, policyArn string) (string, error) {
	policy, err := client.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: aws.String(policyArn)})
	if err != nil {
		return "", err
	}

	version, err := client.GetPolicyVersion(ctx, &iam.GetPolicyVersionInput{
		PolicyArn: aws.String(policyArn),
		VersionId: policy.Policy.DefaultVersionId,
	})
	if err != nil {
		return "", err
	}

	return url.QueryUnescape(aws.ToString(version.PolicyVersion.Document))
}

// policyAllowsWildcard reports whether a policy document has an Allow
// statement with a wildcard action against Resource "*". Action and Resource
// may each be a string or an array.
func policyAllowsWildcard(doc string) bool {
	statements := gjson.Get(doc, "Statement")
	if !statements.Exists() {
		return false
	}

	permissive := false
	statements.ForEach(func(_, statement gjson.Result) bool {
		if statement.Get("Effect").String() != "Allow" {
			return true
		}
		if !valueHas(statement.Get("Resource"), "*") {
			return true
		}
		if valueHas(statement.Get("Action"), "*") {
			permissive = true
			return false
		}
		return true
	})

	return permissive
}

// valueHas reports whether a scalar-or-array JSON value contains want.
func valueHas(value gjson.Result, want string) bool {
	if value.IsArray() {
		for _, item := range value.Array() {
			if item.String() == want {
				return true
			}
		}
		return false
	}
	return value.String() == want
}

func checkCost(settings CostSettings, inv *inventory.Inventory) *HealthCheck {
	hc := newHealthCheck()
	hc.Details["estimated_hourly_cost"] = inv.TotalEstimatedCost

	switch {
	case inv.TotalEstimatedCost > settings.MaxHourlyCost:
		hc.issue(StatusFailed, "estimated cost $%.2f/hour exceeds limit $%.2f/hour",
			inv.TotalEstimatedCost, settings.MaxHourlyCost)
	case inv.TotalEstimatedCost > settings.MaxHourlyCost*settings.AlertThreshold:
		hc.issue(StatusWarning, "estimated cost $%.2f/hour approaching limit $%.2f/hour",
			inv.TotalEstimatedCost, settings.MaxHourlyCost)
	}

	return hc
}

// finalize rolls per-check statuses up into the overall status and collects
// issues into the report's error and warning lists.
func finalize(report *Report) {
	report.OverallStatus = StatusPassed

	for name, hc := range report.Checks {
		if worse(hc.Status, report.OverallStatus) {
			report.OverallStatus = hc.Status
		}
		for _, issue := range hc.Issues {
			switch hc.Status {
			case StatusError, StatusFailed:
				report.Errors = append(report.Errors, name+": "+issue)
			case StatusWarning:
				report.Warnings = append(report.Warnings, name+": "+issue)
			}
		}
	}
}
