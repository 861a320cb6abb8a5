// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package rules evaluates the lab's custom AWS Config rules locally against
// a configuration-item JSON document. The same predicates run in Lambda when
// the monitoring lab deploys them; here they run offline so a learner can
// test a configuration item before deploying.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Compliance types mirror the AWS Config evaluation vocabulary.
const (
	Compliant     = "COMPLIANT"
	NonCompliant  = "NON_COMPLIANT"
	NotApplicable = "NOT_APPLICABLE"
)

// Rule names.
const (
	RuleRequiredTags     = "required-tags"
	RuleS3PublicAccess   = "s3-public-access"
	RuleEC2InstanceTypes = "ec2-instance-types"
	RuleIAMUserMFA       = "iam-user-mfa"
)

// requiredTags are the tags the required-tags rule demands.
var requiredTags = []string{"Environment", "Project", "Owner"}

// taggableTypes are the resource types the required-tags rule applies to.
var taggableTypes = []string{
	"AWS::EC2::Instance",
	"AWS::EC2::Volume",
	"AWS::S3::Bucket",
	"AWS::RDS::DBInstance",
	"AWS::DynamoDB::Table",
}

const defaultApprovedInstanceTypes = "t2.micro,t3.micro,t3.small"

// Evaluation is the outcome of one rule against one configuration item.
type Evaluation struct {
	RuleName          string `json:"rule_name"`
	ResourceType      string `json:"resource_type"`
	ResourceID        string `json:"resource_id"`
	ComplianceType    string `json:"compliance_type"`
	Annotation        string `json:"annotation"`
	OrderingTimestamp string `json:"ordering_timestamp,omitempty"`
}

// Names returns the known rule names, sorted.
func Names() []string {
	names := []string{RuleRequiredTags, RuleS3PublicAccess, RuleEC2InstanceTypes, RuleIAMUserMFA}
	sort.Strings(names)
	return names
}

// Evaluate runs one rule against a configuration-item document. The document
// may be a bare configuration item or an invoking-event wrapper holding one
// under "configurationItem".
func Evaluate(ruleName string, doc []byte, params map[string]string) (*Evaluation, error) {
	item := gjson.ParseBytes(doc)
	if wrapped := item.Get("configurationItem"); wrapped.Exists() {
		item = wrapped
	}
	if !item.Get("resourceType").Exists() {
		return nil, fmt.Errorf("document has no configuration item")
	}

	eval := &Evaluation{
		RuleName:          ruleName,
		ResourceType:      item.Get("resourceType").String(),
		ResourceID:        item.Get("resourceId").String(),
		OrderingTimestamp: item.Get("configurationItemCaptureTime").String(),
	}

	if item.Get("configurationItemStatus").String() == "ResourceDeleted" {
		eval.ComplianceType = NotApplicable
		eval.Annotation = "The resource was deleted."
		return eval, nil
	}

	switch ruleName {
	case RuleRequiredTags:
		evaluateRequiredTags(item, eval)
	case RuleS3PublicAccess:
		evaluateS3PublicAccess(item, eval)
	case RuleEC2InstanceTypes:
		evaluateEC2InstanceTypes(item, params, eval)
	case RuleIAMUserMFA:
		evaluateIAMUserMFA(item, eval)
	default:
		return nil, fmt.Errorf("unknown rule %q (known: %s)", ruleName, strings.Join(Names(), ", "))
	}

	return eval, nil
}

func evaluateRequiredTags(item gjson.Result, eval *Evaluation) {
	if !contains(taggableTypes, eval.ResourceType) {
		eval.ComplianceType = NotApplicable
		eval.Annotation = "Resource type is not subject to tag requirements."
		return
	}

	present := map[string]bool{}
	item.Get("configuration.tags").ForEach(func(_, tag gjson.Result) bool {
		present[tag.Get("key").String()] = true
		return true
	})

	eval.ComplianceType = Compliant
	for _, tag := range requiredTags {
		if !present[tag] {
			eval.ComplianceType = NonCompliant
			break
		}
	}

	verb := "has"
	if eval.ComplianceType != Compliant {
		verb = "is missing"
	}
	eval.Annotation = fmt.Sprintf("Resource %s required tags: %s", verb, strings.Join(requiredTags, ", "))
}

// evaluateS3PublicAccess inspects the bucket's supplementary configuration:
// the public access block must be fully enabled, the bucket policy must not
// allow a "*" principal, and the ACL must not grant to AllUsers or
// AuthenticatedUsers.
func evaluateS3PublicAccess(item gjson.Result, eval *Evaluation) {
	if eval.ResourceType != "AWS::S3::Bucket" {
		eval.ComplianceType = NotApplicable
		eval.Annotation = "Resource is not an S3 bucket."
		return
	}

	eval.ComplianceType = Compliant

	block := item.Get("supplementaryConfiguration.PublicAccessBlockConfiguration")
	if !block.Exists() ||
		!block.Get("blockPublicAcls").Bool() ||
		!block.Get("ignorePublicAcls").Bool() ||
		!block.Get("blockPublicPolicy").Bool() ||
		!block.Get("restrictPublicBuckets").Bool() {
		eval.ComplianceType = NonCompliant
	}

	if eval.ComplianceType == Compliant {
		policy := item.Get("supplementaryConfiguration.BucketPolicy.policyText")
		if policy.Exists() && policyAllowsPublic(policy.String()) {
			eval.ComplianceType = NonCompliant
		}
	}

	if eval.ComplianceType == Compliant {
		grants := item.Get("supplementaryConfiguration.AccessControlList.Grants")
		grants.ForEach(func(_, grant gjson.Result) bool {
			uri := grant.Get("Grantee.URI").String()
			if strings.Contains(uri, "AllUsers") || strings.Contains(uri, "AuthenticatedUsers") {
				eval.ComplianceType = NonCompliant
				return false
			}
			return true
		})
	}

	if eval.ComplianceType == Compliant {
		eval.Annotation = "S3 bucket has public access blocked"
	} else {
		eval.Annotation = "S3 bucket has public access enabled"
	}
}

// policyAllowsPublic reports whether a bucket policy has an Allow statement
// with a wildcard principal.
func policyAllowsPublic(policy string) bool {
	public := false
	gjson.Get(policy, "Statement").ForEach(func(_, statement gjson.Result) bool {
		if statement.Get("Effect").String() != "Allow" {
			return true
		}
		principal := statement.Get("Principal")
		if principal.String() == "*" || principal.Get("AWS").String() == "*" {
			public = true
			return false
		}
		return true
	})
	return public
}

func evaluateEC2InstanceTypes(item gjson.Result, params map[string]string, eval *Evaluation) {
	if eval.ResourceType != "AWS::EC2::Instance" {
		eval.ComplianceType = NotApplicable
		eval.Annotation = "Resource is not an EC2 instance."
		return
	}

	approvedSpec := params["approvedInstanceTypes"]
	if approvedSpec == "" {
		approvedSpec = defaultApprovedInstanceTypes
	}
	approved := strings.Split(approvedSpec, ",")

	instanceType := item.Get("configuration.instanceType").String()
	if contains(approved, instanceType) {
		eval.ComplianceType = Compliant
		eval.Annotation = fmt.Sprintf("EC2 instance type %s is approved", instanceType)
	} else {
		eval.ComplianceType = NonCompliant
		eval.Annotation = fmt.Sprintf("EC2 instance type %s is not in the approved list: %s",
			instanceType, strings.Join(approved, ", "))
	}
}

// evaluateIAMUserMFA reads the user's MFA devices from the configuration
// item. The deployed rule asks IAM live; offline, the caller supplies the
// devices under configuration.mfaDevices.
func evaluateIAMUserMFA(item gjson.Result, eval *Evaluation) {
	if eval.ResourceType != "AWS::IAM::User" {
		eval.ComplianceType = NotApplicable
		eval.Annotation = "Resource is not an IAM user."
		return
	}

	if item.Get("resourceName").String() == "root" {
		eval.ComplianceType = NotApplicable
		eval.Annotation = "The root user is not evaluated."
		return
	}

	devices := item.Get("configuration.mfaDevices")
	if devices.IsArray() && len(devices.Array()) > 0 {
		eval.ComplianceType = Compliant
		eval.Annotation = "IAM user has MFA enabled"
	} else {
		eval.ComplianceType = NonCompliant
		eval.Annotation = "IAM user does not have MFA enabled"
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
