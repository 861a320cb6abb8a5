// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/configservice"
)

// ComplianceReader is the AWS Config surface the compliance summary needs.
type ComplianceReader interface {
	DescribeComplianceByConfigRule(ctx context.Context,
		params *configservice.DescribeComplianceByConfigRuleInput,
		optFns ...func(*configservice.Options)) (*configservice.DescribeComplianceByConfigRuleOutput, error)
}

// RuleCompliance is the deployed compliance state of one Config rule.
type RuleCompliance struct {
	RuleName         string `json:"rule_name"`
	ComplianceType   string `json:"compliance_type"`
	ContributorCount int32  `json:"contributor_count"`
	CapExceeded      bool   `json:"cap_exceeded"`
}

// ComplianceByRule returns the compliance summary for every deployed Config
// rule, optionally narrowed to the named rules.
func ComplianceByRule(ctx context.Context, client ComplianceReader, ruleNames []string) ([]RuleCompliance, error) {
	var results []RuleCompliance
	var nextToken *string

	for {
		out, err := client.DescribeComplianceByConfigRule(ctx,
			&configservice.DescribeComplianceByConfigRuleInput{
				ConfigRuleNames: ruleNames,
				NextToken:       nextToken,
			})
		if err != nil {
			return nil, fmt.Errorf("compliance by rule: %w", err)
		}

		for _, rule := range out.ComplianceByConfigRules {
			rc := RuleCompliance{
				RuleName: aws.ToString(rule.ConfigRuleName),
			}
			if rule.Compliance != nil {
				rc.ComplianceType = string(rule.Compliance.ComplianceType)
				if count := rule.Compliance.ComplianceContributorCount; count != nil {
					rc.ContributorCount = count.CappedCount
					rc.CapExceeded = count.CapExceeded
				}
			}
			results = append(results, rc)
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return results, nil
}
