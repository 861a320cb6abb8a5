// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package pricing estimates lab costs from published on-demand rates and
// monthly Free Tier allowances. Estimates are deliberately coarse. They exist
// to warn a student before a lab gets expensive, not to reconcile a bill.
package pricing

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Monthly Free Tier allowances.
const (
	FreeTierEC2Hours       = 750.0
	FreeTierS3GB           = 5.0
	FreeTierLambdaRequests = 1000000.0
	FreeTierCodeBuildMins  = 100.0
)

// lambdaRequestsPerHour is the assumed Lambda invocation volume for a lab.
const lambdaRequestsPerHour = 10000.0

// FreeTierLimits maps service name to its monthly allowance with unit labels
// suitable for display.
func FreeTierLimits() map[string]string {
	return map[string]string{
		"EC2":       fmt.Sprintf("%.0f hours (t2.micro/t3.micro)", FreeTierEC2Hours),
		"S3":        fmt.Sprintf("%.0f GB storage", FreeTierS3GB),
		"Lambda":    fmt.Sprintf("%.0f requests", FreeTierLambdaRequests),
		"CodeBuild": fmt.Sprintf("%.0f build minutes", FreeTierCodeBuildMins),
	}
}

// fallbackRates are on-demand USD rates used when the live pricing API is
// unavailable. Units vary per service: EC2/RDS are per instance-hour
// (t3.micro and db.t3.micro), S3 is per GB-month, Lambda is per request,
// CodeBuild is per build minute, CloudWatch is basic monitoring per month.
var fallbackRates = map[string]float64{
	"EC2":          0.0104,
	"S3":           0.023,
	"LAMBDA":       0.0000002,
	"CODEBUILD":    0.005,
	"RDS":          0.017,
	"CLOUDWATCH":   0.30,
	"ECS":          0.02,
	"CODEPIPELINE": 1.0,
	"API GATEWAY":  0.0035,
}

// instanceRates are hourly on-demand USD rates per EC2 instance type, used
// when calculating the burn rate of a live inventory.
var instanceRates = map[string]float64{
	"t2.micro":  0.0116,
	"t2.small":  0.023,
	"t2.medium": 0.046,
	"t3.micro":  0.0104,
	"t3.small":  0.021,
	"t3.medium": 0.042,
	"m5.large":  0.096,
	"m5.xlarge": 0.192,
}

// defaultInstanceRate covers instance types missing from instanceRates.
const defaultInstanceRate = 0.05

// InstanceHourlyRate returns the on-demand hourly rate for an EC2 instance
// type, falling back to a conservative default for unknown types.
func InstanceHourlyRate(instanceType string) float64 {
	if rate, ok := instanceRates[instanceType]; ok {
		return rate
	}
	return defaultInstanceRate
}

// ServiceLine is the per-service detail within a Breakdown.
type ServiceLine struct {
	Service      string  `json:"service"`
	Usage        float64 `json:"usage"`
	UsageUnit    string  `json:"usage_unit"`
	FreeTierUsed float64 `json:"free_tier_used"`
	FreeCost     float64 `json:"free_cost"`
	StandardCost float64 `json:"standard_cost"`
}

// Breakdown is the result of a lab cost estimate.
type Breakdown struct {
	DurationHours    float64       `json:"duration_hours"`
	Services         []string      `json:"services"`
	FreeTierCost     float64       `json:"free_tier_cost"`
	StandardCost     float64       `json:"standard_cost"`
	PotentialSavings float64       `json:"potential_savings"`
	Lines            []ServiceLine `json:"breakdown"`
}

// EstimateLabCost estimates the cost of running the named services for the
// given duration, both at standard on-demand rates and under Free Tier
// allowances. Usage assumptions per service are fixed: one t3.micro for EC2,
// 1 GB for S3, 10k requests/hour for Lambda and 30 build minutes for
// CodeBuild.
func EstimateLabCost(services []string, durationHours float64) Breakdown {
	b := Breakdown{
		DurationHours: durationHours,
		Services:      services,
		Lines:         []ServiceLine{},
	}

	for _, service := range services {
		upper := strings.ToUpper(service)

		var line ServiceLine
		switch upper {
		case "EC2":
			overage := math.Max(0, durationHours-FreeTierEC2Hours)
			line = ServiceLine{
				Service:      service,
				Usage:        durationHours,
				UsageUnit:    "hours",
				FreeTierUsed: math.Min(durationHours, FreeTierEC2Hours),
				FreeCost:     overage * fallbackRates["EC2"],
				StandardCost: durationHours * fallbackRates["EC2"],
			}
		case "S3":
			// Assume 1 GB held for the lab duration, prorated monthly.
			const storageGB = 1.0
			months := durationHours / 24 / 30
			overage := math.Max(0, storageGB-FreeTierS3GB)
			line = ServiceLine{
				Service:      service,
				Usage:        storageGB,
				UsageUnit:    "GB",
				FreeTierUsed: math.Min(storageGB, FreeTierS3GB),
				FreeCost:     overage * fallbackRates["S3"] * months,
				StandardCost: storageGB * fallbackRates["S3"] * months,
			}
		case "LAMBDA":
			requests := lambdaRequestsPerHour * durationHours
			overage := math.Max(0, requests-FreeTierLambdaRequests)
			line = ServiceLine{
				Service:      service,
				Usage:        requests,
				UsageUnit:    "requests",
				FreeTierUsed: math.Min(requests, FreeTierLambdaRequests),
				FreeCost:     overage * fallbackRates["LAMBDA"],
				StandardCost: requests * fallbackRates["LAMBDA"],
			}
		case "CODEBUILD":
			const buildMinutes = 30.0
			overage := math.Max(0, buildMinutes-FreeTierCodeBuildMins)
			line = ServiceLine{
				Service:      service,
				Usage:        buildMinutes,
				UsageUnit:    "build minutes",
				FreeTierUsed: math.Min(buildMinutes, FreeTierCodeBuildMins),
				FreeCost:     overage * fallbackRates["CODEBUILD"],
				StandardCost: buildMinutes * fallbackRates["CODEBUILD"],
			}
		default:
			rate, ok := fallbackRates[upper]
			if !ok {
				continue
			}
			cost := durationHours * rate
			line = ServiceLine{
				Service:      service,
				Usage:        durationHours,
				UsageUnit:    "hours",
				FreeCost:     cost,
				StandardCost: cost,
			}
		}

		b.Lines = append(b.Lines, line)
		b.FreeTierCost += line.FreeCost
		b.StandardCost += line.StandardCost
	}

	b.PotentialSavings = b.StandardCost - b.FreeTierCost

	b.FreeTierCost = round4(b.FreeTierCost)
	b.StandardCost = round4(b.StandardCost)
	b.PotentialSavings = round4(b.PotentialSavings)

	return b
}

// EstimateStandard returns the standard on-demand estimate for a lab, taken
// from the detailed breakdown. When none of the named services has rate data
// the simple heuristic applies instead. This is the number shown in catalog
// listings.
func EstimateStandard(services []string, durationMinutes int) float64 {
	b := EstimateLabCost(services, float64(durationMinutes)/60) //nolint:mnd
	if len(services) > 0 && len(b.Lines) == 0 {
		return EstimateSimple(services, durationMinutes)
	}
	return b.StandardCost
}

// EstimateSimple is the fallback heuristic when no rate data is available:
// a flat hourly burn per service, plus a fixed base cost covering the
// incidentals (data transfer, CloudWatch noise) that every lab accrues.
func EstimateSimple(services []string, durationMinutes int) float64 {
	durationHours := float64(durationMinutes) / 60

	var total float64
	for _, service := range services {
		upper := strings.ToUpper(service)
		rate, ok := fallbackRates[upper]
		if !ok {
			rate = 0.01
		}
		if upper == "LAMBDA" {
			// The table rate is per request; scale by assumed volume.
			rate *= lambdaRequestsPerHour
		}
		total += rate * durationHours
	}

	return round2(total + 1.0)
}

// SortedServices returns the service names of the fallback table, sorted.
// Used by the pricing command when no lab is named.
func SortedServices() []string {
	services := make([]string, 0, len(fallbackRates))
	for service := range fallbackRates {
		services = append(services, service)
	}
	sort.Strings(services)
	return services
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100 //nolint:mnd
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000 //nolint:mnd
}
