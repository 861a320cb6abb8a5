// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package costwatch reads actual lab spend from Cost Explorer and manages
// per-session budget alerts. Everything is keyed off the SessionId cost
// allocation tag.
package costwatch

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	budgettypes "github.com/aws/aws-sdk-go-v2/service/budgets/types"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/labctl/labctl/internal/session"
)

// CostReader is the Cost Explorer surface this package needs.
type CostReader interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput,
		optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
	GetCostForecast(ctx context.Context, params *costexplorer.GetCostForecastInput,
		optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostForecastOutput, error)
}

// BudgetManager is the Budgets surface this package needs.
type BudgetManager interface {
	DescribeBudgets(ctx context.Context, params *budgets.DescribeBudgetsInput,
		optFns ...func(*budgets.Options)) (*budgets.DescribeBudgetsOutput, error)
	CreateBudget(ctx context.Context, params *budgets.CreateBudgetInput,
		optFns ...func(*budgets.Options)) (*budgets.CreateBudgetOutput, error)
	DeleteBudget(ctx context.Context, params *budgets.DeleteBudgetInput,
		optFns ...func(*budgets.Options)) (*budgets.DeleteBudgetOutput, error)
}

// DailyCost is one day's spend.
type DailyCost struct {
	Date string  `json:"date"`
	Cost float64 `json:"cost"`
}

// SessionCosts is the actual spend of one session over a lookback window.
type SessionCosts struct {
	SessionID    string             `json:"session_id"`
	TotalCost    float64            `json:"total_cost"`
	ServiceCosts map[string]float64 `json:"service_costs"`
	DailyCosts   []DailyCost        `json:"daily_costs"`
	PeriodDays   int                `json:"period_days"`
}

// LabCosts is the per-session spend rollup across all lab sessions.
type LabCosts struct {
	TotalCost    float64            `json:"total_cost"`
	SessionCosts map[string]float64 `json:"session_costs"`
	PeriodDays   int                `json:"period_days"`
}

// Forecast is a projected spend for one session.
type Forecast struct {
	SessionID      string  `json:"session_id"`
	ForecastAmount float64 `json:"forecast_amount"`
	ForecastDays   int     `json:"forecast_days"`
}

// BudgetAlert is one lab budget with its consumption.
type BudgetAlert struct {
	SessionID  string  `json:"session_id"`
	BudgetName string  `json:"budget_name"`
	Limit      float64 `json:"limit"`
	Actual     float64 `json:"actual"`
	Percent    float64 `json:"percent"`
	TimeUnit   string  `json:"time_unit"`
}

const budgetPrefix = "DevOpsLab-"

const dateLayout = "2006-01-02"

// GetSessionCosts returns the session's spend over the last days, grouped by
// day and by service.
func GetSessionCosts(ctx context.Context, client CostReader,
	sessionID string, days int, now time.Time) (*SessionCosts, error) {
	out, err := client.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod:  window(now, days),
		Granularity: cetypes.GranularityDaily,
		Metrics:     []string{"BlendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeTag, Key: aws.String(session.TagSessionID)},
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
		},
		Filter: &cetypes.Expression{
			Tags: &cetypes.TagValues{
				Key:    aws.String(session.TagSessionID),
				Values: []string{sessionID},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("session costs for %s: %w", sessionID, err)
	}

	costs := &SessionCosts{
		SessionID:    sessionID,
		ServiceCosts: map[string]float64{},
		DailyCosts:   []DailyCost{},
		PeriodDays:   days,
	}

	for _, result := range out.ResultsByTime {
		date := ""
		if result.TimePeriod != nil {
			date = aws.ToString(result.TimePeriod.Start)
		}

		dayTotal := 0.0
		for _, group := range result.Groups {
			service, matched := splitGroupKeys(group.Keys, sessionID)
			if !matched {
				continue
			}
			cost := amount(group.Metrics, "BlendedCost")
			costs.TotalCost += cost
			dayTotal += cost
			costs.ServiceCosts[service] += cost
		}

		costs.DailyCosts = append(costs.DailyCosts, DailyCost{Date: date, Cost: round2(dayTotal)})
	}

	costs.TotalCost = round2(costs.TotalCost)
	for service, cost := range costs.ServiceCosts {
		costs.ServiceCosts[service] = round2(cost)
	}

	return costs, nil
}

// GetAllLabCosts returns the spend of every Project-tagged session over the
// last days.
func GetAllLabCosts(ctx context.Context, client CostReader,
	days int, now time.Time) (*LabCosts, error) {
	out, err := client.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod:  window(now, days),
		Granularity: cetypes.GranularityDaily,
		Metrics:     []string{"BlendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeTag, Key: aws.String(session.TagSessionID)},
		},
		Filter: &cetypes.Expression{
			Tags: &cetypes.TagValues{
				Key:    aws.String(session.TagProject),
				Values: []string{session.ProjectTagValue},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("all lab costs: %w", err)
	}

	costs := &LabCosts{
		SessionCosts: map[string]float64{},
		PeriodDays:   days,
	}

	for _, result := range out.ResultsByTime {
		for _, group := range result.Groups {
			sessionID := tagValue(group.Keys)
			if sessionID == "" {
				continue
			}
			cost := amount(group.Metrics, "BlendedCost")
			costs.SessionCosts[sessionID] += cost
			costs.TotalCost += cost
		}
	}

	costs.TotalCost = round2(costs.TotalCost)
	for sessionID, cost := range costs.SessionCosts {
		costs.SessionCosts[sessionID] = round2(cost)
	}

	return costs, nil
}

// GetCostForecast projects the session's spend over the next days.
func GetCostForecast(ctx context.Context, client CostReader,
	sessionID string, days int, now time.Time) (*Forecast, error) {
	out, err := client.GetCostForecast(ctx, &costexplorer.GetCostForecastInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(now.Format(dateLayout)),
			End:   aws.String(now.AddDate(0, 0, days).Format(dateLayout)),
		},
		Metric:      cetypes.MetricBlendedCost,
		Granularity: cetypes.GranularityDaily,
		Filter: &cetypes.Expression{
			Tags: &cetypes.TagValues{
				Key:    aws.String(session.TagSessionID),
				Values: []string{sessionID},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cost forecast for %s: %w", sessionID, err)
	}

	forecast := &Forecast{SessionID: sessionID, ForecastDays: days}
	if out.Total != nil {
		if value, err := strconv.ParseFloat(aws.ToString(out.Total.Amount), 64); err == nil {
			forecast.ForecastAmount = round2(value)
		}
	}

	return forecast, nil
}

// CreateSessionBudget creates a monthly cost budget scoped to the session's
// SessionId tag, alerting at 80% actual and 100% forecasted spend. The email
// is optional.
func CreateSessionBudget(ctx context.Context, client BudgetManager,
	accountID, sessionID string, limit float64, email string, now time.Time) error {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var subscribers []budgettypes.Subscriber
	if email != "" {
		subscribers = append(subscribers, budgettypes.Subscriber{
			SubscriptionType: budgettypes.SubscriptionTypeEmail,
			Address:          aws.String(email),
		})
	}

	notifications := []budgettypes.NotificationWithSubscribers{
		{
			Notification: &budgettypes.Notification{
				NotificationType:   budgettypes.NotificationTypeActual,
				ComparisonOperator: budgettypes.ComparisonOperatorGreaterThan,
				Threshold:          80.0,
				ThresholdType:      budgettypes.ThresholdTypePercentage,
			},
			Subscribers: subscribers,
		},
		{
			Notification: &budgettypes.Notification{
				NotificationType:   budgettypes.NotificationTypeForecasted,
				ComparisonOperator: budgettypes.ComparisonOperatorGreaterThan,
				Threshold:          100.0,
				ThresholdType:      budgettypes.ThresholdTypePercentage,
			},
			Subscribers: subscribers,
		},
	}

	_, err := client.CreateBudget(ctx, &budgets.CreateBudgetInput{
		AccountId: aws.String(accountID),
		Budget: &budgettypes.Budget{
			BudgetName: aws.String(budgetPrefix + sessionID),
			BudgetType: budgettypes.BudgetTypeCost,
			TimeUnit:   budgettypes.TimeUnitMonthly,
			BudgetLimit: &budgettypes.Spend{
				Amount: aws.String(strconv.FormatFloat(limit, 'f', 2, 64)),
				Unit:   aws.String("USD"),
			},
			TimePeriod: &budgettypes.TimePeriod{
				Start: aws.Time(monthStart),
				End:   aws.Time(monthEnd),
			},
			CostFilters: map[string][]string{
				"TagKeyValue": {"user:" + session.TagSessionID + "$" + sessionID},
			},
		},
		NotificationsWithSubscribers: notifications,
	})
	if err != nil {
		return fmt.Errorf("create budget for %s: %w", sessionID, err)
	}

	return nil
}

// DeleteSessionBudget removes the session's budget alert.
func DeleteSessionBudget(ctx context.Context, client BudgetManager,
	accountID, sessionID string) error {
	_, err := client.DeleteBudget(ctx, &budgets.DeleteBudgetInput{
		AccountId:  aws.String(accountID),
		BudgetName: aws.String(budgetPrefix + sessionID),
	})
	if err != nil {
		return fmt.Errorf("delete budget for %s: %w", sessionID, err)
	}

	return nil
}

// ListBudgets returns every lab budget with its actual-vs-limit consumption,
// sorted by session id.
func ListBudgets(ctx context.Context, client BudgetManager, accountID string) ([]BudgetAlert, error) {
	out, err := client.DescribeBudgets(ctx, &budgets.DescribeBudgetsInput{
		AccountId: aws.String(accountID),
	})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	var alerts []BudgetAlert
	for _, budget := range out.Budgets {
		name := aws.ToString(budget.BudgetName)
		if !strings.HasPrefix(name, budgetPrefix) {
			continue
		}

		alert := BudgetAlert{
			SessionID:  strings.TrimPrefix(name, budgetPrefix),
			BudgetName: name,
			TimeUnit:   string(budget.TimeUnit),
		}
		if budget.BudgetLimit != nil {
			alert.Limit, _ = strconv.ParseFloat(aws.ToString(budget.BudgetLimit.Amount), 64)
		}
		if budget.CalculatedSpend != nil && budget.CalculatedSpend.ActualSpend != nil {
			alert.Actual, _ = strconv.ParseFloat(aws.ToString(budget.CalculatedSpend.ActualSpend.Amount), 64)
		}
		if alert.Limit > 0 {
			alert.Percent = round2(alert.Actual / alert.Limit * 100)
		}

		alerts = append(alerts, alert)
	}

	sort.Slice(alerts, func(i, j int) bool { return alerts[i].SessionID < alerts[j].SessionID })

	return alerts, nil
}

func window(now time.Time, days int) *cetypes.DateInterval {
	return &cetypes.DateInterval{
		Start: aws.String(now.AddDate(0, 0, -days).Format(dateLayout)),
		End:   aws.String(now.Format(dateLayout)),
	}
}

// splitGroupKeys pulls the service dimension out of a tag+service group and
// reports whether the tag key names the wanted session. Tag keys come back
// as "SessionId$<value>".
func splitGroupKeys(keys []string, sessionID string) (string, bool) {
	service := "Unknown"
	matched := false

	for _, key := range keys {
		if strings.Contains(key, "$") {
			if strings.HasSuffix(key, "$"+sessionID) {
				matched = true
			}
			continue
		}
		service = key
	}

	return service, matched
}

// tagValue extracts the value half of a "Key$value" tag group key.
func tagValue(keys []string) string {
	for _, key := range keys {
		if _, value, ok := strings.Cut(key, "$"); ok {
			return value
		}
	}
	return ""
}

func amount(metrics map[string]cetypes.MetricValue, metric string) float64 {
	value, err := strconv.ParseFloat(aws.ToString(metrics[metric].Amount), 64)
	if err != nil {
		return 0
	}
	return value
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100 //nolint:mnd
}
