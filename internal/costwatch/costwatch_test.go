// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package costwatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	budgettypes "github.com/aws/aws-sdk-go-v2/service/budgets/types"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var watchNow = time.Date(2026, 1, 22, 10, 0, 0, 0, time.UTC)

type fakeCostExplorer struct {
	usage    *costexplorer.GetCostAndUsageOutput
	forecast *costexplorer.GetCostForecastOutput
	gotUsage *costexplorer.GetCostAndUsageInput
	err      error
}

func (f *fakeCostExplorer) GetCostAndUsage(_ context.Context,
	params *costexplorer.GetCostAndUsageInput,
	_ ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	f.gotUsage = params
	if f.err != nil {
		return nil, f.err
	}
	return f.usage, nil
}

func (f *fakeCostExplorer) GetCostForecast(_ context.Context,
	_ *costexplorer.GetCostForecastInput,
	_ ...func(*costexplorer.Options)) (*costexplorer.GetCostForecastOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.forecast, nil
}

func blended(amount string) map[string]cetypes.MetricValue {
	return map[string]cetypes.MetricValue{
		"BlendedCost": {Amount: aws.String(amount), Unit: aws.String("USD")},
	}
}

func day(start string, groups ...cetypes.Group) cetypes.ResultByTime {
	return cetypes.ResultByTime{
		TimePeriod: &cetypes.DateInterval{Start: aws.String(start)},
		Groups:     groups,
	}
}

func TestGetSessionCosts(t *testing.T) {
	sid := "iam-basics-20260115-093000"
	client := &fakeCostExplorer{
		usage: &costexplorer.GetCostAndUsageOutput{
			ResultsByTime: []cetypes.ResultByTime{
				day("2026-01-20",
					cetypes.Group{Keys: []string{"SessionId$" + sid, "Amazon Elastic Compute Cloud - Compute"},
						Metrics: blended("0.25")},
					cetypes.Group{Keys: []string{"SessionId$" + sid, "AWS Lambda"},
						Metrics: blended("0.05")},
					cetypes.Group{Keys: []string{"SessionId$other", "AWS Lambda"},
						Metrics: blended("9.99")},
				),
				day("2026-01-21",
					cetypes.Group{Keys: []string{"SessionId$" + sid, "AWS Lambda"},
						Metrics: blended("0.10")},
				),
			},
		},
	}

	costs, err := GetSessionCosts(context.Background(), client, sid, 7, watchNow)
	require.NoError(t, err)

	assert.Equal(t, sid, costs.SessionID)
	assert.InDelta(t, 0.40, costs.TotalCost, 0.001)
	assert.InDelta(t, 0.15, costs.ServiceCosts["AWS Lambda"], 0.001)
	assert.InDelta(t, 0.25, costs.ServiceCosts["Amazon Elastic Compute Cloud - Compute"], 0.001)
	require.Len(t, costs.DailyCosts, 2)
	assert.Equal(t, DailyCost{Date: "2026-01-20", Cost: 0.30}, costs.DailyCosts[0])
	assert.Equal(t, DailyCost{Date: "2026-01-21", Cost: 0.10}, costs.DailyCosts[1])
	assert.Equal(t, 7, costs.PeriodDays)

	// The request window covers the lookback period.
	require.NotNil(t, client.gotUsage)
	assert.Equal(t, "2026-01-15", aws.ToString(client.gotUsage.TimePeriod.Start))
	assert.Equal(t, "2026-01-22", aws.ToString(client.gotUsage.TimePeriod.End))
}

func TestGetSessionCosts_Error(t *testing.T) {
	client := &fakeCostExplorer{err: fmt.Errorf("AccessDenied")}

	_, err := GetSessionCosts(context.Background(), client, "s-1", 7, watchNow)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "session costs for s-1")
}

func TestGetAllLabCosts(t *testing.T) {
	client := &fakeCostExplorer{
		usage: &costexplorer.GetCostAndUsageOutput{
			ResultsByTime: []cetypes.ResultByTime{
				day("2026-01-20",
					cetypes.Group{Keys: []string{"SessionId$session-a"}, Metrics: blended("1.50")},
					cetypes.Group{Keys: []string{"SessionId$session-b"}, Metrics: blended("0.75")},
					cetypes.Group{Keys: []string{"SessionId$"}, Metrics: blended("3.00")},
				),
				day("2026-01-21",
					cetypes.Group{Keys: []string{"SessionId$session-a"}, Metrics: blended("0.50")},
				),
			},
		},
	}

	costs, err := GetAllLabCosts(context.Background(), client, 30, watchNow)
	require.NoError(t, err)

	// The untagged "SessionId$" group is ignored.
	assert.InDelta(t, 2.75, costs.TotalCost, 0.001)
	assert.InDelta(t, 2.00, costs.SessionCosts["session-a"], 0.001)
	assert.InDelta(t, 0.75, costs.SessionCosts["session-b"], 0.001)
}

func TestGetCostForecast(t *testing.T) {
	client := &fakeCostExplorer{
		forecast: &costexplorer.GetCostForecastOutput{
			Total: &cetypes.MetricValue{Amount: aws.String("4.567"), Unit: aws.String("USD")},
		},
	}

	forecast, err := GetCostForecast(context.Background(), client, "s-1", 30, watchNow)
	require.NoError(t, err)

	assert.InDelta(t, 4.57, forecast.ForecastAmount, 0.001)
	assert.Equal(t, 30, forecast.ForecastDays)
}

type fakeBudgets struct {
	budgets []budgettypes.Budget
	created *budgets.CreateBudgetInput
	deleted *budgets.DeleteBudgetInput
}

func (f *fakeBudgets) DescribeBudgets(_ context.Context, _ *budgets.DescribeBudgetsInput,
	_ ...func(*budgets.Options)) (*budgets.DescribeBudgetsOutput, error) {
	return &budgets.DescribeBudgetsOutput{Budgets: f.budgets}, nil
}

func (f *fakeBudgets) CreateBudget(_ context.Context, params *budgets.CreateBudgetInput,
	_ ...func(*budgets.Options)) (*budgets.CreateBudgetOutput, error) {
	f.created = params
	return &budgets.CreateBudgetOutput{}, nil
}

func (f *fakeBudgets) DeleteBudget(_ context.Context, params *budgets.DeleteBudgetInput,
	_ ...func(*budgets.Options)) (*budgets.DeleteBudgetOutput, error) {
	f.deleted = params
	return &budgets.DeleteBudgetOutput{}, nil
}

func TestCreateSessionBudget(t *testing.T) {
	client := &fakeBudgets{}

	err := CreateSessionBudget(context.Background(), client,
		"123456789012", "s-1", 5.0, "learner@example.com", watchNow)
	require.NoError(t, err)

	require.NotNil(t, client.created)
	budget := client.created.Budget
	assert.Equal(t, "DevOpsLab-s-1", aws.ToString(budget.BudgetName))
	assert.Equal(t, "5.00", aws.ToString(budget.BudgetLimit.Amount))
	assert.Equal(t, budgettypes.TimeUnitMonthly, budget.TimeUnit)
	assert.Equal(t, []string{"user:SessionId$s-1"}, budget.CostFilters["TagKeyValue"])
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), aws.ToTime(budget.TimePeriod.Start))
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), aws.ToTime(budget.TimePeriod.End))

	require.Len(t, client.created.NotificationsWithSubscribers, 2)
	actual := client.created.NotificationsWithSubscribers[0]
	assert.Equal(t, budgettypes.NotificationTypeActual, actual.Notification.NotificationType)
	assert.InDelta(t, 80.0, actual.Notification.Threshold, 0.001)
	require.Len(t, actual.Subscribers, 1)
	assert.Equal(t, "learner@example.com", aws.ToString(actual.Subscribers[0].Address))
}

func TestDeleteSessionBudget(t *testing.T) {
	client := &fakeBudgets{}

	err := DeleteSessionBudget(context.Background(), client, "123456789012", "s-1")
	require.NoError(t, err)

	require.NotNil(t, client.deleted)
	assert.Equal(t, "DevOpsLab-s-1", aws.ToString(client.deleted.BudgetName))
}

func TestListBudgets(t *testing.T) {
	client := &fakeBudgets{
		budgets: []budgettypes.Budget{
			{
				BudgetName:  aws.String("DevOpsLab-session-b"),
				BudgetLimit: &budgettypes.Spend{Amount: aws.String("10.00"), Unit: aws.String("USD")},
				TimeUnit:    budgettypes.TimeUnitMonthly,
				CalculatedSpend: &budgettypes.CalculatedSpend{
					ActualSpend: &budgettypes.Spend{Amount: aws.String("2.50"), Unit: aws.String("USD")},
				},
			},
			{
				BudgetName:  aws.String("DevOpsLab-session-a"),
				BudgetLimit: &budgettypes.Spend{Amount: aws.String("5.00"), Unit: aws.String("USD")},
				TimeUnit:    budgettypes.TimeUnitMonthly,
			},
			{
				BudgetName: aws.String("corporate-budget"),
			},
		},
	}

	alerts, err := ListBudgets(context.Background(), client, "123456789012")
	require.NoError(t, err)

	// Only lab budgets, sorted by session.
	require.Len(t, alerts, 2)
	assert.Equal(t, "session-a", alerts[0].SessionID)
	assert.Equal(t, "session-b", alerts[1].SessionID)
	assert.InDelta(t, 25.0, alerts[1].Percent, 0.001)
	assert.InDelta(t, 2.50, alerts[1].Actual, 0.001)
}
