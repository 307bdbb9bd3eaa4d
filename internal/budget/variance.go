// Package budget computes budget-variance reports for a project: planned
// spend from approved budget lines against actual and committed spend from
// the procurement chain, with threshold alerts and a naive forward forecast.
package budget

import (
	"fmt"
	"math"
	"sort"
)

// Source marks whether actual/committed figures come from tracking rows or
// from the progress-based placeholder estimate.
type Source string

const (
	SourceMeasured  Source = "measured"
	SourceEstimated Source = "estimated"
)

type AlertSeverity string

const (
	AlertCritical AlertSeverity = "critical"
	AlertWarning  AlertSeverity = "warning"
	AlertInfo     AlertSeverity = "info"
)

// CategoryInput is one category's raw figures. Actual and Committed are
// ignored when the report falls back to estimation.
type CategoryInput struct {
	Category  string
	Planned   float64
	Actual    float64
	Committed float64
	ItemCount int
}

type Category struct {
	Category              string  `json:"category"`
	Budget                float64 `json:"budget"`
	Actual                float64 `json:"actual"`
	Committed             float64 `json:"committed"`
	Remaining             float64 `json:"remaining"`
	VarianceAmount        float64 `json:"varianceAmount"`
	VariancePercentage    float64 `json:"variancePercentage"`
	UtilizationPercentage float64 `json:"utilizationPercentage"`
	ItemCount             int     `json:"itemCount"`
	Source                Source  `json:"source"`
}

type Summary struct {
	TotalBudget           float64 `json:"totalBudget"`
	TotalActual           float64 `json:"totalActual"`
	TotalCommitted        float64 `json:"totalCommitted"`
	RemainingBudget       float64 `json:"remainingBudget"`
	UtilizationPercentage float64 `json:"utilizationPercentage"`
	ActualPercentage      float64 `json:"actualPercentage"`
	CommittedPercentage   float64 `json:"committedPercentage"`
}

type Alert struct {
	Severity AlertSeverity `json:"type"`
	Category string        `json:"category"`
	Message  string        `json:"message"`
}

type ForecastPeriod struct {
	Period         string  `json:"period"`
	ProjectedSpend float64 `json:"projectedSpend"`
	Confidence     int     `json:"confidence"`
	RemainingAfter float64 `json:"remainingAfter"`
}

type Report struct {
	Summary    Summary          `json:"summary"`
	Categories []Category       `json:"categories"`
	Alerts     []Alert          `json:"alerts"`
	Forecast   []ForecastPeriod `json:"forecast"`
	Source     Source           `json:"source"`
}

// Compute builds the full variance report. When hasTracking is false the
// engine substitutes the placeholder estimate (planned x progress x 0.7
// actual, x 0.2 committed) and tags every figure as estimated so callers can
// tell it apart from measured data.
func Compute(inputs []CategoryInput, hasTracking bool, projectProgress float64, timeframe string, historySpend []float64) Report {
	source := SourceMeasured
	if !hasTracking {
		source = SourceEstimated
	}

	categories := make([]Category, 0, len(inputs))
	for _, in := range inputs {
		actual := in.Actual
		committed := in.Committed
		if !hasTracking {
			progress := projectProgress / 100
			actual = in.Planned * progress * 0.7
			committed = in.Planned * progress * 0.2
		}
		categories = append(categories, buildCategory(in, actual, committed, source))
	}

	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Budget > categories[j].Budget
	})

	summary := buildSummary(categories)
	alerts := buildAlerts(categories)
	forecast := buildForecast(summary, timeframe, historySpend)

	return Report{
		Summary:    summary,
		Categories: categories,
		Alerts:     alerts,
		Forecast:   forecast,
		Source:     source,
	}
}

func buildCategory(in CategoryInput, actual, committed float64, source Source) Category {
	remaining := in.Planned - actual - committed
	varianceAmount := in.Planned - actual

	var variancePct, utilizationPct float64
	if in.Planned > 0 {
		variancePct = varianceAmount / in.Planned * 100
		utilizationPct = (actual + committed) / in.Planned * 100
	}

	return Category{
		Category:              in.Category,
		Budget:                round2(in.Planned),
		Actual:                round2(actual),
		Committed:             round2(committed),
		Remaining:             round2(remaining),
		VarianceAmount:        round2(varianceAmount),
		VariancePercentage:    round2(variancePct),
		UtilizationPercentage: round2(utilizationPct),
		ItemCount:             in.ItemCount,
		Source:                source,
	}
}

func buildSummary(categories []Category) Summary {
	var s Summary
	for _, cat := range categories {
		s.TotalBudget += cat.Budget
		s.TotalActual += cat.Actual
		s.TotalCommitted += cat.Committed
	}
	s.RemainingBudget = round2(s.TotalBudget - s.TotalActual - s.TotalCommitted)
	if s.TotalBudget > 0 {
		s.UtilizationPercentage = round2((s.TotalActual + s.TotalCommitted) / s.TotalBudget * 100)
		s.ActualPercentage = round2(s.TotalActual / s.TotalBudget * 100)
		s.CommittedPercentage = round2(s.TotalCommitted / s.TotalBudget * 100)
	}
	return s
}

func buildAlerts(categories []Category) []Alert {
	alerts := make([]Alert, 0)
	for _, cat := range categories {
		switch {
		case cat.Actual > cat.Budget:
			alerts = append(alerts, Alert{
				Severity: AlertCritical,
				Category: cat.Category,
				Message:  fmt.Sprintf("Budget exceeded: actual spending %.2f is over budget %.2f", cat.Actual, cat.Budget),
			})
		case cat.UtilizationPercentage >= 95:
			alerts = append(alerts, Alert{
				Severity: AlertCritical,
				Category: cat.Category,
				Message:  fmt.Sprintf("Critical utilization: %.1f%% of budget used for %s", cat.UtilizationPercentage, cat.Category),
			})
		case cat.UtilizationPercentage >= 80:
			alerts = append(alerts, Alert{
				Severity: AlertWarning,
				Category: cat.Category,
				Message:  fmt.Sprintf("High utilization: %.1f%% of budget used for %s", cat.UtilizationPercentage, cat.Category),
			})
		case cat.UtilizationPercentage >= 60:
			alerts = append(alerts, Alert{
				Severity: AlertInfo,
				Category: cat.Category,
				Message:  fmt.Sprintf("Moderate utilization: %.1f%% of budget used for %s", cat.UtilizationPercentage, cat.Category),
			})
		}
	}

	priority := map[AlertSeverity]int{AlertCritical: 3, AlertWarning: 2, AlertInfo: 1}
	sort.SliceStable(alerts, func(i, j int) bool {
		return priority[alerts[i].Severity] > priority[alerts[j].Severity]
	})
	return alerts
}

// buildForecast projects three periods forward from average historical spend
// (or totalActual/3 without history), with +5% growth per period and linearly
// decreasing confidence. Deliberately naive; illustrative only.
func buildForecast(summary Summary, timeframe string, historySpend []float64) []ForecastPeriod {
	avgSpend := summary.TotalActual / 3
	if len(historySpend) > 0 {
		var total float64
		for _, v := range historySpend {
			total += v
		}
		avgSpend = total / float64(len(historySpend))
	}

	if avgSpend <= 0 || summary.RemainingBudget <= 0 {
		return []ForecastPeriod{}
	}

	var labels []string
	switch timeframe {
	case "week":
		labels = []string{"Week 1", "Week 2", "Week 3"}
	case "month":
		labels = []string{"Month 1", "Month 2", "Month 3"}
	default:
		labels = []string{"Q1", "Q2", "Q3"}
	}

	forecast := make([]ForecastPeriod, 0, len(labels))
	for i, label := range labels {
		projected := avgSpend * (1 + float64(i)*0.05)
		confidence := 90 - i*15
		if confidence < 50 {
			confidence = 50
		}
		forecast = append(forecast, ForecastPeriod{
			Period:         label,
			ProjectedSpend: round2(projected),
			Confidence:     confidence,
			RemainingAfter: round2(summary.RemainingBudget - projected*float64(i+1)),
		})
	}
	return forecast
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
