// Package forecast projects the next month of cash flow from the monthly series.
package forecast

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/acct-ai/internal/domain"
)

// Window is the number of most recent months a projection looks at.
const Window = 6

// Trend values.
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)

// Confidence values.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// NoDataMessage explains an empty projection.
const NoDataMessage = "Not enough history to project the next month."

// Predict fits a least-squares line through the last Window points of each
// side and evaluates it one month past the end of the series. Projections are
// clamped at zero and rounded to cents. The series must be ascending by key,
// as BuildMonthlySeries returns it.
func Predict(series []domain.MonthlyPoint, now time.Time) domain.PredictionResponse {
	generatedAt := now.UTC().Format(time.RFC3339)
	if len(series) == 0 {
		return domain.PredictionResponse{GeneratedAt: &generatedAt, Message: NoDataMessage}
	}

	points := series
	if len(points) > Window {
		points = points[len(points)-Window:]
	}

	inflows := make([]float64, len(points))
	outflows := make([]float64, len(points))
	for i, p := range points {
		inflows[i] = p.Inflow
		outflows[i] = p.Outflow
	}

	inflow := roundCents(clamp(project(inflows)))
	outflow := roundCents(clamp(project(outflows)))
	net := decimal.NewFromFloat(inflow).Sub(decimal.NewFromFloat(outflow))

	last := points[len(points)-1]
	lastNet := decimal.NewFromFloat(last.Inflow).Sub(decimal.NewFromFloat(last.Outflow)).Round(2)

	trend := TrendFlat
	switch {
	case len(points) < 2:
	case net.GreaterThan(lastNet):
		trend = TrendUp
	case net.LessThan(lastNet):
		trend = TrendDown
	}

	next := nextPeriod(last.Key)
	netValue := net.Round(2).InexactFloat64()
	confidence := confidenceFor(len(points))
	months := len(points)

	resp := domain.PredictionResponse{
		ProjectedInflow:  &inflow,
		ProjectedOutflow: &outflow,
		ProjectedNet:     &netValue,
		Trend:            &trend,
		Confidence:       &confidence,
		MonthsConsidered: &months,
		GeneratedAt:      &generatedAt,
	}
	if next != "" {
		resp.NextPeriod = &next
	}
	return resp
}

// project returns the least-squares fit of ys evaluated at x = len(ys).
func project(ys []float64) float64 {
	n := float64(len(ys))
	if len(ys) == 1 {
		return ys[0]
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return sumY / n
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n
	return intercept + slope*n
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func confidenceFor(months int) string {
	switch {
	case months < 3:
		return ConfidenceLow
	case months < Window:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

// nextPeriod labels the month after a "YYYY-MM" key.
func nextPeriod(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 1, 0).Format("Jan 2006")
}
