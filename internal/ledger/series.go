package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/acct-ai/internal/domain"
)

const (
	bucketKeyLayout   = "2006-01"
	bucketLabelLayout = "Jan 2006"
)

type monthBucket struct {
	month   time.Time
	inflow  decimal.Decimal
	outflow decimal.Decimal
}

// BuildMonthlySeries groups transactions by calendar month.
// Negative amounts count as inflow by magnitude, everything else as outflow.
// Records without an amount or a date are skipped. Sums are exact, so the
// result does not depend on input order.
func BuildMonthlySeries(txs []domain.Transaction) []domain.MonthlyPoint {
	buckets := make(map[string]*monthBucket)

	for _, tx := range txs {
		if !tx.HasAmount || !tx.HasDate {
			continue
		}

		key := tx.Date.Format(bucketKeyLayout)
		b, ok := buckets[key]
		if !ok {
			b = &monthBucket{
				month:   time.Date(tx.Date.Year(), tx.Date.Month(), 1, 0, 0, 0, 0, time.UTC),
				inflow:  decimal.Zero,
				outflow: decimal.Zero,
			}
			buckets[key] = b
		}

		amount := decimal.NewFromFloat(tx.Amount)
		if amount.IsNegative() {
			b.inflow = b.inflow.Add(amount.Abs())
		} else {
			b.outflow = b.outflow.Add(amount)
		}
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	series := make([]domain.MonthlyPoint, 0, len(keys))
	for _, key := range keys {
		b := buckets[key]
		series = append(series, domain.MonthlyPoint{
			Key:     key,
			Period:  b.month.Format(bucketLabelLayout),
			Inflow:  b.inflow.Round(2).InexactFloat64(),
			Outflow: b.outflow.Round(2).InexactFloat64(),
		})
	}
	return series
}

// BuildMonthlySeriesFromRaw normalizes and aggregates in one step.
func BuildMonthlySeriesFromRaw(raws []domain.RawTransaction) []domain.MonthlyPoint {
	return BuildMonthlySeries(NormalizeAll(raws))
}
