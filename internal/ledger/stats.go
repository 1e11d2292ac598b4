package ledger

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/acct-ai/internal/domain"
)

const (
	// UnknownVendor groups transactions that name no vendor.
	UnknownVendor = "Unknown"
	// NoDataSummary is the summary text for an empty ledger.
	NoDataSummary = "No transactions yet."
)

// ComputeStats aggregates the stored ledger for the summary endpoints.
// Only "amount" is summed (missing counts as zero) and records are grouped by
// "vendor", defaulting to UnknownVendor. The biggest vendor is the one with
// the largest summed amount; ties go to the vendor seen first.
func ComputeStats(raws []domain.RawTransaction, now time.Time) domain.TransactionStats {
	total := decimal.Zero
	vendorTotals := make(map[string]decimal.Decimal)
	var vendorOrder []string

	for _, raw := range raws {
		amount := decimal.Zero
		if f, ok := raw.Float("amount"); ok {
			amount = decimal.NewFromFloat(f)
		}
		total = total.Add(amount)

		vendor := raw.String("vendor")
		if vendor == "" {
			vendor = UnknownVendor
		}
		if _, seen := vendorTotals[vendor]; !seen {
			vendorOrder = append(vendorOrder, vendor)
			vendorTotals[vendor] = decimal.Zero
		}
		vendorTotals[vendor] = vendorTotals[vendor].Add(amount)
	}

	count := len(raws)
	totalAmount := total.Round(2).InexactFloat64()
	stats := domain.TransactionStats{
		TotalTransactions: &count,
		TotalAmount:       &totalAmount,
		GeneratedAt:       now.UTC().Format(time.RFC3339),
	}

	var biggest string
	var biggestTotal decimal.Decimal
	for i, vendor := range vendorOrder {
		if i == 0 || vendorTotals[vendor].GreaterThan(biggestTotal) {
			biggest = vendor
			biggestTotal = vendorTotals[vendor]
		}
	}
	if biggest != "" {
		stats.BiggestVendor = &biggest
	}
	return stats
}

// EmptyStats are the stats reported when the ledger holds nothing.
func EmptyStats(now time.Time) domain.TransactionStats {
	count := 0
	total := 0.0
	return domain.TransactionStats{
		TotalTransactions: &count,
		TotalAmount:       &total,
		GeneratedAt:       now.UTC().Format(time.RFC3339),
	}
}

// SummaryText is the plain summary used when no narrator is configured.
func SummaryText(stats domain.TransactionStats) string {
	count := 0
	if stats.TotalTransactions != nil {
		count = *stats.TotalTransactions
	}
	vendor := "N/A"
	if stats.BiggestVendor != nil && *stats.BiggestVendor != "" {
		vendor = *stats.BiggestVendor
	}
	total := 0.0
	if stats.TotalAmount != nil {
		total = *stats.TotalAmount
	}
	return fmt.Sprintf("%d transactions captured. Top vendor: %s. Total spend: $%s.",
		count, vendor, humanize.FormatFloat("#,###.##", total))
}

// ApplyLimit keeps the first limit records. A limit of zero or less keeps all.
func ApplyLimit(raws []domain.RawTransaction, limit int) []domain.RawTransaction {
	if limit <= 0 || limit >= len(raws) {
		return raws
	}
	return raws[:limit]
}

// ParseLimit reads a limit query value. Anything but plain digits means no limit.
func ParseLimit(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
		if n > 1_000_000 {
			return 1_000_000
		}
	}
	return n
}
