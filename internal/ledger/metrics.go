package ledger

import (
	"time"

	"github.com/dvloznov/acct-ai/internal/domain"
)

// Metrics are the headline labels shown above the transaction table.
type Metrics struct {
	TransactionCount string `json:"transaction_count"`
	TotalSpend       string `json:"total_spend"`
	TopVendor        string `json:"top_vendor"`
	LastUpdated      string `json:"last_updated"`
	LatestActivity   string `json:"latest_activity"`
}

// BuildMetrics derives display labels. Stats-backed labels are taken from the
// server as-is and never recomputed from txs.
func BuildMetrics(stats *domain.TransactionStats, txs []domain.Transaction, now time.Time) Metrics {
	return Metrics{
		TransactionCount: CountLabel(stats),
		TotalSpend:       TotalLabel(stats),
		TopVendor:        TopVendorLabel(stats),
		LastUpdated:      LastUpdatedLabel(stats, now),
		LatestActivity:   LatestActivityLabel(txs),
	}
}

func CountLabel(stats *domain.TransactionStats) string {
	if stats == nil || stats.TotalTransactions == nil {
		return Placeholder
	}
	return FormatCount(*stats.TotalTransactions)
}

func TotalLabel(stats *domain.TransactionStats) string {
	if stats == nil || stats.TotalAmount == nil {
		return Placeholder
	}
	return FormatCurrency(*stats.TotalAmount)
}

func TopVendorLabel(stats *domain.TransactionStats) string {
	if stats == nil || stats.BiggestVendor == nil || *stats.BiggestVendor == "" {
		return AwaitingUploads
	}
	return *stats.BiggestVendor
}

// LastUpdatedLabel reports how long ago the stats were generated.
func LastUpdatedLabel(stats *domain.TransactionStats, now time.Time) string {
	if stats == nil {
		return AwaitingUploads
	}
	if label := FormatRelativeTime(stats.GeneratedAt, now); label != "" {
		return label
	}
	return AwaitingUploads
}

// LatestActivityLabel is the date of the most recent dated transaction.
func LatestActivityLabel(txs []domain.Transaction) string {
	var latest time.Time
	found := false
	for _, tx := range txs {
		if !tx.HasDate {
			continue
		}
		if !found || tx.Date.After(latest) {
			latest = tx.Date
			found = true
		}
	}
	if !found {
		return Placeholder
	}
	return FormatDate(latest)
}

// Row is a transaction rendered for the dashboard table.
type Row struct {
	ID       string `json:"id"`
	Vendor   string `json:"vendor"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
}

// BuildRows renders transactions for display. Records lacking an amount or a
// date are still listed with placeholders.
func BuildRows(txs []domain.Transaction) []Row {
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		row := Row{
			ID:       tx.ID,
			Vendor:   tx.Vendor,
			Category: tx.Category,
			Amount:   Placeholder,
			Date:     Placeholder,
		}
		if row.Vendor == "" {
			row.Vendor = Placeholder
		}
		if row.Category == "" {
			row.Category = Placeholder
		}
		if tx.HasAmount {
			row.Amount = FormatCurrency(tx.Amount)
		}
		if tx.HasDate {
			row.Date = FormatDate(tx.Date)
		}
		rows = append(rows, row)
	}
	return rows
}
