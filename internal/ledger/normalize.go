// Package ledger turns loosely typed transaction records into canonical
// transactions, monthly cash-flow series and display-ready labels.
// Every function here is pure and never fails on malformed input.
package ledger

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/acct-ai/internal/domain"
)

// dateLayouts are tried in order when parsing a date string.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 1e11

// Normalize maps a wire record onto the canonical Transaction.
func Normalize(raw domain.RawTransaction) domain.Transaction {
	tx := domain.Transaction{
		ID:          raw.String("id"),
		Description: raw.String("description"),
		Category:    raw.String("category"),
		Raw:         raw,
	}

	tx.Vendor = raw.String("vendor")
	if tx.Vendor == "" {
		tx.Vendor = tx.Description
	}

	tx.Amount, tx.HasAmount = ResolveAmount(raw)
	tx.Date, tx.HasDate = ResolveDate(raw)
	return tx
}

// NormalizeAll normalizes every record, preserving order.
func NormalizeAll(raws []domain.RawTransaction) []domain.Transaction {
	txs := make([]domain.Transaction, 0, len(raws))
	for _, raw := range raws {
		txs = append(txs, Normalize(raw))
	}
	return txs
}

// ResolveAmount returns "amount" when it is a finite number, else "total".
func ResolveAmount(raw domain.RawTransaction) (float64, bool) {
	if amount, ok := raw.Float("amount"); ok {
		return amount, true
	}
	if total, ok := raw.Float("total"); ok {
		return total, true
	}
	return 0, false
}

// ResolveDate returns the parsed "date" when present and valid, else the
// parsed "timestamp". The result is always in UTC.
func ResolveDate(raw domain.RawTransaction) (time.Time, bool) {
	if t, ok := ParseTime(raw["date"]); ok {
		return t, true
	}
	if t, ok := ParseTime(raw["timestamp"]); ok {
		return t, true
	}
	return time.Time{}, false
}

// ParseTime interprets strings in the common ISO layouts, time values and
// epoch seconds or milliseconds. Calendar-invalid dates are rejected.
func ParseTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return validTime(val)
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return validTime(*val)
	case string:
		return parseTimeString(val)
	case json.Number:
		return parseTimeString(val.String())
	default:
		if f, ok := domain.AsFloat(val); ok {
			return fromEpoch(f)
		}
		return time.Time{}, false
	}
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return validTime(t)
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(f)
	}
	return time.Time{}, false
}

func fromEpoch(f float64) (time.Time, bool) {
	if f >= epochMillisThreshold || f <= -epochMillisThreshold {
		return validTime(time.UnixMilli(int64(f)))
	}
	return validTime(time.Unix(int64(f), 0))
}

func validTime(t time.Time) (time.Time, bool) {
	if t.IsZero() {
		return time.Time{}, false
	}
	t = t.UTC()
	if y := t.Year(); y < 1 || y > 9999 {
		return time.Time{}, false
	}
	return t, true
}
