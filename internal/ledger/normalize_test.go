package ledger

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/dvloznov/acct-ai/internal/domain"
)

func TestResolveAmount(t *testing.T) {
	tests := []struct {
		name   string
		raw    domain.RawTransaction
		want   float64
		wantOK bool
	}{
		{name: "amount", raw: domain.RawTransaction{"amount": 5.0}, want: 5, wantOK: true},
		{name: "total fallback", raw: domain.RawTransaction{"total": 7.0}, want: 7, wantOK: true},
		{name: "NaN amount falls back to total", raw: domain.RawTransaction{"amount": math.NaN(), "total": 9.0}, want: 9, wantOK: true},
		{name: "infinite amount falls back", raw: domain.RawTransaction{"amount": math.Inf(1), "total": 2.5}, want: 2.5, wantOK: true},
		{name: "empty record", raw: domain.RawTransaction{}, wantOK: false},
		{name: "numeric string", raw: domain.RawTransaction{"amount": "12.50"}, want: 12.5, wantOK: true},
		{name: "json number", raw: domain.RawTransaction{"amount": json.Number("-3.25")}, want: -3.25, wantOK: true},
		{name: "unparseable both", raw: domain.RawTransaction{"amount": "twelve", "total": map[string]interface{}{}}, wantOK: false},
		{name: "null amount", raw: domain.RawTransaction{"amount": nil, "total": nil}, wantOK: false},
		{name: "amount wins over total", raw: domain.RawTransaction{"amount": 0.0, "total": 9.0}, want: 0, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveAmount(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ResolveAmount() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ResolveAmount() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveDate(t *testing.T) {
	april3 := time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		raw    domain.RawTransaction
		want   time.Time
		wantOK bool
	}{
		{name: "plain date", raw: domain.RawTransaction{"date": "2024-04-03"}, want: april3, wantOK: true},
		{name: "rfc3339 with offset", raw: domain.RawTransaction{"date": "2024-04-03T02:00:00+02:00"}, want: april3, wantOK: true},
		{name: "iso without zone", raw: domain.RawTransaction{"date": "2024-04-03T12:30:00.123456"}, want: time.Date(2024, 4, 3, 12, 30, 0, 123456000, time.UTC), wantOK: true},
		{name: "timestamp fallback", raw: domain.RawTransaction{"timestamp": "2024-04-03T00:00:00Z"}, want: april3, wantOK: true},
		{name: "bad date falls back to timestamp", raw: domain.RawTransaction{"date": "soon", "timestamp": "2024-04-03"}, want: april3, wantOK: true},
		{name: "epoch millis", raw: domain.RawTransaction{"timestamp": 1712102400000.0}, want: april3, wantOK: true},
		{name: "epoch seconds", raw: domain.RawTransaction{"timestamp": 1712102400.0}, want: april3, wantOK: true},
		{name: "invalid calendar date", raw: domain.RawTransaction{"date": "2024-02-30"}, wantOK: false},
		{name: "missing", raw: domain.RawTransaction{"vendor": "Acme"}, wantOK: false},
		{name: "wrong type", raw: domain.RawTransaction{"date": true}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveDate(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ResolveDate() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ResolveDate() = %v, want %v", got, tt.want)
			}
			if ok && got.Location() != time.UTC {
				t.Errorf("ResolveDate() location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	raw := domain.RawTransaction{
		"id":          "tx-1",
		"description": "Coffee beans",
		"total":       "18.40",
		"category":    "Supplies",
		"timestamp":   "2024-04-03",
		"extra":       "kept",
	}

	tx := Normalize(raw)

	if tx.ID != "tx-1" {
		t.Errorf("ID = %q", tx.ID)
	}
	if tx.Vendor != "Coffee beans" {
		t.Errorf("Vendor = %q, want description fallback", tx.Vendor)
	}
	if !tx.HasAmount || tx.Amount != 18.4 {
		t.Errorf("Amount = %v (%v), want 18.4", tx.Amount, tx.HasAmount)
	}
	if !tx.HasDate || tx.Date.Day() != 3 {
		t.Errorf("Date = %v (%v)", tx.Date, tx.HasDate)
	}
	if tx.Raw["extra"] != "kept" {
		t.Error("extra fields should survive normalization")
	}

	withVendor := Normalize(domain.RawTransaction{"vendor": " Acme ", "description": "ignored"})
	if withVendor.Vendor != "Acme" {
		t.Errorf("Vendor = %q, want Acme", withVendor.Vendor)
	}
}

func TestNormalizeAll_PreservesOrder(t *testing.T) {
	raws := []domain.RawTransaction{{"id": "a"}, {"id": "b"}, {"id": "c"}}
	txs := NormalizeAll(raws)
	if len(txs) != 3 || txs[0].ID != "a" || txs[2].ID != "c" {
		t.Fatalf("NormalizeAll() = %+v", txs)
	}
}
