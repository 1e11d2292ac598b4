package bigquery

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/acct-ai/internal/ledger"
)

func TestTransactionRow_ToRaw(t *testing.T) {
	row := &TransactionRow{
		TransactionID:         "tx-1",
		TransactionDate:       civil.Date{Year: 2024, Month: time.April, Day: 3},
		Amount:                big.NewRat(-4250, 100),
		Currency:              "GBP",
		RawDescription:        "CARD PAYMENT TO TESCO STORES 3412",
		NormalizedDescription: bigquery.NullString{StringVal: "Tesco", Valid: true},
		CategoryName:          bigquery.NullString{StringVal: "Groceries", Valid: true},
		CreatedTS:             time.Date(2024, 4, 5, 8, 0, 0, 0, time.UTC),
	}

	raw := row.ToRaw()

	if raw["amount"] != 42.5 {
		t.Errorf("amount = %v, want 42.5 (spend is positive)", raw["amount"])
	}
	if raw["vendor"] != "Tesco" || raw["category"] != "Groceries" {
		t.Errorf("vendor/category = %v/%v", raw["vendor"], raw["category"])
	}
	if raw["date"] != "2024-04-03" {
		t.Errorf("date = %v", raw["date"])
	}

	tx := ledger.Normalize(raw)
	if !tx.HasAmount || !tx.HasDate || tx.Date.Day() != 3 {
		t.Errorf("row did not normalize cleanly: %+v", tx)
	}
}

func TestTransactionRow_ToRawInflowAndFallbacks(t *testing.T) {
	row := &TransactionRow{
		TransactionID:   "tx-2",
		TransactionDate: civil.Date{Year: 2024, Month: time.March, Day: 28},
		BookingDatetime: bigquery.NullDateTime{
			DateTime: civil.DateTime{Date: civil.Date{Year: 2024, Month: time.March, Day: 29}, Time: civil.Time{Hour: 9, Minute: 30}},
			Valid:    true,
		},
		Amount:         big.NewRat(1500, 1),
		RawDescription: "SALARY ACME LTD",
	}

	raw := row.ToRaw()

	if raw["amount"] != -1500.0 {
		t.Errorf("amount = %v, want -1500 (inflow is negative)", raw["amount"])
	}
	if _, ok := raw["vendor"]; ok {
		t.Errorf("vendor = %v, want none for NULL normalized_description", raw["vendor"])
	}
	if tx := ledger.Normalize(raw); tx.Vendor != "SALARY ACME LTD" {
		t.Errorf("normalized vendor = %q, want raw description", tx.Vendor)
	}
	if raw["date"] != "2024-03-29T09:30:00Z" {
		t.Errorf("date = %v, want booking datetime", raw["date"])
	}
	if _, ok := raw["category"]; ok {
		t.Error("Expected no category for NULL category_name")
	}
	if _, ok := raw["timestamp"]; ok {
		t.Error("Expected no timestamp for zero created_ts")
	}
}

func TestScanQuery(t *testing.T) {
	q := scanQuery("proj", "finance", "transactions")
	if !strings.Contains(q, "`proj.finance.transactions`") {
		t.Errorf("query does not reference the table: %s", q)
	}
	if !strings.Contains(q, "ORDER BY t.transaction_date DESC") {
		t.Errorf("query is not ordered newest first: %s", q)
	}
}
