package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/acct-ai/internal/domain"
)

// TransactionRow is the slice of the transactions table the ledger reads.
// Bank amounts are signed the statement way: money in is positive.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TransactionDate civil.Date            `bigquery:"transaction_date"` // REQUIRED
	BookingDatetime bigquery.NullDateTime `bigquery:"booking_datetime"` // NULLABLE

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	RawDescription        string              `bigquery:"raw_description"`        // REQUIRED STRING
	NormalizedDescription bigquery.NullString `bigquery:"normalized_description"` // NULLABLE STRING

	CategoryName bigquery.NullString `bigquery:"category_name"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"`
}

// ToRaw maps a row onto the wire record served by GET /transactions.
// The amount is negated so that money in becomes negative, which is how the
// ledger tells inflow from spend.
func (r *TransactionRow) ToRaw() domain.RawTransaction {
	raw := domain.RawTransaction{
		"id":          r.TransactionID,
		"description": r.RawDescription,
		"currency":    r.Currency,
	}

	if r.NormalizedDescription.Valid && r.NormalizedDescription.StringVal != "" {
		raw["vendor"] = r.NormalizedDescription.StringVal
	}

	if r.CategoryName.Valid {
		raw["category"] = r.CategoryName.StringVal
	}

	if r.Amount != nil {
		amount, _ := new(big.Rat).Neg(r.Amount).Float64()
		raw["amount"] = amount
	}

	if r.BookingDatetime.Valid {
		dt := r.BookingDatetime.DateTime
		raw["date"] = dt.In(time.UTC).Format(time.RFC3339)
	} else if r.TransactionDate.IsValid() {
		raw["date"] = r.TransactionDate.String()
	}

	if !r.CreatedTS.IsZero() {
		raw["timestamp"] = r.CreatedTS.UTC().Format(time.RFC3339)
	}
	return raw
}
