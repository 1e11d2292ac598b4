package domain

import "encoding/json"

// TransactionStats is the server-computed aggregate passed through to the
// dashboard. Every field is optional on the wire.
type TransactionStats struct {
	TotalTransactions *int     `json:"total_transactions"`
	TotalAmount       *float64 `json:"total_amount"`
	BiggestVendor     *string  `json:"biggest_vendor"`
	GeneratedAt       string   `json:"generated_at,omitempty"`
}

// UnmarshalJSON accepts numbers encoded as strings and ignores fields of the
// wrong type instead of failing the whole payload.
func (s *TransactionStats) UnmarshalJSON(data []byte) error {
	var raw RawTransaction
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = TransactionStats{}
	if n, ok := raw.Float("total_transactions"); ok {
		count := int(n)
		s.TotalTransactions = &count
	}
	if amount, ok := raw.Float("total_amount"); ok {
		s.TotalAmount = &amount
	}
	if vendor := raw.String("biggest_vendor"); vendor != "" {
		s.BiggestVendor = &vendor
	}
	s.GeneratedAt = raw.String("generated_at")
	return nil
}

// MonthlyPoint is one chart-ready bucket of the monthly cash-flow series.
type MonthlyPoint struct {
	Key     string  `json:"key"`    // "YYYY-MM"
	Period  string  `json:"period"` // "Apr 2024"
	Inflow  float64 `json:"inflow"`
	Outflow float64 `json:"outflow"`
}

// PredictionResponse is the body of POST /predict. All fields are optional.
type PredictionResponse struct {
	NextPeriod       *string  `json:"next_period,omitempty"`
	ProjectedInflow  *float64 `json:"projected_inflow,omitempty"`
	ProjectedOutflow *float64 `json:"projected_outflow,omitempty"`
	ProjectedNet     *float64 `json:"projected_net,omitempty"`
	Trend            *string  `json:"trend,omitempty"`
	Confidence       *string  `json:"confidence,omitempty"`
	MonthsConsidered *int     `json:"months_considered,omitempty"`
	GeneratedAt      *string  `json:"generated_at,omitempty"`
	Message          string   `json:"message,omitempty"`
}
