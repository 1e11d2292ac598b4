package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawTransaction is a transaction record as it arrives over the wire.
// Field presence and types are not guaranteed: amount may be a number or a
// numeric string, the date may live under "date" or "timestamp", and any
// number of extra fields may be attached.
type RawTransaction map[string]interface{}

// Transaction is the canonical record produced once at the normalization
// boundary. Aggregation and display code only ever see this shape.
type Transaction struct {
	ID          string
	Vendor      string // "vendor", else "description"
	Description string
	Category    string

	Amount    float64 // "amount", else "total"
	HasAmount bool

	Date    time.Time // "date", else "timestamp", always UTC
	HasDate bool

	Raw RawTransaction
}

// Float returns the value stored under key as a finite float64.
// JSON numbers, json.Number, Go numeric types and numeric strings are accepted.
func (r RawTransaction) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	return AsFloat(v)
}

// String returns the trimmed string stored under key, or "" when absent or not a string.
func (r RawTransaction) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}

// AsFloat coerces a loosely typed value to a finite float64.
func AsFloat(v interface{}) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = val
	case *float64:
		if val == nil {
			return 0, false
		}
		f = *val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
