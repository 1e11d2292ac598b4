package ledger

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/acct-ai/internal/domain"
)

// Sentinels rendered when a value is missing or unusable.
const (
	Placeholder     = "-"
	AwaitingUploads = "Awaiting uploads"
)

const displayDateLayout = "Jan 2, 2006"

// FormatCurrency renders a whole-dollar USD amount such as "$1,235" or "-$40".
// Halves round away from zero.
func FormatCurrency(v interface{}) string {
	f, ok := domain.AsFloat(v)
	if !ok {
		return Placeholder
	}

	rounded := decimal.NewFromFloat(f).Round(0)
	grouped := humanize.BigComma(rounded.Abs().BigInt())
	if rounded.IsNegative() {
		return "-$" + grouped
	}
	return "$" + grouped
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatDate renders a date such as "Apr 3, 2024".
func FormatDate(v interface{}) string {
	t, ok := ParseTime(v)
	if !ok {
		return Placeholder
	}
	return t.Format(displayDateLayout)
}

// FormatRelativeTime renders v relative to now, e.g. "3 days ago".
// Unparseable input yields "".
func FormatRelativeTime(v interface{}, now time.Time) string {
	t, ok := ParseTime(v)
	if !ok {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
