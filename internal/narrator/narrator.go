package narrator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dvloznov/acct-ai/internal/domain"
	"github.com/dvloznov/acct-ai/internal/ledger"
)

// Narrator turns ledger stats into the human summary shown on the dashboard.
type Narrator interface {
	Narrate(ctx context.Context, stats domain.TransactionStats) (string, error)
}

// Template renders the fixed summary sentence. It never fails.
type Template struct{}

// Narrate implements Narrator.
func (Template) Narrate(_ context.Context, stats domain.TransactionStats) (string, error) {
	return ledger.SummaryText(stats), nil
}

// Fallback tries Primary and falls back to the template text on error or an
// empty answer.
type Fallback struct {
	Primary Narrator
	Log     zerolog.Logger
}

// Narrate implements Narrator.
func (f Fallback) Narrate(ctx context.Context, stats domain.TransactionStats) (string, error) {
	if f.Primary != nil {
		text, err := f.Primary.Narrate(ctx, stats)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			f.Log.Warn().Err(err).Msg("narrator failed, using template summary")
		}
	}
	return Template{}.Narrate(ctx, stats)
}
