// Package dashboard serves the signed-in dashboard: it fetches from the
// accounting API, runs the ledger pipeline and presents failures as notices
// while keeping the last good state on screen.
package dashboard

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/dvloznov/acct-ai/internal/apiclient"
	"github.com/dvloznov/acct-ai/internal/domain"
	"github.com/dvloznov/acct-ai/internal/ledger"
	"github.com/dvloznov/acct-ai/internal/logger"
)

// API is the subset of the accounting API the dashboard reads from.
type API interface {
	FetchTransactions(ctx context.Context) (apiclient.TransactionsPayload, error)
	FetchSummary(ctx context.Context, limit int) (apiclient.SummaryPayload, error)
	Predict(ctx context.Context, txs []domain.RawTransaction) (domain.PredictionResponse, error)
}

// Notice is a transient message for the user. The dashboard never fails a
// read outright; it returns the prior state plus a notice.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Class   string `json:"class,omitempty"`
}

// Snapshot is everything the dashboard page renders.
type Snapshot struct {
	Series    []domain.MonthlyPoint `json:"series"`
	Metrics   ledger.Metrics        `json:"metrics"`
	Rows      []ledger.Row          `json:"transactions"`
	Summary   string                `json:"summary,omitempty"`
	Empty     bool                  `json:"empty"`
	FetchedAt *time.Time            `json:"fetched_at,omitempty"`
	Stale     bool                  `json:"stale"`
	Notice    *Notice               `json:"notice,omitempty"`
}

// SummaryView is the AI summary panel.
type SummaryView struct {
	Summary    string         `json:"summary"`
	SummaryKey string         `json:"summary_key,omitempty"`
	Metrics    ledger.Metrics `json:"metrics"`
	Stale      bool           `json:"stale"`
	Notice     *Notice        `json:"notice,omitempty"`
}

// PredictionView renders a forecast with every field pre-formatted.
type PredictionView struct {
	NextPeriod       string  `json:"next_period"`
	ProjectedInflow  string  `json:"projected_inflow"`
	ProjectedOutflow string  `json:"projected_outflow"`
	ProjectedNet     string  `json:"projected_net"`
	Trend            string  `json:"trend"`
	Confidence       string  `json:"confidence"`
	MonthsConsidered string  `json:"months_considered"`
	GeneratedAt      string  `json:"generated_at"`
	Message          string  `json:"message,omitempty"`
	Stale            bool    `json:"stale"`
	Notice           *Notice `json:"notice,omitempty"`
}

const noSummaryYet = "No summary yet."

type snapshotEntry struct {
	snapshot Snapshot
	raws     []domain.RawTransaction
}

// Service builds dashboard views. It is safe for concurrent use.
type Service struct {
	api   API
	cache *cache.Cache
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a Service that remembers the last good views for ttl.
func NewService(api API, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{
		api:   api,
		cache: cache.New(ttl, 2*ttl),
		log:   logger.Component(log, "dashboard"),
		now:   time.Now,
	}
}

// Snapshot fetches and aggregates the slot's transactions.
func (s *Service) Snapshot(ctx context.Context, slot string) Snapshot {
	payload, err := s.api.FetchTransactions(ctx)
	if err != nil {
		notice := s.failure(err, "Could not refresh transactions.")
		if entry, ok := s.lastSnapshot(slot); ok {
			snap := entry.snapshot
			snap.Stale = true
			snap.Notice = notice
			return snap
		}
		snap := s.buildSnapshot(apiclient.TransactionsPayload{})
		snap.FetchedAt = nil
		snap.Notice = notice
		return snap
	}

	snap := s.buildSnapshot(payload)
	s.cache.Set(snapshotKey(slot), snapshotEntry{snapshot: snap, raws: payload.Transactions}, cache.DefaultExpiration)
	return snap
}

// Summary fetches the AI summary, limited to the first limit transactions.
func (s *Service) Summary(ctx context.Context, slot string, limit int) SummaryView {
	payload, err := s.api.FetchSummary(ctx, limit)
	if err != nil {
		notice := s.failure(err, "Could not load the AI summary.")
		if cached, ok := s.cache.Get(summaryKey(slot)); ok {
			view := cached.(SummaryView)
			view.Stale = true
			view.Notice = notice
			return view
		}
		return SummaryView{
			Summary: noSummaryYet,
			Metrics: ledger.BuildMetrics(nil, nil, s.now()),
			Notice:  notice,
		}
	}

	view := SummaryView{
		Summary:    payload.Summary,
		SummaryKey: payload.SummaryKey,
		Metrics:    ledger.BuildMetrics(payload.Stats, ledger.NormalizeAll(payload.Transactions), s.now()),
	}
	if view.Summary == "" {
		view.Summary = noSummaryYet
	}
	s.cache.Set(summaryKey(slot), view, cache.DefaultExpiration)
	return view
}

// Prediction asks for a forecast over the slot's last fetched transactions.
func (s *Service) Prediction(ctx context.Context, slot string) PredictionView {
	var raws []domain.RawTransaction
	if entry, ok := s.lastSnapshot(slot); ok {
		raws = entry.raws
	}

	resp, err := s.api.Predict(ctx, raws)
	if err != nil {
		notice := s.failure(err, "Could not generate a prediction.")
		if cached, ok := s.cache.Get(predictionKey(slot)); ok {
			view := cached.(PredictionView)
			view.Stale = true
			view.Notice = notice
			return view
		}
		view := RenderPrediction(domain.PredictionResponse{}, s.now())
		view.Notice = notice
		return view
	}

	view := RenderPrediction(resp, s.now())
	s.cache.Set(predictionKey(slot), view, cache.DefaultExpiration)
	return view
}

// Forget drops every cached view of slot, e.g. on sign-out.
func (s *Service) Forget(slot string) {
	s.cache.Delete(snapshotKey(slot))
	s.cache.Delete(summaryKey(slot))
	s.cache.Delete(predictionKey(slot))
}

func (s *Service) buildSnapshot(payload apiclient.TransactionsPayload) Snapshot {
	now := s.now()
	txs := ledger.NormalizeAll(payload.Transactions)
	series := ledger.BuildMonthlySeries(txs)
	return Snapshot{
		Series:    series,
		Metrics:   ledger.BuildMetrics(payload.Stats, txs, now),
		Rows:      ledger.BuildRows(txs),
		Summary:   payload.Summary,
		Empty:     len(series) == 0,
		FetchedAt: &now,
	}
}

func (s *Service) lastSnapshot(slot string) (snapshotEntry, bool) {
	cached, ok := s.cache.Get(snapshotKey(slot))
	if !ok {
		return snapshotEntry{}, false
	}
	return cached.(snapshotEntry), true
}

func (s *Service) failure(err error, message string) *Notice {
	class := apiclient.Classify(err)
	s.log.Error().Err(err).Str("class", class).Msg(message)
	return &Notice{Level: "error", Message: message, Class: class}
}

// RenderPrediction formats every optional field, using sentinels for gaps.
func RenderPrediction(resp domain.PredictionResponse, now time.Time) PredictionView {
	view := PredictionView{
		NextPeriod:       ledger.Placeholder,
		ProjectedInflow:  ledger.FormatCurrency(resp.ProjectedInflow),
		ProjectedOutflow: ledger.FormatCurrency(resp.ProjectedOutflow),
		ProjectedNet:     ledger.FormatCurrency(resp.ProjectedNet),
		Trend:            ledger.Placeholder,
		Confidence:       ledger.Placeholder,
		MonthsConsidered: ledger.Placeholder,
		Message:          resp.Message,
	}
	if resp.NextPeriod != nil && *resp.NextPeriod != "" {
		view.NextPeriod = *resp.NextPeriod
	}
	if resp.Trend != nil && *resp.Trend != "" {
		view.Trend = *resp.Trend
	}
	if resp.Confidence != nil && *resp.Confidence != "" {
		view.Confidence = *resp.Confidence
	}
	if resp.MonthsConsidered != nil {
		view.MonthsConsidered = ledger.FormatCount(*resp.MonthsConsidered)
	}
	if resp.GeneratedAt != nil {
		view.GeneratedAt = ledger.FormatRelativeTime(*resp.GeneratedAt, now)
	}
	return view
}

func snapshotKey(slot string) string   { return "snapshot:" + slot }
func summaryKey(slot string) string    { return "summary:" + slot }
func predictionKey(slot string) string { return "prediction:" + slot }
