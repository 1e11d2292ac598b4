package ledgerapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/acct-ai/internal/api/middleware"
	"github.com/dvloznov/acct-ai/internal/domain"
	"github.com/dvloznov/acct-ai/internal/forecast"
	"github.com/dvloznov/acct-ai/internal/ledger"
	"github.com/dvloznov/acct-ai/internal/logger"
	"github.com/dvloznov/acct-ai/internal/narrator"
	"github.com/dvloznov/acct-ai/internal/objectstore"
)

const (
	statusSuccess = "success"
	statusNoData  = "no_data"
	statusError   = "error"

	maxRequestBody = 1 << 20
	maxObjectBody  = 50 << 20
)

// Handler serves the ledger API.
type Handler struct {
	repo          Repository
	store         objectstore.Store
	narrator      narrator.Narrator
	summaryPrefix string
	now           func() time.Time
	log           zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithNarrator replaces the template summary writer.
func WithNarrator(n narrator.Narrator) Option {
	return func(h *Handler) { h.narrator = n }
}

// NewHandler creates a ledger API handler.
func NewHandler(repo Repository, store objectstore.Store, summaryPrefix string, log zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		repo:          repo,
		store:         store,
		narrator:      narrator.Template{},
		summaryPrefix: summaryPrefix,
		now:           time.Now,
		log:           log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type transactionsResponse struct {
	Transactions []domain.RawTransaction `json:"transactions"`
	Stats        domain.TransactionStats `json:"stats"`
	Summary      string                  `json:"summary"`
}

type summaryResponse struct {
	Status       string                  `json:"status"`
	Summary      string                  `json:"summary"`
	Stats        domain.TransactionStats `json:"stats"`
	SummaryKey   *string                 `json:"summaryKey"`
	Transactions []domain.RawTransaction `json:"transactions"`
}

type storedSummary struct {
	Summary string                  `json:"summary"`
	Stats   domain.TransactionStats `json:"stats"`
}

type predictRequest struct {
	Transactions []domain.RawTransaction `json:"transactions"`
}

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type uploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
}

// Transactions handles GET /transactions.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	raws, err := h.scan(r)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	now := h.now()
	if len(raws) == 0 {
		middleware.WriteJSON(w, http.StatusOK, transactionsResponse{
			Transactions: raws,
			Stats:        ledger.EmptyStats(now),
			Summary:      ledger.NoDataSummary,
		})
		return
	}

	stats := ledger.ComputeStats(raws, now)
	middleware.WriteJSON(w, http.StatusOK, transactionsResponse{
		Transactions: raws,
		Stats:        stats,
		Summary:      ledger.SummaryText(stats),
	})
}

// Summary handles GET /summary?limit=N. Stats cover the whole ledger; the
// limit only trims the returned records.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	limit := ledger.ParseLimit(r.URL.Query().Get("limit"))

	raws, err := h.scan(r)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	now := h.now()
	if len(raws) == 0 {
		middleware.WriteJSON(w, http.StatusOK, summaryResponse{
			Status:       statusNoData,
			Summary:      ledger.NoDataSummary,
			Stats:        ledger.EmptyStats(now),
			Transactions: raws,
		})
		return
	}

	stats := ledger.ComputeStats(raws, now)
	text, err := h.narrator.Narrate(r.Context(), stats)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	key := objectstore.SummaryKey(h.summaryPrefix, now)
	if err := h.store.PutJSON(r.Context(), key, storedSummary{Summary: text, Stats: stats}); err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, summaryResponse{
		Status:       statusSuccess,
		Summary:      text,
		Stats:        stats,
		SummaryKey:   &key,
		Transactions: ledger.ApplyLimit(raws, limit),
	})
}

// Predict handles POST /predict. Posted records take precedence over the
// stored ledger; an empty body forecasts the stored ledger.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	raws := req.Transactions
	if len(raws) == 0 {
		var err error
		raws, err = h.scan(r)
		if err != nil {
			h.fail(w, r, http.StatusInternalServerError, err)
			return
		}
	}

	series := ledger.BuildMonthlySeriesFromRaw(raws)
	middleware.WriteJSON(w, http.StatusOK, forecast.Predict(series, h.now()))
}

// UploadURL handles POST /upload-url.
func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadURLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		h.fail(w, r, http.StatusBadRequest, errors.New("filename is required"))
		return
	}
	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	key := objectstore.UploadKey(h.now(), req.Filename)
	uploadURL, err := h.store.SignedUploadURL(r.Context(), key, req.ContentType)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().
		Str("key", key).
		Str("content_type", req.ContentType).
		Msg("Upload URL issued")

	middleware.WriteJSON(w, http.StatusOK, uploadURLResponse{UploadURL: uploadURL, Key: key})
}

// PutObject handles PUT /uploads/*, the target of in-process upload URLs.
func (h *Handler) PutObject(w http.ResponseWriter, r *http.Request) {
	rest := chi.URLParam(r, "*")
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}
	if !validObjectPath(rest) {
		h.fail(w, r, http.StatusBadRequest, errors.New("invalid object key"))
		return
	}
	key := objectstore.UploadPrefix + "/" + rest

	contentType := r.Header.Get("Content-Type")
	if err := h.store.Put(r.Context(), key, contentType, http.MaxBytesReader(w, r.Body, maxObjectBody)); err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().Str("key", key).Msg("Object stored")
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": statusSuccess, "key": key})
}

// validObjectPath rejects empty paths and any ".." segment. Dots inside a
// name ("statement..final.pdf") are fine.
func validObjectPath(rest string) bool {
	if rest == "" {
		return false
	}
	for _, seg := range strings.Split(rest, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) scan(r *http.Request) ([]domain.RawTransaction, error) {
	raws, err := h.repo.ScanTransactions(r.Context())
	if err != nil {
		return nil, err
	}
	if raws == nil {
		raws = []domain.RawTransaction{}
	}
	return raws, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	log := logger.FromContext(r.Context())
	log.Error().
		Err(err).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")
	middleware.WriteJSON(w, status, map[string]string{"status": statusError, "message": err.Error()})
}
