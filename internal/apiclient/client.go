// Package apiclient talks to the remote accounting API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/acct-ai/internal/domain"
	"github.com/dvloznov/acct-ai/internal/logger"
)

const (
	maxResponseBytes = 10 << 20
	maxErrorBody     = 512
	defaultTimeout   = 2 * time.Minute
)

// Client is safe for concurrent use. It never retries and relies on the
// caller's context for cancellation.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logger.Component(log, "apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestUploadURL asks the API for a pre-signed destination for one file.
func (c *Client) RequestUploadURL(ctx context.Context, filename, contentType string) (UploadTarget, error) {
	const op = "RequestUploadURL"

	payload, err := json.Marshal(uploadURLRequest{Filename: filename, ContentType: contentType})
	if err != nil {
		return UploadTarget{}, fmt.Errorf("%s: marshal request: %w", op, err)
	}

	body, err := c.do(ctx, op, http.MethodPost, c.endpoint("/upload-url"), bytes.NewReader(payload), "application/json", -1)
	if err != nil {
		return UploadTarget{}, err
	}

	var resp uploadURLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return UploadTarget{}, &DecodeError{Op: op, Err: err}
	}

	target := UploadTarget{UploadURL: resp.UploadURL, Key: resp.Key}
	if target.UploadURL == "" && resp.LegacyUploadURL != "" {
		c.log.Debug().Msg("upload-url response used legacy upload_url field")
		target.UploadURL = resp.LegacyUploadURL
	}
	if target.Key == "" {
		target.Key = resp.LegacyObject
	}
	if target.UploadURL == "" {
		return UploadTarget{}, &DecodeError{Op: op, Err: errors.New("response has no uploadUrl")}
	}
	return target, nil
}

// PutObject uploads raw bytes to a pre-signed URL.
func (c *Client) PutObject(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error {
	const op = "PutObject"
	_, err := c.do(ctx, op, http.MethodPut, c.resolve(uploadURL), body, contentType, size)
	return err
}

// FetchTransactions loads the transaction list.
// The enveloped object is the canonical shape; a bare array is still accepted.
func (c *Client) FetchTransactions(ctx context.Context) (TransactionsPayload, error) {
	const op = "FetchTransactions"

	body, err := c.do(ctx, op, http.MethodGet, c.endpoint("/transactions"), nil, "", -1)
	if err != nil {
		return TransactionsPayload{}, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return TransactionsPayload{}, &DecodeError{Op: op, Err: errors.New("empty body")}
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return TransactionsPayload{}, &DecodeError{Op: op, Err: err}
		}
		c.log.Debug().Int("count", len(items)).Msg("transactions response used legacy bare-array shape")
		return TransactionsPayload{Transactions: c.decodeRecords(items)}, nil

	case '{':
		var env struct {
			Transactions []json.RawMessage `json:"transactions"`
			Stats        json.RawMessage   `json:"stats"`
			Summary      *string           `json:"summary"`
			AISummary    *string           `json:"ai_summary"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return TransactionsPayload{}, &DecodeError{Op: op, Err: err}
		}
		return TransactionsPayload{
			Transactions: c.decodeRecords(env.Transactions),
			Stats:        c.decodeStats(env.Stats),
			Summary:      pickSummary(env.Summary, env.AISummary),
		}, nil

	default:
		return TransactionsPayload{}, &DecodeError{Op: op, Err: fmt.Errorf("unexpected JSON value starting with %q", trimmed[0])}
	}
}

// FetchSummary loads the AI summary. A limit of zero or less asks for everything.
func (c *Client) FetchSummary(ctx context.Context, limit int) (SummaryPayload, error) {
	const op = "FetchSummary"

	endpoint := c.endpoint("/summary")
	if limit > 0 {
		endpoint += "?" + url.Values{"limit": []string{strconv.Itoa(limit)}}.Encode()
	}

	body, err := c.do(ctx, op, http.MethodGet, endpoint, nil, "", -1)
	if err != nil {
		return SummaryPayload{}, err
	}

	var resp struct {
		Status       string            `json:"status"`
		Summary      *string           `json:"summary"`
		AISummary    *string           `json:"ai_summary"`
		Stats        json.RawMessage   `json:"stats"`
		SummaryKey   *string           `json:"summaryKey"`
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return SummaryPayload{}, &DecodeError{Op: op, Err: err}
	}

	payload := SummaryPayload{
		Status:       resp.Status,
		Summary:      pickSummary(resp.Summary, resp.AISummary),
		Stats:        c.decodeStats(resp.Stats),
		Transactions: c.decodeRecords(resp.Transactions),
	}
	if resp.SummaryKey != nil {
		payload.SummaryKey = *resp.SummaryKey
	}
	return payload, nil
}

// Predict requests a cash-flow forecast. With no transactions the server
// forecasts from its own ledger.
func (c *Client) Predict(ctx context.Context, txs []domain.RawTransaction) (domain.PredictionResponse, error) {
	const op = "Predict"

	payload, err := json.Marshal(predictRequest{Transactions: txs})
	if err != nil {
		return domain.PredictionResponse{}, fmt.Errorf("%s: marshal request: %w", op, err)
	}

	body, err := c.do(ctx, op, http.MethodPost, c.endpoint("/predict"), bytes.NewReader(payload), "application/json", -1)
	if err != nil {
		return domain.PredictionResponse{}, err
	}

	var resp domain.PredictionResponse
	if len(bytes.TrimSpace(body)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PredictionResponse{}, &DecodeError{Op: op, Err: err}
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, op, method, target string, body io.Reader, contentType string, size int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(data))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: text}
	}

	c.log.Debug().
		Str("op", op).
		Str("method", method).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("api call completed")
	return data, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

func (c *Client) resolve(target string) string {
	if strings.HasPrefix(target, "/") {
		return c.baseURL + target
	}
	return target
}

// decodeRecords keeps every element that is a JSON object and drops the rest.
func (c *Client) decodeRecords(items []json.RawMessage) []domain.RawTransaction {
	records := make([]domain.RawTransaction, 0, len(items))
	for i, item := range items {
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()

		var rec domain.RawTransaction
		if err := dec.Decode(&rec); err != nil || rec == nil {
			c.log.Debug().Int("index", i).Msg("dropping non-object transaction record")
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (c *Client) decodeStats(raw json.RawMessage) *domain.TransactionStats {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var stats domain.TransactionStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.log.Debug().Err(err).Msg("ignoring malformed stats")
		return nil
	}
	return &stats
}

// pickSummary prefers "summary" and falls back to the older "ai_summary".
func pickSummary(summary, aiSummary *string) string {
	if summary != nil && *summary != "" {
		return *summary
	}
	if aiSummary != nil {
		return *aiSummary
	}
	return ""
}
