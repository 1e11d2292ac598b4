package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/acct-ai/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", zerolog.Nop(), WithHTTPClient(srv.Client()))
}

func TestFetchTransactions_Envelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/transactions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{
			"transactions": [{"id":"1","amount":12.5,"date":"2024-04-03"}, 42, {"id":"2","total":"7"}],
			"stats": {"total_transactions": 2, "total_amount": "19.5", "biggest_vendor": "Acme", "generated_at": "2024-04-10T00:00:00Z"},
			"summary": "Two receipts."
		}`)
	})

	got, err := client.FetchTransactions(context.Background())
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}
	if len(got.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2 (non-object dropped)", len(got.Transactions))
	}
	if _, ok := got.Transactions[0]["amount"].(json.Number); !ok {
		t.Errorf("amount decoded as %T, want json.Number", got.Transactions[0]["amount"])
	}
	if got.Stats == nil || *got.Stats.TotalTransactions != 2 || *got.Stats.TotalAmount != 19.5 {
		t.Errorf("Stats = %+v", got.Stats)
	}
	if got.Summary != "Two receipts." {
		t.Errorf("Summary = %q", got.Summary)
	}
}

func TestFetchTransactions_BareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, ` [{"id":"1"},{"id":"2"}]`)
	})

	got, err := client.FetchTransactions(context.Background())
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}
	if len(got.Transactions) != 2 || got.Stats != nil || got.Summary != "" {
		t.Errorf("FetchTransactions() = %+v", got)
	}
}

func TestFetchTransactions_Errors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantClass string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantClass: ClassStatus,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "<html>gateway</html>")
			},
			wantClass: ClassDecode,
		},
		{
			name: "transactions not a list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"transactions": "nope"}`)
			},
			wantClass: ClassDecode,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantClass: ClassDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.FetchTransactions(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := Classify(err); got != tt.wantClass {
				t.Errorf("Classify() = %s, want %s (err: %v)", got, tt.wantClass, err)
			}
		})
	}
}

func TestFetchTransactions_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client := New(base, zerolog.Nop())
	_, err := client.FetchTransactions(context.Background())

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
}

func TestStatusError_Body(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, strings.Repeat("x", 2000))
	})

	_, err := client.FetchSummary(context.Background(), 0)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d", statusErr.StatusCode)
	}
	if len(statusErr.Body) != maxErrorBody {
		t.Errorf("Body length = %d, want truncated to %d", len(statusErr.Body), maxErrorBody)
	}
}

func TestFetchSummary(t *testing.T) {
	tests := []struct {
		name        string
		limit       int
		body        string
		wantQuery   string
		wantSummary string
		wantKey     string
	}{
		{
			name:        "canonical summary",
			limit:       5,
			body:        `{"status":"success","summary":"All good.","summaryKey":"summaries/summary-1.json","transactions":[{"id":"1"}]}`,
			wantQuery:   "limit=5",
			wantSummary: "All good.",
			wantKey:     "summaries/summary-1.json",
		},
		{
			name:        "legacy ai_summary",
			body:        `{"ai_summary":"Legacy text."}`,
			wantSummary: "Legacy text.",
		},
		{
			name:        "no data",
			body:        `{"status":"no_data","summary":"No transactions yet.","summaryKey":null,"transactions":[]}`,
			wantSummary: "No transactions yet.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.RawQuery != tt.wantQuery {
					t.Errorf("query = %q, want %q", r.URL.RawQuery, tt.wantQuery)
				}
				io.WriteString(w, tt.body)
			})

			got, err := client.FetchSummary(context.Background(), tt.limit)
			if err != nil {
				t.Fatalf("FetchSummary() error = %v", err)
			}
			if got.Summary != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", got.Summary, tt.wantSummary)
			}
			if got.SummaryKey != tt.wantKey {
				t.Errorf("SummaryKey = %q, want %q", got.SummaryKey, tt.wantKey)
			}
		})
	}
}

func TestRequestUploadURL(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantURL string
		wantKey string
		wantErr bool
	}{
		{name: "canonical", body: `{"uploadUrl":"https://storage/put","key":"uploads/a.pdf"}`, wantURL: "https://storage/put", wantKey: "uploads/a.pdf"},
		{name: "legacy field", body: `{"upload_url":"https://storage/legacy","object_name":"uploads/b.pdf"}`, wantURL: "https://storage/legacy", wantKey: "uploads/b.pdf"},
		{name: "missing url", body: `{"key":"x"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				var req map[string]string
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if req["filename"] != "receipt.pdf" || req["contentType"] != "application/pdf" {
					t.Errorf("request body = %v", req)
				}
				io.WriteString(w, tt.body)
			})

			got, err := client.RequestUploadURL(context.Background(), "receipt.pdf", "application/pdf")
			if (err != nil) != tt.wantErr {
				t.Fatalf("RequestUploadURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if Classify(err) != ClassDecode {
					t.Errorf("Classify() = %s, want decode", Classify(err))
				}
				return
			}
			if got.UploadURL != tt.wantURL || got.Key != tt.wantKey {
				t.Errorf("RequestUploadURL() = %+v", got)
			}
		})
	}
}

func TestPutObject(t *testing.T) {
	var gotBody, gotType string
	var gotLength int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/uploads/a.pdf" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotType = r.Header.Get("Content-Type")
		gotLength = r.ContentLength
		w.WriteHeader(http.StatusOK)
	})

	err := client.PutObject(context.Background(), "/uploads/a.pdf", "application/pdf", strings.NewReader("%PDF"), 4)
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if gotBody != "%PDF" || gotType != "application/pdf" || gotLength != 4 {
		t.Errorf("server saw body=%q type=%q length=%d", gotBody, gotType, gotLength)
	}
}

func TestPredict(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Transactions []domain.RawTransaction `json:"transactions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(req.Transactions) != 1 {
			t.Errorf("sent %d transactions, want 1", len(req.Transactions))
		}
		io.WriteString(w, `{"next_period":"Jun 2024","projected_net":-120.5}`)
	})

	got, err := client.Predict(context.Background(), []domain.RawTransaction{{"amount": 1.0}})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got.NextPeriod == nil || *got.NextPeriod != "Jun 2024" {
		t.Errorf("NextPeriod = %v", got.NextPeriod)
	}
	if got.ProjectedNet == nil || *got.ProjectedNet != -120.5 {
		t.Errorf("ProjectedNet = %v", got.ProjectedNet)
	}
	if got.Trend != nil {
		t.Errorf("Trend = %v, want nil when absent", *got.Trend)
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	c := New("http://ledger.local", zerolog.Nop())
	if c.http.Timeout != defaultTimeout {
		t.Errorf("http timeout = %v, want %v", c.http.Timeout, defaultTimeout)
	}
}
