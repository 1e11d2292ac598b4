package apiclient

import "github.com/dvloznov/acct-ai/internal/domain"

// UploadTarget is where a single file should be PUT.
type UploadTarget struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key,omitempty"`
}

// TransactionsPayload is the canonical result of GET /transactions.
type TransactionsPayload struct {
	Transactions []domain.RawTransaction  `json:"transactions"`
	Stats        *domain.TransactionStats `json:"stats,omitempty"`
	Summary      string                   `json:"summary,omitempty"`
}

// SummaryPayload is the canonical result of GET /summary.
type SummaryPayload struct {
	Status       string                   `json:"status,omitempty"`
	Summary      string                   `json:"summary,omitempty"`
	Stats        *domain.TransactionStats `json:"stats,omitempty"`
	SummaryKey   string                   `json:"summaryKey,omitempty"`
	Transactions []domain.RawTransaction  `json:"transactions"`
}

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type uploadURLResponse struct {
	UploadURL       string `json:"uploadUrl"`
	LegacyUploadURL string `json:"upload_url"`
	Key             string `json:"key"`
	LegacyObject    string `json:"object_name"`
}

type predictRequest struct {
	Transactions []domain.RawTransaction `json:"transactions,omitempty"`
}
