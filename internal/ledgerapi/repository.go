package ledgerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dvloznov/acct-ai/internal/domain"
)

// Repository is the transaction store behind the ledger API.
type Repository interface {
	ScanTransactions(ctx context.Context) ([]domain.RawTransaction, error)
}

// MemoryRepository serves a fixed set of records. It backs local runs and tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	raws []domain.RawTransaction
}

// NewMemoryRepository creates a repository holding raws.
func NewMemoryRepository(raws []domain.RawTransaction) *MemoryRepository {
	return &MemoryRepository{raws: raws}
}

// LoadMemoryRepository reads a JSON seed file. The file holds either an array
// of records or an object with a "transactions" array. An empty path gives an
// empty repository.
func LoadMemoryRepository(path string) (*MemoryRepository, error) {
	if path == "" {
		return NewMemoryRepository(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %q: %w", path, err)
	}

	raws, err := decodeSeed(data)
	if err != nil {
		return nil, fmt.Errorf("decode seed file %q: %w", path, err)
	}
	return NewMemoryRepository(raws), nil
}

func decodeSeed(data []byte) ([]domain.RawTransaction, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var raws []domain.RawTransaction
		if err := dec.Decode(&raws); err != nil {
			return nil, err
		}
		return raws, nil
	}

	var envelope struct {
		Transactions []domain.RawTransaction `json:"transactions"`
	}
	if err := dec.Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope.Transactions, nil
}

// ScanTransactions returns a copy of the stored records.
func (m *MemoryRepository) ScanTransactions(_ context.Context) ([]domain.RawTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.RawTransaction, len(m.raws))
	copy(out, m.raws)
	return out, nil
}

// Add appends records.
func (m *MemoryRepository) Add(raws ...domain.RawTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raws = append(m.raws, raws...)
}
