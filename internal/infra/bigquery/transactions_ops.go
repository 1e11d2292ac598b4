package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/acct-ai/internal/domain"
)

// TransactionRepository reads the ledger from a BigQuery table. It holds one
// shared client for its lifetime.
type TransactionRepository struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
	log     zerolog.Logger
}

// NewTransactionRepository opens a BigQuery client for project.
func NewTransactionRepository(ctx context.Context, project, dataset, table string, log zerolog.Logger) (*TransactionRepository, error) {
	if project == "" || dataset == "" || table == "" {
		return nil, fmt.Errorf("NewTransactionRepository: project, dataset and table are required")
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewTransactionRepository: creating client: %w", err)
	}
	return &TransactionRepository{
		client:  client,
		project: project,
		dataset: dataset,
		table:   table,
		log:     log,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *TransactionRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ScanTransactions returns every stored transaction, newest first.
func (r *TransactionRepository) ScanTransactions(ctx context.Context) ([]domain.RawTransaction, error) {
	q := r.client.Query(scanQuery(r.project, r.dataset, r.table))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ScanTransactions: query read: %w", err)
	}

	raws := make([]domain.RawTransaction, 0)
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ScanTransactions: iter next: %w", err)
		}
		raws = append(raws, row.ToRaw())
	}

	r.log.Debug().Int("rows", len(raws)).Str("table", r.table).Msg("transactions scanned")
	return raws, nil
}

func scanQuery(project, dataset, table string) string {
	return fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.transaction_date,
			t.booking_datetime,
			t.amount,
			t.currency,
			t.raw_description,
			t.normalized_description,
			t.category_name,
			t.created_ts
		FROM `+"`%s.%s.%s`"+` t
		ORDER BY t.transaction_date DESC, t.created_ts DESC
	`, project, dataset, table)
}
