package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/service"
)

// RecordRepository persists the current embedding store. Row position is the
// record's index in the store.
type RecordRepository struct {
	db     dbtx
	runner *TxRunner
}

func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{db: pool, runner: NewTxRunner(pool)}
}

func NewRecordRepositoryWithTx(tx dbtx) *RecordRepository {
	return &RecordRepository{db: tx}
}

// ReplaceAll swaps the persisted store for records in one transaction.
func (r *RecordRepository) ReplaceAll(ctx context.Context, records []domain.EmbeddingRecord) error {
	if r.runner == nil {
		return r.replace(ctx, records)
	}
	return r.runner.WithTx(ctx, func(repos *TxRepos) error {
		return repos.Records().replace(ctx, records)
	})
}

func (r *RecordRepository) replace(ctx context.Context, records []domain.EmbeddingRecord) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM embedding_records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, rec := range records {
		batch.Queue(
			`INSERT INTO embedding_records (position, text, n_tokens, embedding)
			 VALUES ($1, $2, $3, $4)`,
			i, rec.Text, rec.TokenCount, pgvector.NewVector(rec.Embedding),
		)
	}

	results := r.db.SendBatch(ctx, batch)
	for i := range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}
	return results.Close()
}

// ListAll returns every persisted record in store order.
func (r *RecordRepository) ListAll(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT text, n_tokens, embedding::text
		 FROM embedding_records
		 ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.EmbeddingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Nearest returns the limit records closest to query by cosine distance,
// ties broken by store order.
func (r *RecordRepository) Nearest(ctx context.Context, query []float32, limit int) ([]service.ScoredRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT text, n_tokens, embedding::text, embedding <=> $1 AS distance
		 FROM embedding_records
		 ORDER BY distance, position
		 LIMIT $2`,
		pgvector.NewVector(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []service.ScoredRecord
	for rows.Next() {
		var (
			text     string
			nTokens  int
			raw      string
			distance float64
		)
		if err := rows.Scan(&text, &nTokens, &raw, &distance); err != nil {
			return nil, err
		}
		vec, err := parseVector(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, service.ScoredRecord{
			Record:   domain.EmbeddingRecord{Text: text, TokenCount: nTokens, Embedding: vec},
			Distance: distance,
		})
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (domain.EmbeddingRecord, error) {
	var (
		rec domain.EmbeddingRecord
		raw string
	)
	if err := row.Scan(&rec.Text, &rec.TokenCount, &raw); err != nil {
		return rec, err
	}
	vec, err := parseVector(raw)
	if err != nil {
		return rec, err
	}
	rec.Embedding = vec
	return rec, nil
}

func parseVector(raw string) ([]float32, error) {
	var v pgvector.Vector
	if err := v.Scan(raw); err != nil {
		return nil, fmt.Errorf("failed to parse embedding: %w", err)
	}
	return v.Slice(), nil
}
