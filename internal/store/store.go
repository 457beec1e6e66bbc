package store

import (
	"fmt"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// Store is an ordered, append-only sequence of embedding records sharing one dimensionality.
type Store struct {
	records    []domain.EmbeddingRecord
	dimensions int
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// FromRecords builds a Store from records, validating each one.
func FromRecords(records []domain.EmbeddingRecord) (*Store, error) {
	s := &Store{records: make([]domain.EmbeddingRecord, 0, len(records))}
	for i := range records {
		if err := s.Append(records[i]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return s, nil
}

// Append adds a record. The first record fixes the store's dimensionality.
func (s *Store) Append(rec domain.EmbeddingRecord) error {
	if err := domain.ValidateEmbeddingRecord(&rec); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidTable.Message, err)
	}
	if s.dimensions == 0 {
		s.dimensions = len(rec.Embedding)
	} else if len(rec.Embedding) != s.dimensions {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrDimensionMismatch.Message,
			fmt.Errorf("record has %d dimensions, store has %d", len(rec.Embedding), s.dimensions))
	}
	s.records = append(s.records, rec)
	return nil
}

// Records returns the records in insertion order. The slice must not be modified.
func (s *Store) Records() []domain.EmbeddingRecord {
	return s.records
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Dimensions returns the embedding dimensionality, or 0 for an empty store.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// TotalTokens returns the sum of the records' token counts.
func (s *Store) TotalTokens() int {
	total := 0
	for _, r := range s.records {
		total += r.TokenCount
	}
	return total
}

// Page returns up to limit records starting at offset.
func (s *Store) Page(offset, limit int) []domain.EmbeddingRecord {
	if offset < 0 || offset >= len(s.records) || limit <= 0 {
		return nil
	}
	end := offset + limit
	if end > len(s.records) {
		end = len(s.records)
	}
	return s.records[offset:end]
}
