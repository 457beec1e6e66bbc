package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/jobs"
	"github.com/cloo-solutions/docqa/internal/metrics"
	"github.com/cloo-solutions/docqa/internal/store"
)

// Credential is the caller's key for the embedding and completion services.
// It is passed with every request and never stored process-wide.
type Credential string

// ModelClient talks to the embedding and completion services for one credential.
type ModelClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// ClientFactory returns a ModelClient authenticated with credential.
type ClientFactory func(credential Credential) (ModelClient, error)

// EmbeddingService embeds chunks in batches with bounded concurrency.
type EmbeddingService struct {
	runner *jobs.BatchRunner
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(runner *jobs.BatchRunner) *EmbeddingService {
	if runner == nil {
		runner = jobs.NewBatchRunner(jobs.DefaultBatchSize, jobs.DefaultConcurrency, jobs.DefaultRetryPolicy())
	}
	return &EmbeddingService{runner: runner}
}

// EmbedChunks embeds every chunk and returns a store whose record order equals chunk order.
func (s *EmbeddingService) EmbedChunks(ctx context.Context, client ModelClient, chunks []domain.Chunk) (*store.Store, error) {
	vectors := make([][]float32, len(chunks))

	err := s.runner.Run(ctx, len(chunks), func(ctx context.Context, b jobs.Batch) error {
		texts := make([]string, 0, b.End-b.Start)
		for _, ch := range chunks[b.Start:b.End] {
			texts = append(texts, ch.Text)
		}

		vecs, err := client.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(texts) {
			return domain.NewServiceError("embedding", domain.ServiceErrorMalformedResponse,
				fmt.Errorf("batch %d: got %d embeddings for %d chunks", b.Index, len(vecs), len(texts)))
		}
		copy(vectors[b.Start:b.End], vecs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	st := store.New()
	for i, ch := range chunks {
		if err := st.Append(domain.EmbeddingRecord{Text: ch.Text, TokenCount: ch.TokenCount, Embedding: vectors[i]}); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	metrics.ChunksTotal.Add(float64(len(chunks)))

	return st, nil
}
