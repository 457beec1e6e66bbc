package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/jobs"
	"github.com/cloo-solutions/docqa/internal/pdf"
)

// wordCounter counts whitespace separated words, a stand-in for a real tokenizer.
type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

type counterFunc func(string) int

func (f counterFunc) CountTokens(text string) int {
	return f(text)
}

func words(n int, word string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ")
}

// MockModelClient is a mock implementation of ModelClient
type MockModelClient struct {
	mock.Mock
}

func (m *MockModelClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockModelClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockModelClient) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockPDFExtractor is a mock implementation of PDFExtractor
type MockPDFExtractor struct {
	mock.Mock
}

func (m *MockPDFExtractor) Extract(data []byte, exclude map[int]bool) (*pdf.Extraction, error) {
	args := m.Called(data, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pdf.Extraction), args.Error(1)
}

// MockRecordRepository is a mock implementation of RecordRepository
type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) ReplaceAll(ctx context.Context, records []domain.EmbeddingRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockRecordRepository) ListAll(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EmbeddingRecord), args.Error(1)
}

// MockQuestionLogRepository is a mock implementation of QuestionLogRepository
type MockQuestionLogRepository struct {
	mock.Mock
}

func (m *MockQuestionLogRepository) CreateQuestionLog(ctx context.Context, entry QuestionLogEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func factoryFor(client ModelClient) ClientFactory {
	return func(credential Credential) (ModelClient, error) {
		if credential == "" {
			return nil, domain.ErrMissingCredential
		}
		return client, nil
	}
}

func fastRetry() jobs.RetryPolicy {
	return jobs.RetryPolicy{MaxAttempts: jobs.MaxRetries, Backoff: time.Millisecond}
}

// MockNearestRecordRepository is a record repository that can rank records itself.
type MockNearestRecordRepository struct {
	MockRecordRepository
}

func (m *MockNearestRecordRepository) Nearest(ctx context.Context, query []float32, limit int) ([]ScoredRecord, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ScoredRecord), args.Error(1)
}

type MockArchiveStorage struct {
	mock.Mock
}

func (m *MockArchiveStorage) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	data, _ := io.ReadAll(body)
	args := m.Called(ctx, key, string(data), size)
	return args.Error(0)
}

func (m *MockArchiveStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return io.NopCloser(strings.NewReader(args.String(0))), args.Error(1)
}

func (m *MockArchiveStorage) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
