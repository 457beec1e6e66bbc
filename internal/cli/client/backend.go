package client

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/pagination"
	"github.com/cloo-solutions/docqa/internal/service"
)

// IngestRequest is a set of PDFs and the cleaning options applied to them.
type IngestRequest struct {
	Files        []UploadFile
	Patterns     string
	ExcludePages string
}

// IngestReport describes a freshly built store.
type IngestReport struct {
	Documents  []service.DocumentSummary `json:"documents"`
	Records    int                       `json:"records"`
	Warnings   []domain.Warning          `json:"warnings"`
	DurationMs int                       `json:"duration_ms"`
}

// AnswerReport is one answered question.
type AnswerReport struct {
	Question       string           `json:"question"`
	Answer         string           `json:"answer"`
	Status         string           `json:"status"`
	ContextRecords int              `json:"context_records"`
	ContextTokens  int              `json:"context_tokens"`
	Context        string           `json:"context,omitempty"`
	Warnings       []domain.Warning `json:"warnings"`
}

// SearchHit is one record ranked against a question.
type SearchHit struct {
	Text       string  `json:"text"`
	TokenCount int     `json:"n_tokens"`
	Distance   float64 `json:"distance"`
}

// RecordItem is one row of the store.
type RecordItem struct {
	Position   int       `json:"position"`
	Text       string    `json:"text"`
	TokenCount int       `json:"n_tokens"`
	Dimensions int       `json:"dimensions"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// RecordsQuery selects a page of records.
type RecordsQuery struct {
	Cursor     string
	Limit      int
	Embeddings bool
}

// Backend runs commands either in process or against a docqad.
type Backend interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestReport, error)
	Ask(ctx context.Context, question string, debug bool) (*AnswerReport, error)
	Search(ctx context.Context, question string, limit int) ([]SearchHit, error)
	Records(ctx context.Context, q RecordsQuery) (*pagination.PageResult[RecordItem], error)
	Import(ctx context.Context, r io.Reader, size int64) (*service.SessionStats, error)
	Export(ctx context.Context, w io.Writer) error
	Push(ctx context.Context, key string) (*service.ArchiveResult, error)
	Pull(ctx context.Context, key string) (*service.SessionStats, error)
}

// RemoteBackend sends every command to a docqad.
type RemoteBackend struct {
	api *APIClient
	// Progress reports upload progress of ingest. Nil disables it.
	Progress ProgressFunc
}

// NewRemoteBackend creates a RemoteBackend.
func NewRemoteBackend(api *APIClient) *RemoteBackend {
	return &RemoteBackend{api: api}
}

func (b *RemoteBackend) Ingest(ctx context.Context, req IngestRequest) (*IngestReport, error) {
	var report IngestReport
	fields := map[string]string{
		"patterns":      req.Patterns,
		"exclude_pages": req.ExcludePages,
	}
	if err := b.api.PostMultipart(ctx, "/ingest", fields, "files", req.Files, b.Progress, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (b *RemoteBackend) Ask(ctx context.Context, question string, debug bool) (*AnswerReport, error) {
	var report AnswerReport
	body := map[string]any{"question": question, "debug": debug}
	if err := b.api.Post(ctx, "/ask", body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (b *RemoteBackend) Search(ctx context.Context, question string, limit int) ([]SearchHit, error) {
	var hits []SearchHit
	body := map[string]any{"question": question, "limit": limit}
	if err := b.api.Post(ctx, "/search", body, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (b *RemoteBackend) Records(ctx context.Context, q RecordsQuery) (*pagination.PageResult[RecordItem], error) {
	params := url.Values{}
	if q.Cursor != "" {
		params.Set("cursor", q.Cursor)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Embeddings {
		params.Set("embeddings", "true")
	}

	path := "/records"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page pagination.PageResult[RecordItem]
	if err := b.api.Get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (b *RemoteBackend) Import(ctx context.Context, r io.Reader, size int64) (*service.SessionStats, error) {
	var stats service.SessionStats
	if err := b.api.PostRaw(ctx, "/import", "text/csv", r, size, b.Progress, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (b *RemoteBackend) Export(ctx context.Context, w io.Writer) error {
	return b.api.Download(ctx, "/export", w, nil)
}

func (b *RemoteBackend) Push(ctx context.Context, key string) (*service.ArchiveResult, error) {
	var result service.ArchiveResult
	if err := b.api.Post(ctx, "/archive", map[string]string{"key": key}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (b *RemoteBackend) Pull(ctx context.Context, key string) (*service.SessionStats, error) {
	var stats service.SessionStats
	if err := b.api.Post(ctx, "/archive/restore", map[string]string{"key": key}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
