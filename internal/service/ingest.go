package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logger"
	"github.com/cloo-solutions/docqa/internal/metrics"
	"github.com/cloo-solutions/docqa/internal/pdf"
	"github.com/cloo-solutions/docqa/internal/store"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

// PDFExtractor extracts the text of the non-excluded pages of a PDF.
type PDFExtractor interface {
	Extract(data []byte, exclude map[int]bool) (*pdf.Extraction, error)
}

// InputFile is one uploaded or local file.
type InputFile struct {
	Name string
	Data []byte
}

// IngestInput represents input for Ingest
type IngestInput struct {
	Files        []InputFile
	Patterns     []string
	ExcludePages []int
	Credential   Credential
}

// DocumentSummary describes one ingested document.
type DocumentSummary struct {
	Name          string `json:"name"`
	PageCount     int    `json:"page_count"`
	PagesIncluded int    `json:"pages_included"`
	Characters    int    `json:"characters"`
}

// IngestResult is a freshly built store and what went into it.
type IngestResult struct {
	Store      *store.Store
	Documents  []DocumentSummary
	Warnings   []domain.Warning
	DurationMs int
}

// Ingestor turns PDF files into an embedding store.
type Ingestor struct {
	extractor PDFExtractor
	chunker   *Chunker
	embedder  *EmbeddingService
	clients   ClientFactory
}

// NewIngestor creates a new Ingestor instance
func NewIngestor(extractor PDFExtractor, chunker *Chunker, embedder *EmbeddingService, clients ClientFactory) *Ingestor {
	return &Ingestor{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		clients:   clients,
	}
}

// Ingest extracts, cleans, chunks and embeds every PDF in the input. Files
// without a .pdf extension are ignored. Inputs are validated before any
// extraction or service call.
func (s *Ingestor) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "Ingestor.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
		Documents: len(in.Files),
	})
	defer span.End()

	log := logger.FromContext(ctx)

	exclude := make(map[int]bool, len(in.ExcludePages))
	for _, p := range in.ExcludePages {
		if err := validatePage(p); err != nil {
			return nil, err
		}
		exclude[p] = true
	}

	cleaner, err := NewTextCleaner(in.Patterns)
	if err != nil {
		return nil, err
	}

	var files []InputFile
	for _, f := range in.Files {
		if !domain.IsPDFName(f.Name) {
			log.Debug("skipping non-PDF file", zap.String("file", f.Name))
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, domain.ErrNoDocuments
	}

	client, err := s.clients(in.Credential)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(files))
	summaries := make([]DocumentSummary, 0, len(files))
	for _, f := range files {
		extraction, err := s.extractor.Extract(f.Data, exclude)
		if err != nil {
			span.SetError(err)
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}

		text := cleaner.Clean(extraction.Text)
		doc := domain.NewDocument(f.Name, text, extraction.PageCount)
		docs = append(docs, *doc)
		summaries = append(summaries, DocumentSummary{
			Name:          doc.Name,
			PageCount:     extraction.PageCount,
			PagesIncluded: extraction.PagesIncluded,
			Characters:    len(text),
		})
		telemetry.AddBreadcrumb(ctx, "ingest", "extracted "+doc.Name)
		log.Info("document extracted",
			zap.String("document", doc.Name),
			zap.Int("pages", extraction.PageCount),
			zap.Int("pages_included", extraction.PagesIncluded),
		)
	}

	chunked := s.chunker.Shorten(docs)
	reportWarnings(ctx, span, "chunking", chunked.Warnings)

	st, err := s.embedder.EmbedChunks(ctx, client, chunked.Chunks)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	metrics.DocumentsIngestedTotal.Add(float64(len(docs)))
	span.SetData("records", st.Len())

	result := &IngestResult{
		Store:      st,
		Documents:  summaries,
		Warnings:   chunked.Warnings,
		DurationMs: elapsedMs(start),
	}

	log.Info("ingest complete",
		zap.Int("documents", len(docs)),
		zap.Int("records", st.Len()),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int("duration_ms", result.DurationMs),
	)

	return result, nil
}
