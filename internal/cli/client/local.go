package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logger"
	"github.com/cloo-solutions/docqa/internal/pagination"
	"github.com/cloo-solutions/docqa/internal/service"
)

// DefaultTable is the file local mode keeps the store in between runs.
const DefaultTable = "embeddings.csv"

// LocalSession is the part of service.Session local mode drives.
type LocalSession interface {
	Ingest(ctx context.Context, in service.IngestInput) (*service.IngestResult, error)
	Import(ctx context.Context, r io.Reader) (*service.SessionStats, error)
	Export(w io.Writer) error
	Ask(ctx context.Context, in service.AskInput) (*domain.Answer, error)
	Search(ctx context.Context, in service.SearchInput) ([]service.ScoredRecord, error)
	Records(offset, limit int) ([]domain.EmbeddingRecord, int, error)
}

// LocalArchiver moves the table to and from object storage.
type LocalArchiver interface {
	Push(ctx context.Context, key string) (*service.ArchiveResult, error)
	Pull(ctx context.Context, key string) (*service.SessionStats, error)
}

// LocalBackend runs commands in process and keeps the store in a table file.
type LocalBackend struct {
	session    LocalSession
	archiver   LocalArchiver
	table      string
	credential service.Credential
	loaded     bool
}

// NewLocalBackend creates a LocalBackend over table. archiver may be nil.
func NewLocalBackend(session LocalSession, archiver LocalArchiver, table string, credential string) *LocalBackend {
	if table == "" {
		table = DefaultTable
	}
	return &LocalBackend{
		session:    session,
		archiver:   archiver,
		table:      table,
		credential: service.Credential(credential),
	}
}

func (b *LocalBackend) Ingest(ctx context.Context, req IngestRequest) (*IngestReport, error) {
	pages, err := service.ParsePageList(req.ExcludePages)
	if err != nil {
		return nil, err
	}

	files := make([]service.InputFile, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, service.InputFile{Name: f.Name, Data: f.Data})
	}

	result, err := b.session.Ingest(ctx, service.IngestInput{
		Files:        files,
		Patterns:     service.ParsePatterns(req.Patterns),
		ExcludePages: pages,
		Credential:   b.credential,
	})
	if err != nil {
		return nil, err
	}
	b.loaded = true

	if err := b.save(); err != nil {
		return nil, err
	}

	return &IngestReport{
		Documents:  result.Documents,
		Records:    result.Store.Len(),
		Warnings:   result.Warnings,
		DurationMs: result.DurationMs,
	}, nil
}

func (b *LocalBackend) Ask(ctx context.Context, question string, debug bool) (*AnswerReport, error) {
	if err := b.load(ctx); err != nil {
		return nil, err
	}

	answer, err := b.session.Ask(ctx, service.AskInput{
		Question:   question,
		Credential: b.credential,
		Debug:      debug,
	})
	if err != nil {
		return nil, err
	}

	report := &AnswerReport{
		Question:       answer.Question,
		Answer:         answer.Text,
		Status:         string(answer.Status),
		ContextRecords: answer.ContextRecords,
		ContextTokens:  answer.ContextTokens,
		Warnings:       answer.Warnings,
	}
	if debug {
		report.Context = answer.Context
	}
	return report, nil
}

func (b *LocalBackend) Search(ctx context.Context, question string, limit int) ([]SearchHit, error) {
	if err := b.load(ctx); err != nil {
		return nil, err
	}

	ranked, err := b.session.Search(ctx, service.SearchInput{
		Question:   question,
		Credential: b.credential,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(ranked))
	for _, r := range ranked {
		hits = append(hits, SearchHit{Text: r.Record.Text, TokenCount: r.Record.TokenCount, Distance: r.Distance})
	}
	return hits, nil
}

func (b *LocalBackend) Records(ctx context.Context, q RecordsQuery) (*pagination.PageResult[RecordItem], error) {
	cursor, err := pagination.DecodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}
	if err := b.load(ctx); err != nil {
		return nil, err
	}

	records, total, err := b.session.Records(cursor.Offset, pagination.ClampLimit(q.Limit))
	if err != nil {
		return nil, err
	}

	items := make([]RecordItem, 0, len(records))
	for i, rec := range records {
		item := RecordItem{
			Position:   cursor.Offset + i,
			Text:       rec.Text,
			TokenCount: rec.TokenCount,
			Dimensions: len(rec.Embedding),
		}
		if q.Embeddings {
			item.Embedding = rec.Embedding
		}
		items = append(items, item)
	}

	page := pagination.NewPage(items, cursor.Offset, total)
	return &page, nil
}

// Import validates a table and makes it the table file.
func (b *LocalBackend) Import(ctx context.Context, r io.Reader, size int64) (*service.SessionStats, error) {
	stats, err := b.session.Import(ctx, r)
	if err != nil {
		return nil, err
	}
	b.loaded = true

	if err := b.save(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (b *LocalBackend) Export(ctx context.Context, w io.Writer) error {
	if err := b.load(ctx); err != nil {
		return err
	}
	return b.session.Export(w)
}

func (b *LocalBackend) Push(ctx context.Context, key string) (*service.ArchiveResult, error) {
	if b.archiver == nil {
		return nil, domain.ErrArchiveDisabled
	}
	if err := b.load(ctx); err != nil {
		return nil, err
	}
	return b.archiver.Push(ctx, key)
}

// Pull downloads an archived table and writes it to the table file.
func (b *LocalBackend) Pull(ctx context.Context, key string) (*service.SessionStats, error) {
	if b.archiver == nil {
		return nil, domain.ErrArchiveDisabled
	}

	stats, err := b.archiver.Pull(ctx, key)
	if err != nil {
		return nil, err
	}
	b.loaded = true

	if err := b.save(); err != nil {
		return nil, err
	}
	return stats, nil
}

// load imports the table file once. A missing file leaves the session empty.
func (b *LocalBackend) load(ctx context.Context) error {
	if b.loaded {
		return nil
	}
	b.loaded = true

	f, err := os.Open(b.table)
	if os.IsNotExist(err) {
		logger.FromContext(ctx).Debug("no table file, starting empty", zap.String("table", b.table))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	if _, err := b.session.Import(ctx, f); err != nil {
		return fmt.Errorf("%s: %w", b.table, err)
	}
	return nil
}

// save writes the current store next to the table file and renames it into place.
func (b *LocalBackend) save() error {
	tmp, err := os.CreateTemp(filepath.Dir(b.table), ".docqa-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := b.session.Export(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.table); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}
