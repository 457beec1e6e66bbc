package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logger"
)

// ArchiveStorage keeps exported tables outside the process.
type ArchiveStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// ArchiveResult describes an uploaded table.
type ArchiveResult struct {
	Key         string `json:"key"`
	DownloadURL string `json:"download_url,omitempty"`
	Records     int    `json:"records"`
	Bytes       int64  `json:"bytes"`
}

// TableSession is the part of Session an Archiver moves tables in and out of.
type TableSession interface {
	Export(w io.Writer) error
	Import(ctx context.Context, r io.Reader) (*SessionStats, error)
	Stats() SessionStats
}

// Archiver moves embedding tables between a session and ArchiveStorage.
type Archiver struct {
	storage ArchiveStorage
	session TableSession
	keyFor  func(time.Time) string
}

// NewArchiver creates an Archiver. keyFor names new archives.
func NewArchiver(storage ArchiveStorage, session TableSession, keyFor func(time.Time) string) *Archiver {
	return &Archiver{storage: storage, session: session, keyFor: keyFor}
}

// Push uploads the session's current table. An empty key is generated.
func (a *Archiver) Push(ctx context.Context, key string) (*ArchiveResult, error) {
	if a == nil || a.storage == nil {
		return nil, domain.ErrArchiveDisabled
	}

	var buf bytes.Buffer
	if err := a.session.Export(&buf); err != nil {
		return nil, err
	}
	if key == "" {
		key = a.keyFor(time.Now())
	}

	size := int64(buf.Len())
	if err := a.storage.Upload(ctx, key, &buf, size); err != nil {
		return nil, err
	}

	url, err := a.storage.GenerateDownloadURL(ctx, key)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to presign archive", zap.String("key", key), zap.Error(err))
	}

	result := &ArchiveResult{
		Key:         key,
		DownloadURL: url,
		Records:     a.session.Stats().Records,
		Bytes:       size,
	}
	logger.FromContext(ctx).Info("table archived", zap.String("key", key), zap.Int("records", result.Records))
	return result, nil
}

// Pull downloads a table and makes it the session's current store.
func (a *Archiver) Pull(ctx context.Context, key string) (*SessionStats, error) {
	if a == nil || a.storage == nil {
		return nil, domain.ErrArchiveDisabled
	}
	if key == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "archive key is required")
	}

	body, err := a.storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	stats, err := a.session.Import(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return stats, nil
}
