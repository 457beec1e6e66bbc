package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logger"
	"github.com/cloo-solutions/docqa/internal/metrics"
	"github.com/cloo-solutions/docqa/internal/store"
)

// RecordRepository persists the current store so it survives restarts.
type RecordRepository interface {
	ReplaceAll(ctx context.Context, records []domain.EmbeddingRecord) error
	ListAll(ctx context.Context) ([]domain.EmbeddingRecord, error)
}

// NearestFinder ranks the persisted records against a query vector.
type NearestFinder interface {
	Nearest(ctx context.Context, query []float32, limit int) ([]ScoredRecord, error)
}

// DefaultSearchLimit is the number of neighbours Search returns when none is requested.
const DefaultSearchLimit = 5

// SearchInput represents input for Search
type SearchInput struct {
	Question   string
	Credential Credential
	Limit      int
}

// AskInput represents input for Ask
type AskInput struct {
	Question   string
	Credential Credential
	Debug      bool
}

// SessionStats summarizes the loaded store.
type SessionStats struct {
	Loaded      bool      `json:"loaded"`
	Records     int       `json:"records"`
	Dimensions  int       `json:"dimensions"`
	TotalTokens int       `json:"total_tokens"`
	LoadedAt    time.Time `json:"loaded_at,omitzero"`
}

// Session holds the one embedding store a process answers from. Ingest and
// Import replace it wholesale; Ask reads a snapshot.
type Session struct {
	mu       sync.RWMutex
	current  *store.Store
	loadedAt time.Time

	ingestor  *Ingestor
	answerer  *Answerer
	records   RecordRepository
	questions QuestionLogRepository
}

// NewSession creates a Session. records and questions may be nil.
func NewSession(ingestor *Ingestor, answerer *Answerer, records RecordRepository, questions QuestionLogRepository) *Session {
	return &Session{
		ingestor:  ingestor,
		answerer:  answerer,
		records:   records,
		questions: questions,
	}
}

// Restore loads the persisted store, if any.
func (s *Session) Restore(ctx context.Context) error {
	if s.records == nil {
		return nil
	}

	recs, err := s.records.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted records: %w", err)
	}
	if len(recs) == 0 {
		return nil
	}

	st, err := store.FromRecords(recs)
	if err != nil {
		return fmt.Errorf("persisted records are invalid: %w", err)
	}
	s.replace(st)

	logger.FromContext(ctx).Info("restored embedding store", zap.Int("records", st.Len()))
	return nil
}

// Ingest builds a new store from PDF files and makes it current.
func (s *Session) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	result, err := s.ingestor.Ingest(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, result.Store); err != nil {
		return nil, err
	}
	s.replace(result.Store)
	return result, nil
}

// Import loads a previously exported table and makes it current.
func (s *Session) Import(ctx context.Context, r io.Reader) (*SessionStats, error) {
	st, err := store.ReadTable(r)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, st); err != nil {
		return nil, err
	}
	s.replace(st)

	stats := s.Stats()
	logger.FromContext(ctx).Info("imported embedding table", zap.Int("records", stats.Records))
	return &stats, nil
}

// Export writes the current store as a table.
func (s *Session) Export(w io.Writer) error {
	st := s.snapshot()
	if st == nil {
		return domain.ErrStoreNotFound
	}
	return store.WriteTable(w, st)
}

// Ask answers a question from the current store. With no store loaded the
// completion is still requested with an empty context.
func (s *Session) Ask(ctx context.Context, in AskInput) (*domain.Answer, error) {
	start := time.Now()

	var records []domain.EmbeddingRecord
	if st := s.snapshot(); st != nil {
		records = st.Records()
	}

	answer, err := s.answerer.Answer(ctx, AnswerInput{
		Question:   in.Question,
		Records:    records,
		Credential: in.Credential,
		Debug:      in.Debug,
	})

	s.logQuestion(ctx, in.Question, answer, err, elapsedMs(start))
	return answer, err
}

// Search returns the records nearest to a question without asking the
// completion model. The database ranks them when the store is persisted.
func (s *Session) Search(ctx context.Context, in SearchInput) ([]ScoredRecord, error) {
	st := s.snapshot()
	if st == nil {
		return nil, domain.ErrStoreNotFound
	}

	limit := in.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	query, err := s.answerer.EmbedQuestion(ctx, in.Credential, in.Question)
	if err != nil {
		return nil, err
	}
	if st.Len() == 0 {
		return []ScoredRecord{}, nil
	}
	if len(query) != st.Dimensions() {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrDimensionMismatch.Message,
			fmt.Errorf("query has %d dimensions, store has %d", len(query), st.Dimensions()))
	}

	if finder, ok := s.records.(NearestFinder); ok {
		return finder.Nearest(ctx, query, limit)
	}

	ranked, err := NewContextAssembler().Rank(query, st.Records())
	if err != nil {
		return nil, err
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Records returns a page of the current store and the total record count.
func (s *Session) Records(offset, limit int) ([]domain.EmbeddingRecord, int, error) {
	st := s.snapshot()
	if st == nil {
		return nil, 0, domain.ErrStoreNotFound
	}
	return st.Page(offset, limit), st.Len(), nil
}

// Stats describes the current store.
func (s *Session) Stats() SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return SessionStats{}
	}
	return SessionStats{
		Loaded:      true,
		Records:     s.current.Len(),
		Dimensions:  s.current.Dimensions(),
		TotalTokens: s.current.TotalTokens(),
		LoadedAt:    s.loadedAt,
	}
}

func (s *Session) snapshot() *store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) replace(st *store.Store) {
	s.mu.Lock()
	s.current = st
	s.loadedAt = time.Now().UTC()
	s.mu.Unlock()

	metrics.StoreRecords.Set(float64(st.Len()))
}

func (s *Session) persist(ctx context.Context, st *store.Store) error {
	if s.records == nil {
		return nil
	}
	if err := s.records.ReplaceAll(ctx, st.Records()); err != nil {
		return fmt.Errorf("failed to persist records: %w", err)
	}
	return nil
}

func (s *Session) logQuestion(ctx context.Context, question string, answer *domain.Answer, askErr error, durationMs int) {
	if s.questions == nil {
		return
	}

	entry := QuestionLogEntry{
		Question:   question,
		DurationMs: durationMs,
	}
	if askErr != nil {
		entry.Status = "error"
		entry.Error = askErr.Error()
	} else {
		entry.Status = string(answer.Status)
		entry.ContextRecords = answer.ContextRecords
		entry.ContextTokens = answer.ContextTokens
	}

	if _, err := s.questions.CreateQuestionLog(ctx, entry); err != nil {
		logger.FromContext(ctx).Warn("failed to record question log", zap.Error(err))
	}
}
