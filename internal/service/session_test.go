package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/pdf"
)

const sampleTable = "text,n_tokens,embeddings\n" +
	"Paris is the capital of France.,7,\"[1,0]\"\n" +
	"Cats purr.,3,\"[0,1]\"\n"

func newTestSession(client ModelClient, extractor PDFExtractor, records RecordRepository, questions QuestionLogRepository) *Session {
	return NewSession(
		newTestIngestor(extractor, client, 50),
		newTestAnswerer(client),
		records,
		questions,
	)
}

func TestSession_ImportExport(t *testing.T) {
	s := newTestSession(new(MockModelClient), new(MockPDFExtractor), nil, nil)

	stats, err := s.Import(context.Background(), strings.NewReader(sampleTable))
	require.NoError(t, err)
	assert.True(t, stats.Loaded)
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, 2, stats.Dimensions)
	assert.Equal(t, 10, stats.TotalTokens)

	var buf bytes.Buffer
	require.NoError(t, s.Export(&buf))
	assert.Equal(t, sampleTable, buf.String())
}

func TestSession_Export_NothingLoaded(t *testing.T) {
	s := newTestSession(new(MockModelClient), new(MockPDFExtractor), nil, nil)

	err := s.Export(&bytes.Buffer{})

	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
	assert.False(t, s.Stats().Loaded)
}

func TestSession_Import_InvalidTableKeepsCurrentStore(t *testing.T) {
	s := newTestSession(new(MockModelClient), new(MockPDFExtractor), nil, nil)
	_, err := s.Import(context.Background(), strings.NewReader(sampleTable))
	require.NoError(t, err)

	_, err = s.Import(context.Background(), strings.NewReader("text,n_tokens,embeddings\na,1,\"nope\"\n"))

	assert.ErrorIs(t, err, domain.ErrInvalidTable)
	assert.Equal(t, 2, s.Stats().Records)
}

func TestSession_Ask(t *testing.T) {
	client := new(MockModelClient)
	questions := new(MockQuestionLogRepository)
	s := newTestSession(client, new(MockPDFExtractor), nil, questions)
	_, err := s.Import(context.Background(), strings.NewReader(sampleTable))
	require.NoError(t, err)

	client.On("GenerateEmbedding", mock.Anything, "Capital?").Return([]float32{1, 0}, nil)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(req domain.CompletionRequest) bool {
		return strings.Contains(req.User, "Contexto: Paris is the capital of France.")
	})).Return("Paris", nil)
	questions.On("CreateQuestionLog", mock.Anything, mock.MatchedBy(func(e QuestionLogEntry) bool {
		return e.Question == "Capital?" && e.Status == "answered" && e.ContextRecords == 2 && e.ContextTokens == 18
	})).Return("log-1", nil)

	answer, err := s.Ask(context.Background(), AskInput{Question: "Capital?", Credential: "k"})

	require.NoError(t, err)
	assert.Equal(t, "Paris", answer.Text)
	questions.AssertExpectations(t)
}

func TestSession_Ask_WithoutStore(t *testing.T) {
	client := new(MockModelClient)
	s := newTestSession(client, new(MockPDFExtractor), nil, nil)

	client.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0}, nil)
	client.On("Complete", mock.Anything, mock.Anything).Return("No lo sé", nil)

	answer, err := s.Ask(context.Background(), AskInput{Question: "q", Credential: "k"})

	require.NoError(t, err)
	assert.Equal(t, "", answer.Context)
	assert.Equal(t, domain.AnswerStatusUnknown, answer.Status)
	require.Len(t, answer.Warnings, 1)
	assert.Equal(t, domain.WarningEmptyStore, answer.Warnings[0].Code)
}

func TestSession_Ask_LogsFailures(t *testing.T) {
	client := new(MockModelClient)
	questions := new(MockQuestionLogRepository)
	s := newTestSession(client, new(MockPDFExtractor), nil, questions)
	svcErr := domain.NewServiceError("embedding", domain.ServiceErrorUnauthorized, errors.New("401"))

	client.On("GenerateEmbedding", mock.Anything, "q").Return(nil, svcErr)
	questions.On("CreateQuestionLog", mock.Anything, mock.MatchedBy(func(e QuestionLogEntry) bool {
		return e.Status == "error" && strings.Contains(e.Error, "401")
	})).Return("", errors.New("db down"))

	_, err := s.Ask(context.Background(), AskInput{Question: "q", Credential: "k"})

	assert.ErrorIs(t, err, svcErr)
	questions.AssertExpectations(t)
}

func TestSession_IngestPersistsAndReplaces(t *testing.T) {
	client := new(MockModelClient)
	extractor := new(MockPDFExtractor)
	records := new(MockRecordRepository)
	s := newTestSession(client, extractor, records, nil)

	extractor.On("Extract", mock.Anything, mock.Anything).Return(&pdf.Extraction{Text: "Only sentence.", PageCount: 1, PagesIncluded: 1}, nil)
	client.On("GenerateEmbeddings", mock.Anything, []string{"Only sentence."}).Return([][]float32{{0.5, 0.5}}, nil)
	records.On("ReplaceAll", mock.Anything, mock.MatchedBy(func(recs []domain.EmbeddingRecord) bool {
		return len(recs) == 1 && recs[0].Text == "Only sentence."
	})).Return(nil)

	result, err := s.Ingest(context.Background(), IngestInput{
		Files:      []InputFile{{Name: "doc.pdf", Data: []byte("x")}},
		Credential: "k",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Store.Len())
	assert.Equal(t, 1, s.Stats().Records)
	records.AssertExpectations(t)
}

func TestSession_Ingest_PersistFailureKeepsOldStore(t *testing.T) {
	client := new(MockModelClient)
	extractor := new(MockPDFExtractor)
	records := new(MockRecordRepository)
	s := newTestSession(client, extractor, records, nil)

	records.On("ReplaceAll", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	extractor.On("Extract", mock.Anything, mock.Anything).Return(&pdf.Extraction{Text: "Only sentence.", PageCount: 1}, nil)
	client.On("GenerateEmbeddings", mock.Anything, mock.Anything).Return([][]float32{{1}}, nil)

	_, err := s.Ingest(context.Background(), IngestInput{
		Files:      []InputFile{{Name: "doc.pdf", Data: []byte("x")}},
		Credential: "k",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist records")
	assert.False(t, s.Stats().Loaded)
}

func TestSession_Restore(t *testing.T) {
	records := new(MockRecordRepository)
	s := newTestSession(new(MockModelClient), new(MockPDFExtractor), records, nil)

	records.On("ListAll", mock.Anything).Return([]domain.EmbeddingRecord{
		{Text: "a", TokenCount: 1, Embedding: []float32{1, 0}},
		{Text: "b", TokenCount: 1, Embedding: []float32{0, 1}},
	}, nil)

	require.NoError(t, s.Restore(context.Background()))

	page, total, err := s.Records(1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].Text)
}

func TestSession_Restore_NothingPersisted(t *testing.T) {
	records := new(MockRecordRepository)
	s := newTestSession(new(MockModelClient), new(MockPDFExtractor), records, nil)
	records.On("ListAll", mock.Anything).Return([]domain.EmbeddingRecord{}, nil)

	require.NoError(t, s.Restore(context.Background()))

	_, _, err := s.Records(0, 10)
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestSession_Restore_NoRepository(t *testing.T) {
	s := newTestSession(new(MockModelClient), new(MockPDFExtractor), nil, nil)

	assert.NoError(t, s.Restore(context.Background()))
}

func TestSession_Search_InMemory(t *testing.T) {
	client := new(MockModelClient)
	s := newTestSession(client, new(MockPDFExtractor), nil, nil)
	_, err := s.Import(context.Background(), strings.NewReader(sampleTable))
	require.NoError(t, err)

	client.On("GenerateEmbedding", mock.Anything, "purring").Return([]float32{0, 1}, nil)

	results, err := s.Search(context.Background(), SearchInput{Question: " purring ", Credential: "k", Limit: 1})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Cats purr.", results[0].Record.Text)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
}

func TestSession_Search_EmptyStore(t *testing.T) {
	client := new(MockModelClient)
	s := newTestSession(client, new(MockPDFExtractor), nil, nil)
	stats, err := s.Import(context.Background(), strings.NewReader("text,n_tokens,embeddings\n"))
	require.NoError(t, err)
	require.True(t, stats.Loaded)
	require.Zero(t, stats.Records)

	client.On("GenerateEmbedding", mock.Anything, "purring").Return([]float32{0, 1}, nil)

	results, err := s.Search(context.Background(), SearchInput{Question: "purring", Credential: "k"})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSession_Search_UsesDatabaseRanking(t *testing.T) {
	client := new(MockModelClient)
	records := new(MockNearestRecordRepository)
	s := newTestSession(client, new(MockPDFExtractor), records, nil)

	records.On("ReplaceAll", mock.Anything, mock.Anything).Return(nil)
	_, err := s.Import(context.Background(), strings.NewReader(sampleTable))
	require.NoError(t, err)

	ranked := []ScoredRecord{{Record: domain.EmbeddingRecord{Text: "Cats purr.", TokenCount: 3, Embedding: []float32{0, 1}}}}
	client.On("GenerateEmbedding", mock.Anything, "purring").Return([]float32{0, 1}, nil)
	records.On("Nearest", mock.Anything, []float32{0, 1}, DefaultSearchLimit).Return(ranked, nil)

	results, err := s.Search(context.Background(), SearchInput{Question: "purring", Credential: "k"})

	require.NoError(t, err)
	assert.Equal(t, ranked, results)
	records.AssertExpectations(t)
}

func TestSession_Search_Errors(t *testing.T) {
	client := new(MockModelClient)
	s := newTestSession(client, new(MockPDFExtractor), nil, nil)

	_, err := s.Search(context.Background(), SearchInput{Question: "q", Credential: "k"})
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)

	_, err = s.Import(context.Background(), strings.NewReader(sampleTable))
	require.NoError(t, err)

	_, err = s.Search(context.Background(), SearchInput{Question: "  ", Credential: "k"})
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)

	client.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0, 0}, nil)
	_, err = s.Search(context.Background(), SearchInput{Question: "q", Credential: "k"})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
