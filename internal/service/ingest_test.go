package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/jobs"
	"github.com/cloo-solutions/docqa/internal/pdf"
)

func newTestIngestor(extractor PDFExtractor, client ModelClient, maxTokens int) *Ingestor {
	return NewIngestor(
		extractor,
		NewChunker(wordCounter{}, ChunkConfig{MaxTokens: maxTokens, FlushTrailing: true}),
		NewEmbeddingService(jobs.NewBatchRunner(8, 2, fastRetry())),
		factoryFor(client),
	)
}

func TestIngestor_Ingest(t *testing.T) {
	extractor := new(MockPDFExtractor)
	client := new(MockModelClient)

	exclude := map[int]bool{1: true}
	extractor.On("Extract", []byte("pdf-a"), exclude).Return(&pdf.Extraction{
		Text:          "WATERMARK Short guide.",
		PageCount:     3,
		PagesIncluded: 2,
	}, nil)
	extractor.On("Extract", []byte("pdf-b"), exclude).Return(&pdf.Extraction{
		Text:          "a b c. d e f. g h i",
		PageCount:     1,
		PagesIncluded: 1,
	}, nil)

	client.On("GenerateEmbeddings", mock.Anything, []string{" Short guide.", "a b c. d e f.", "g h i."}).
		Return([][]float32{{1, 0}, {0, 1}, {1, 1}}, nil)

	result, err := newTestIngestor(extractor, client, 7).Ingest(context.Background(), IngestInput{
		Files: []InputFile{
			{Name: "user_guide-v2#update.pdf", Data: []byte("pdf-a")},
			{Name: "notes.txt", Data: []byte("ignored")},
			{Name: "REPORT.PDF", Data: []byte("pdf-b")},
		},
		Patterns:     []string{"WATERMARK"},
		ExcludePages: []int{1},
		Credential:   "sk-test",
	})

	require.NoError(t, err)
	require.Equal(t, 3, result.Store.Len())
	assert.Equal(t, " Short guide.", result.Store.Records()[0].Text)
	assert.Equal(t, 2, result.Store.Records()[0].TokenCount)
	assert.Equal(t, "g h i.", result.Store.Records()[2].Text)

	require.Len(t, result.Documents, 2)
	assert.Equal(t, "user guide v2", result.Documents[0].Name)
	assert.Equal(t, 3, result.Documents[0].PageCount)
	assert.Equal(t, 2, result.Documents[0].PagesIncluded)
	assert.Equal(t, "REPORT", result.Documents[1].Name)
	assert.Empty(t, result.Warnings)

	extractor.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestIngestor_Ingest_ReportsDroppedSentences(t *testing.T) {
	extractor := new(MockPDFExtractor)
	client := new(MockModelClient)

	extractor.On("Extract", mock.Anything, mock.Anything).Return(&pdf.Extraction{
		Text:      words(20, "x") + ". short one",
		PageCount: 1,
	}, nil)
	client.On("GenerateEmbeddings", mock.Anything, []string{"short one."}).Return([][]float32{{1}}, nil)

	result, err := newTestIngestor(extractor, client, 5).Ingest(context.Background(), IngestInput{
		Files:      []InputFile{{Name: "a.pdf", Data: []byte("x")}},
		Credential: "k",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Store.Len())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, domain.WarningSentenceDropped, result.Warnings[0].Code)
}

func TestIngestor_Ingest_InputErrorsBeforeWork(t *testing.T) {
	tests := []struct {
		name     string
		input    IngestInput
		expected error
	}{
		{
			name:     "invalid page",
			input:    IngestInput{Files: []InputFile{{Name: "a.pdf"}}, ExcludePages: []int{0}, Credential: "k"},
			expected: domain.ErrInvalidPageList,
		},
		{
			name:     "invalid pattern",
			input:    IngestInput{Files: []InputFile{{Name: "a.pdf"}}, Patterns: []string{"[unclosed"}, Credential: "k"},
			expected: domain.ErrInvalidPattern,
		},
		{
			name:     "no pdf files",
			input:    IngestInput{Files: []InputFile{{Name: "texts.csv"}}, Credential: "k"},
			expected: domain.ErrNoDocuments,
		},
		{
			name:     "missing credential",
			input:    IngestInput{Files: []InputFile{{Name: "a.pdf"}}},
			expected: domain.ErrMissingCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := new(MockPDFExtractor)
			client := new(MockModelClient)

			_, err := newTestIngestor(extractor, client, 10).Ingest(context.Background(), tt.input)

			assert.ErrorIs(t, err, tt.expected)
			extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
			client.AssertNotCalled(t, "GenerateEmbeddings", mock.Anything, mock.Anything)
		})
	}
}

func TestIngestor_Ingest_ExtractionErrorIsFatal(t *testing.T) {
	extractor := new(MockPDFExtractor)
	client := new(MockModelClient)
	extractErr := domain.NewDomainErrorWithCause(domain.ErrCodeExtraction, domain.ErrCorruptPDF.Message, errors.New("bad xref"))

	extractor.On("Extract", []byte("a"), mock.Anything).Return(&pdf.Extraction{Text: "fine", PageCount: 1}, nil)
	extractor.On("Extract", []byte("b"), mock.Anything).Return(nil, extractErr)

	_, err := newTestIngestor(extractor, client, 10).Ingest(context.Background(), IngestInput{
		Files:      []InputFile{{Name: "a.pdf", Data: []byte("a")}, {Name: "b.pdf", Data: []byte("b")}},
		Credential: "k",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorruptPDF)
	assert.Contains(t, err.Error(), "b.pdf")
	client.AssertNotCalled(t, "GenerateEmbeddings", mock.Anything, mock.Anything)
}
