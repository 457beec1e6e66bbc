package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docqa/internal/domain"
)

func TestExtractor_Extract_NotAPDF(t *testing.T) {
	_, err := NewExtractor().Extract([]byte("plain text, not a pdf"), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorruptPDF)
}

func TestExtractor_Extract_Empty(t *testing.T) {
	_, err := NewExtractor().Extract(nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorruptPDF)
}

func TestExtractor_Extract_Truncated(t *testing.T) {
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")

	_, err := NewExtractor().Extract(data, map[int]bool{1: true})

	require.Error(t, err)
	var domErr *domain.DomainError
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, domain.ErrCodeExtraction, domErr.Code)
}
