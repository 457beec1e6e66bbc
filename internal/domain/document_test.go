package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDocumentName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "report.pdf", "report"},
		{"dashes and underscores", "annual-report_2023.pdf", "annual report 2023"},
		{"update marker", "manual_v2#update.pdf", "manual v2"},
		{"upper case extension", "NOTES.PDF", "NOTES"},
		{"directory is dropped", "data/sub/user-guide.pdf", "user guide"},
		{"no extension", "readme", "readme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDocumentName(tt.input))
		})
	}
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument("my_file-name.pdf", "body", 4)

	assert.Equal(t, "my file name", doc.Name)
	assert.Equal(t, "body", doc.Text)
	assert.Equal(t, 4, doc.PageCount)
}

func TestIsPDFName(t *testing.T) {
	assert.True(t, IsPDFName("a.pdf"))
	assert.True(t, IsPDFName("a.Pdf"))
	assert.False(t, IsPDFName("texts.csv"))
	assert.False(t, IsPDFName("pdf"))
}
