package domain

import (
	"path/filepath"
	"strings"
)

// Document is the extracted text of one ingested file.
type Document struct {
	Name      string
	Text      string
	PageCount int
}

// NewDocument creates a Document named after the given file name
func NewDocument(fileName, text string, pageCount int) *Document {
	return &Document{
		Name:      NormalizeDocumentName(fileName),
		Text:      text,
		PageCount: pageCount,
	}
}

// NormalizeDocumentName turns a file name into a display title: the directory
// and .pdf extension are dropped, separators become spaces and the #update
// marker is stripped.
func NormalizeDocumentName(fileName string) string {
	name := filepath.Base(fileName)
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".pdf") {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "#update", "")
	return strings.TrimSpace(name)
}

// IsPDFName reports whether a file name carries the .pdf extension.
func IsPDFName(fileName string) bool {
	return strings.EqualFold(filepath.Ext(fileName), ".pdf")
}

// Chunk is a sentence-aligned span of a document bounded by a token budget.
type Chunk struct {
	Text       string
	TokenCount int
}
