package domain

import (
	"fmt"
)

// EmbeddingRecord is one stored chunk together with its embedding vector.
type EmbeddingRecord struct {
	Text       string
	TokenCount int
	Embedding  []float32
}

// NewEmbeddingRecord creates a new EmbeddingRecord instance
func NewEmbeddingRecord(text string, tokenCount int, embedding []float32) *EmbeddingRecord {
	return &EmbeddingRecord{
		Text:       text,
		TokenCount: tokenCount,
		Embedding:  embedding,
	}
}

// ValidateEmbeddingRecord validates an EmbeddingRecord instance
func ValidateEmbeddingRecord(r *EmbeddingRecord) error {
	if r == nil {
		return fmt.Errorf("embedding record cannot be nil")
	}

	if r.Text == "" {
		return fmt.Errorf("embedding record Text is required")
	}

	if r.TokenCount < 0 {
		return fmt.Errorf("embedding record TokenCount cannot be negative")
	}

	if len(r.Embedding) == 0 {
		return fmt.Errorf("embedding record Embedding is required")
	}

	return nil
}

// WarningCode identifies a non-fatal condition reported alongside a result.
type WarningCode string

const (
	WarningSentenceDropped      WarningCode = "sentence_dropped"
	WarningUnitDiscarded        WarningCode = "unit_discarded"
	WarningTrailingChunkDropped WarningCode = "trailing_chunk_dropped"
	WarningEmptyStore           WarningCode = "empty_store"
	WarningEmptyContext         WarningCode = "empty_context"
	WarningEmptyDocument        WarningCode = "empty_document"
)

// Warning reports data that was silently lost or an output that is empty.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// NewWarning creates a Warning with a formatted message
func NewWarning(code WarningCode, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}
