package pdf

import (
	"bytes"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// Extraction is the text of the non-excluded pages of one PDF.
type Extraction struct {
	Text          string
	PageCount     int
	PagesIncluded int
}

// Extractor reads text from PDF bytes.
type Extractor struct{}

// NewExtractor creates a new Extractor instance
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract concatenates the plain text of every page not in exclude, in page
// order. Page numbers are 1-indexed; numbers beyond the page count are ignored.
func (e *Extractor) Extract(data []byte, exclude map[int]bool) (out *Extraction, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = corrupt(fmt.Errorf("parser panic: %v", r))
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, corrupt(fmt.Errorf("pdf reader: %w", err))
	}

	total := r.NumPage()
	var sb strings.Builder
	included := 0
	for i := 1; i <= total; i++ {
		if exclude[i] {
			continue
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, corrupt(fmt.Errorf("page %d: %w", i, err))
		}
		sb.WriteString(text)
		included++
	}

	return &Extraction{
		Text:          sb.String(),
		PageCount:     total,
		PagesIncluded: included,
	}, nil
}

func corrupt(err error) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeExtraction, domain.ErrCorruptPDF.Message, err)
}
