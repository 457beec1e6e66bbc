package store

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// TableFormatVersion identifies the persisted table layout written by WriteTable.
const TableFormatVersion = 1

var tableHeader = []string{"text", "n_tokens", "embeddings"}

// WriteTable writes the store as CSV with the header text,n_tokens,embeddings.
// Embeddings are JSON arrays of floats.
func WriteTable(w io.Writer, s *Store) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range s.Records() {
		emb, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("encode embedding %d: %w", i, err)
		}
		row := []string{rec.Text, strconv.Itoa(rec.TokenCount), string(emb)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadTable parses a table written by WriteTable. A leading unnamed index
// column is accepted and ignored. Embedding cells are parsed as JSON.
func ReadTable(r io.Reader) (*Store, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, invalidTable(errors.New("table is empty"))
	}
	if err != nil {
		return nil, invalidTable(fmt.Errorf("read header: %w", err))
	}

	cols, err := columnIndexes(header)
	if err != nil {
		return nil, invalidTable(err)
	}

	s := New()
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, invalidTable(fmt.Errorf("line %d: %w", line, err))
		}
		if len(row) != len(header) {
			return nil, invalidTable(fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(row)))
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, invalidTable(fmt.Errorf("line %d: %w", line, err))
		}
		if err := s.Append(rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	return s, nil
}

type columns struct {
	text, tokens, embeddings int
}

func columnIndexes(header []string) (columns, error) {
	cols := columns{text: -1, tokens: -1, embeddings: -1}
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case "text":
			cols.text = i
		case "n_tokens":
			cols.tokens = i
		case "embeddings":
			cols.embeddings = i
		case "":
			if i != 0 {
				return cols, fmt.Errorf("unnamed column at position %d", i+1)
			}
		default:
			// other columns (such as the document name) are ignored
		}
	}
	if cols.text < 0 || cols.tokens < 0 || cols.embeddings < 0 {
		return cols, fmt.Errorf("header %q must contain %s", strings.Join(header, ","), strings.Join(tableHeader, ","))
	}
	return cols, nil
}

func parseRow(row []string, cols columns) (domain.EmbeddingRecord, error) {
	tokens, err := strconv.Atoi(strings.TrimSpace(row[cols.tokens]))
	if err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("n_tokens %q is not an integer", row[cols.tokens])
	}

	var emb []float32
	if err := json.Unmarshal([]byte(row[cols.embeddings]), &emb); err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("embeddings is not a JSON array of numbers: %w", err)
	}

	return domain.EmbeddingRecord{
		Text:       row[cols.text],
		TokenCount: tokens,
		Embedding:  emb,
	}, nil
}

func invalidTable(err error) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidTable.Message, err)
}
