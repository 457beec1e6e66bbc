package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
)

const (
	// DefaultMaxContextTokens bounds the context handed to the completion model.
	DefaultMaxContextTokens = 1800

	// ContextSeparator separates chunks in the assembled context.
	ContextSeparator = "\n\n###\n\n"

	// contextRecordOverhead is charged per included record on top of its token count.
	contextRecordOverhead = 4
)

// ScoredRecord is a store record with its distance to the query.
type ScoredRecord struct {
	Record   domain.EmbeddingRecord
	Distance float64
}

// ContextWindow is the nearest-first, token-bounded context for one query.
type ContextWindow struct {
	Text       string
	Included   []ScoredRecord
	TokensUsed int
	Warnings   []domain.Warning
}

// ContextAssembler selects the records most similar to a query embedding.
type ContextAssembler struct{}

// NewContextAssembler creates a new ContextAssembler instance
func NewContextAssembler() *ContextAssembler {
	return &ContextAssembler{}
}

// Build ranks records by cosine distance to queryEmbedding and includes them
// nearest first until the next record would push the running total above
// maxTokens. Each record costs its token count plus a fixed overhead.
func (a *ContextAssembler) Build(queryEmbedding []float32, records []domain.EmbeddingRecord, maxTokens int) (*ContextWindow, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}

	window := &ContextWindow{}
	if len(records) == 0 {
		window.Warnings = append(window.Warnings, domain.NewWarning(domain.WarningEmptyStore,
			"no records are loaded, the context is empty"))
		return window, nil
	}

	scored, err := a.Rank(queryEmbedding, records)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(scored))
	cur := 0
	for _, s := range scored {
		cost := s.Record.TokenCount + contextRecordOverhead
		if cur+cost > maxTokens {
			break
		}
		cur += cost
		window.Included = append(window.Included, s)
		texts = append(texts, s.Record.Text)
	}

	window.Text = strings.Join(texts, ContextSeparator)
	window.TokensUsed = cur

	if len(window.Included) == 0 {
		window.Warnings = append(window.Warnings, domain.NewWarning(domain.WarningEmptyContext,
			"nearest record needs %d tokens, above the context budget of %d",
			scored[0].Record.TokenCount+contextRecordOverhead, maxTokens))
	}

	return window, nil
}

// Rank orders records by cosine distance to queryEmbedding, nearest first.
// Records at equal distance keep their store order.
func (a *ContextAssembler) Rank(queryEmbedding []float32, records []domain.EmbeddingRecord) ([]ScoredRecord, error) {
	scored := make([]ScoredRecord, 0, len(records))
	for i, rec := range records {
		d, err := CosineDistance(queryEmbedding, rec.Embedding)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		scored = append(scored, ScoredRecord{Record: rec, Distance: d})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})
	return scored, nil
}

const distanceEpsilon = 1e-12

// CosineDistance returns 1 - cos(a, b). A zero vector has similarity 0 with anything.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrDimensionMismatch.Message,
			fmt.Errorf("query has %d dimensions, record has %d", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 1, nil
	}

	// Parallel vectors must tie at exactly 0 so equal distances keep store order.
	sim := math.Max(-1, math.Min(1, dot/math.Sqrt(normA*normB)))
	dist := 1 - sim
	if math.Abs(dist) < distanceEpsilon {
		return 0, nil
	}
	return dist, nil
}
