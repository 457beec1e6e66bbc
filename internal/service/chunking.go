package service

import (
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/tokenizer"
)

const (
	// DefaultMaxChunkTokens bounds the size of a single embedded chunk.
	DefaultMaxChunkTokens = 500

	sentenceSeparator = ". "
)

// ChunkConfig controls sentence-preserving chunking.
type ChunkConfig struct {
	MaxTokens int
	// FlushTrailing emits the sentences still buffered when the text ends.
	FlushTrailing bool
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxTokens:     DefaultMaxChunkTokens,
		FlushTrailing: true,
	}
}

// ChunkResult holds the chunks produced from one or more texts and any data lost on the way.
type ChunkResult struct {
	Chunks   []domain.Chunk
	Warnings []domain.Warning
}

// Chunker splits text into token-bounded chunks without splitting sentences.
type Chunker struct {
	counter tokenizer.Counter
	cfg     ChunkConfig
}

// NewChunker creates a Chunker. A non-positive MaxTokens falls back to the default.
func NewChunker(counter tokenizer.Counter, cfg ChunkConfig) *Chunker {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxChunkTokens
	}
	return &Chunker{counter: counter, cfg: cfg}
}

// MaxTokens returns the per-chunk token budget.
func (c *Chunker) MaxTokens() int {
	return c.cfg.MaxTokens
}

// Split segments text on ". " and greedily packs whole sentences into chunks.
// A sentence costs its token count (measured with a leading space) plus one
// for the separator. Sentences that alone exceed the budget are dropped.
func (c *Chunker) Split(text string) ChunkResult {
	var res ChunkResult
	budget := c.cfg.MaxTokens

	var buf []string
	tokensSoFar := 0

	closeChunk := func() {
		if len(buf) == 0 {
			return
		}
		c.emit(&res, strings.Join(buf, sentenceSeparator)+".")
		buf = nil
		tokensSoFar = 0
	}

	for i, sentence := range strings.Split(text, sentenceSeparator) {
		if strings.TrimSpace(sentence) == "" {
			continue
		}

		n := c.counter.CountTokens(" " + sentence)

		if tokensSoFar+n > budget {
			closeChunk()
		}

		if n > budget {
			res.Warnings = append(res.Warnings, domain.NewWarning(domain.WarningSentenceDropped,
				"sentence %d has %d tokens, above the chunk budget of %d", i+1, n, budget))
			continue
		}

		buf = append(buf, sentence)
		tokensSoFar += n + 1
	}

	if len(buf) > 0 {
		if c.cfg.FlushTrailing {
			closeChunk()
		} else {
			res.Warnings = append(res.Warnings, domain.NewWarning(domain.WarningTrailingChunkDropped,
				"%d trailing sentences were not emitted", len(buf)))
		}
	}

	return res
}

// Shorten chunks a corpus. A document that fits the budget is kept whole;
// longer documents are split. Every unit is re-measured and discarded when it
// still exceeds the budget.
func (c *Chunker) Shorten(docs []domain.Document) ChunkResult {
	var res ChunkResult

	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			res.Warnings = append(res.Warnings, domain.NewWarning(domain.WarningEmptyDocument,
				"document %q has no text", doc.Name))
			continue
		}

		if c.counter.CountTokens(doc.Text) <= c.cfg.MaxTokens {
			c.emit(&res, doc.Text)
			continue
		}

		split := c.Split(doc.Text)
		res.Chunks = append(res.Chunks, split.Chunks...)
		res.Warnings = append(res.Warnings, split.Warnings...)
	}

	return res
}

func (c *Chunker) emit(res *ChunkResult, text string) {
	n := c.counter.CountTokens(text)
	if n > c.cfg.MaxTokens {
		res.Warnings = append(res.Warnings, domain.NewWarning(domain.WarningUnitDiscarded,
			"unit of %d tokens exceeds the chunk budget of %d", n, c.cfg.MaxTokens))
		return
	}
	res.Chunks = append(res.Chunks, domain.Chunk{Text: text, TokenCount: n})
}
