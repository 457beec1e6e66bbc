package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docqa/internal/domain"
)

func TestChunker_Split_TwoSentencesOneChunk(t *testing.T) {
	c := NewChunker(wordCounter{}, ChunkConfig{MaxTokens: 10, FlushTrailing: true})

	res := c.Split("Intro. This is a test. ")

	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "Intro. This is a test.", res.Chunks[0].Text)
	assert.Equal(t, 5, res.Chunks[0].TokenCount)
	assert.Empty(t, res.Warnings)
}

func TestChunker_Split_DropsOversizedSentence(t *testing.T) {
	c := NewChunker(wordCounter{}, ChunkConfig{MaxTokens: 5, FlushTrailing: true})

	res := c.Split(words(12, "long"))

	assert.Empty(t, res.Chunks)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarningSentenceDropped, res.Warnings[0].Code)
}

func TestChunker_Split_OversizedSentenceClosesBuffer(t *testing.T) {
	c := NewChunker(wordCounter{}, ChunkConfig{MaxTokens: 5, FlushTrailing: true})

	res := c.Split("a b. c d e f g h. i j")

	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "a b.", res.Chunks[0].Text)
	assert.Equal(t, "i j.", res.Chunks[1].Text)
	for _, ch := range res.Chunks {
		assert.NotContains(t, ch.Text, "c d e")
	}
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarningSentenceDropped, res.Warnings[0].Code)
}

func TestChunker_Split_GreedyBoundaries(t *testing.T) {
	// each sentence costs 3 tokens plus one for the separator
	c := NewChunker(wordCounter{}, ChunkConfig{MaxTokens: 8, FlushTrailing: true})

	res := c.Split("a a a. b b b. c c c. d d d. e e e")

	require.Len(t, res.Chunks, 3)
	assert.Equal(t, "a a a. b b b.", res.Chunks[0].Text)
	assert.Equal(t, "c c c. d d d.", res.Chunks[1].Text)
	assert.Equal(t, "e e e.", res.Chunks[2].Text)
}

func TestChunker_Split_TrailingChunkDroppedWhenFlushDisabled(t *testing.T) {
	c := NewChunker(wordCounter{}, ChunkConfig{MaxTokens: 10, FlushTrailing: false})

	res := c.Split("a b. c d")

	assert.Empty(t, res.Chunks)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarningTrailingChunkDropped, res.Warnings[0].Code)
}

func TestChunker_Split_NeverExceedsBudget(t *testing.T) {
	const budget = 10
	c := NewChunker(wordCounter{}, ChunkConfig{MaxTokens: budget, FlushTrailing: true})

	var sentences []string
	totalSentenceTokens := 0
	for i := 0; i < 200; i++ {
		n := (i*7)%13 + 1
		sentences = append(sentences, words(n, "w"))
		if n <= budget {
			totalSentenceTokens += n
		}
	}
	res := c.Split(strings.Join(sentences, ". "))

	require.NotEmpty(t, res.Chunks)
	emitted := 0
	for _, ch := range res.Chunks {
		assert.LessOrEqual(t, ch.TokenCount, budget)
		assert.True(t, strings.HasSuffix(ch.Text, "."))
		emitted += ch.TokenCount
	}
	// dropped sentences are never truncated into a chunk
	assert.Equal(t, totalSentenceTokens, emitted)

	joined := make([]string, 0, len(res.Chunks))
	for _, ch := range res.Chunks {
		joined = append(joined, ch.Text)
	}
	rejoined := wordCounter{}.CountTokens(strings.Join(joined, sentenceSeparator))
	assert.LessOrEqual(t, rejoined, totalSentenceTokens+len(sentences))
}

func TestChunker_Split_EmptyText(t *testing.T) {
	c := NewChunker(wordCounter{}, DefaultChunkConfig())

	res := c.Split("")

	assert.Empty(t, res.Chunks)
	assert.Empty(t, res.Warnings)
}

func TestNewChunker_DefaultBudget(t *testing.T) {
	c := NewChunker(wordCounter{}, ChunkConfig{})

	assert.Equal(t, DefaultMaxChunkTokens, c.MaxTokens())
}

func TestChunker_Shorten(t *testing.T) {
	c := NewChunker(wordCounter{}, ChunkConfig{MaxTokens: 7, FlushTrailing: true})

	docs := []domain.Document{
		{Name: "short", Text: "Fits. Whole document"},
		{Name: "long", Text: "a b c. d e f. g h i"},
		{Name: "empty", Text: "  "},
	}

	res := c.Shorten(docs)

	require.Len(t, res.Chunks, 3)
	assert.Equal(t, "Fits. Whole document", res.Chunks[0].Text)
	assert.Equal(t, 3, res.Chunks[0].TokenCount)
	assert.Equal(t, "a b c. d e f.", res.Chunks[1].Text)
	assert.Equal(t, "g h i.", res.Chunks[2].Text)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarningEmptyDocument, res.Warnings[0].Code)
}

func TestChunker_Shorten_DiscardsRemeasuredUnit(t *testing.T) {
	// sentences measure small but any joined unit measures huge
	counter := counterFunc(func(s string) int {
		if strings.HasPrefix(s, " ") {
			return 1
		}
		return 100
	})
	c := NewChunker(counter, ChunkConfig{MaxTokens: 10, FlushTrailing: true})

	res := c.Shorten([]domain.Document{{Name: "doc", Text: "a. b"}})

	assert.Empty(t, res.Chunks)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarningUnitDiscarded, res.Warnings[0].Code)
}
