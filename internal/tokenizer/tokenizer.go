package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// DefaultEncoding is the byte-pair encoding used by text-embedding-ada-002 and gpt-3.5-turbo.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens the way the embedding model does.
type Counter interface {
	CountTokens(text string) int
}

// Tiktoken is a Counter backed by a tiktoken byte-pair encoding.
type Tiktoken struct {
	enc  *tiktoken.Tiktoken
	name string
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Tiktoken{}
)

// New loads the named encoding. Loaded encodings are cached per process.
func New(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if t, ok := cache[encoding]; ok {
		return t, nil
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrUnsupportedEncoding.Message,
			fmt.Errorf("load encoding %q: %w", encoding, err))
	}

	t := &Tiktoken{enc: enc, name: encoding}
	cache[encoding] = t
	return t, nil
}

// Encoding returns the encoding name.
func (t *Tiktoken) Encoding() string {
	return t.name
}

// Encode returns the token ids of text. Special tokens are encoded as plain text.
func (t *Tiktoken) Encode(text string) []int {
	if text == "" {
		return nil
	}
	return t.enc.Encode(text, nil, nil)
}

// CountTokens returns the number of tokens in text.
func (t *Tiktoken) CountTokens(text string) int {
	return len(t.Encode(text))
}
