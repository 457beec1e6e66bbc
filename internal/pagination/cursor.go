package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the page size used when none is requested.
	DefaultLimit = 20
	// MaxLimit caps the page size a client may request.
	MaxLimit = 200

	cursorPrefix = "offset:"
)

// Cursor represents a decoded pagination cursor
type Cursor struct {
	Offset int
}

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Total   int    `json:"total"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
)

// EncodeCursor creates a base64-encoded cursor pointing at offset
func EncodeCursor(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

// DecodeCursor decodes a cursor. An empty cursor is the first page.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return &Cursor{}, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	raw, ok := strings.CutPrefix(string(decoded), cursorPrefix)
	if !ok {
		return nil, ErrInvalidCursor
	}

	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return nil, ErrInvalidCursor
	}

	return &Cursor{Offset: offset}, nil
}

// ClampLimit applies DefaultLimit and MaxLimit to a requested page size
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NewPage builds a page of items that starts at offset within total items.
func NewPage[T any](items []T, offset, total int) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	next := offset + len(items)
	page := PageResult[T]{
		Items:   items,
		Total:   total,
		HasMore: next < total,
	}
	if page.HasMore {
		page.Cursor = EncodeCursor(next)
	}
	return page
}
