package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docqa/internal/domain"
)

func TestTextCleaner_Clean(t *testing.T) {
	cleaner, err := NewTextCleaner([]string{`CONFIDENTIAL`, `Page \d+`, `\s{2,}`})
	require.NoError(t, err)

	got := cleaner.Clean("CONFIDENTIAL Intro.  Page 12 Body text.")

	assert.Equal(t, " Intro.Body text.", got)
}

func TestTextCleaner_OrderMatters(t *testing.T) {
	forward, err := NewTextCleaner([]string{"ab", "c"})
	require.NoError(t, err)
	reverse, err := NewTextCleaner([]string{"c", "ab"})
	require.NoError(t, err)

	assert.Equal(t, "ab", forward.Clean("acb"))
	assert.Equal(t, "", reverse.Clean("acb"))
}

func TestTextCleaner_NoPatterns(t *testing.T) {
	cleaner, err := NewTextCleaner(nil)
	require.NoError(t, err)

	assert.Equal(t, "unchanged", cleaner.Clean("unchanged"))
}

func TestNewTextCleaner_InvalidPattern(t *testing.T) {
	_, err := NewTextCleaner([]string{"ok", "("})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidPattern)
	assert.Contains(t, err.Error(), `"("`)
}

func TestParsePatterns(t *testing.T) {
	assert.Equal(t, []string{"foo", " bar"}, ParsePatterns("foo, bar,,"))
	assert.Nil(t, ParsePatterns(""))
}

func TestParsePageList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []int
		wantErr  bool
	}{
		{name: "empty", input: "", expected: []int{}},
		{name: "single", input: "1", expected: []int{1}},
		{name: "spaces and duplicates", input: " 5, 2 ,1,2", expected: []int{1, 2, 5}},
		{name: "trailing comma", input: "3,", expected: []int{3}},
		{name: "non numeric", input: "1,two", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-4", wantErr: true},
		{name: "range not supported", input: "1-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := ParsePageList(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidPageList)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, pages)
		})
	}
}
