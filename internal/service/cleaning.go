package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// TextCleaner removes every match of an ordered list of regular expressions.
type TextCleaner struct {
	patterns []*regexp.Regexp
}

// NewTextCleaner compiles patterns. An invalid pattern is an input error.
func NewTextCleaner(patterns []string) (*TextCleaner, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidPattern.Message,
				fmt.Errorf("pattern %q: %w", p, err))
		}
		compiled = append(compiled, re)
	}
	return &TextCleaner{patterns: compiled}, nil
}

// Clean applies the patterns in list order.
func (c *TextCleaner) Clean(text string) string {
	for _, re := range c.patterns {
		text = re.ReplaceAllString(text, "")
	}
	return text
}

// ParsePatterns splits a comma separated pattern list. Blank entries are skipped.
func ParsePatterns(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ParsePageList parses a comma separated list of 1-indexed page numbers into
// a sorted list without duplicates. An empty list excludes nothing.
func ParsePageList(raw string) ([]int, error) {
	seen := map[int]bool{}
	pages := []int{}
	if strings.TrimSpace(raw) == "" {
		return pages, nil
	}

	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidPageList.Message,
				fmt.Errorf("%q is not a page number", field))
		}
		if err := validatePage(n); err != nil {
			return nil, err
		}
		if !seen[n] {
			seen[n] = true
			pages = append(pages, n)
		}
	}
	sort.Ints(pages)
	return pages, nil
}

func validatePage(n int) error {
	if n < 1 {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidPageList.Message,
			fmt.Errorf("page numbers start at 1, got %d", n))
	}
	return nil
}
