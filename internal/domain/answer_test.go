package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAnswer(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected AnswerStatus
	}{
		{"answered", "Paris is the capital.", AnswerStatusAnswered},
		{"empty", "", AnswerStatusEmpty},
		{"whitespace", "  \n", AnswerStatusEmpty},
		{"unknown exact", "I don't know", AnswerStatusUnknown},
		{"unknown with period", "I don't know.", AnswerStatusUnknown},
		{"unknown other case", "i DON'T know", AnswerStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyAnswer(tt.text, "I don't know"))
		})
	}
}

func TestClassifyAnswer_NoUnknownReply(t *testing.T) {
	assert.Equal(t, AnswerStatusAnswered, ClassifyAnswer("I don't know", ""))
}

func TestServiceError_Retryable(t *testing.T) {
	tests := []struct {
		kind      ServiceErrorKind
		retryable bool
	}{
		{ServiceErrorTimeout, true},
		{ServiceErrorRateLimited, true},
		{ServiceErrorUnavailable, true},
		{ServiceErrorUnauthorized, false},
		{ServiceErrorBadRequest, false},
		{ServiceErrorMalformedResponse, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := NewServiceError("embedding", tt.kind, errors.New("boom"))
			assert.Equal(t, tt.retryable, err.Retryable())
			assert.Equal(t, tt.retryable, IsRetryable(fmt.Errorf("wrapped: %w", err)))
		})
	}
}

func TestServiceError_Error(t *testing.T) {
	err := NewServiceError("completion", ServiceErrorUnauthorized, errors.New("bad key"))

	assert.Equal(t, "completion service error (unauthorized): bad key", err.Error())
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestDomainError_Is(t *testing.T) {
	err := NewDomainErrorWithCause(ErrCodeValidation, "invalid page list", errors.New("x"))

	assert.ErrorIs(t, err, ErrInvalidPageList)
	assert.NotErrorIs(t, err, ErrInvalidPattern)
	assert.Equal(t, "[VALIDATION_ERROR] invalid page list: x", err.Error())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrStoreNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("pull: %w", ErrArchiveNotFound)))
	assert.False(t, IsNotFound(ErrEmptyQuestion))
	assert.False(t, IsNotFound(errors.New("plain")))
}
