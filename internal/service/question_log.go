package service

import "context"

// QuestionLogEntry captures a question and the outcome of answering it.
type QuestionLogEntry struct {
	Question       string
	Status         string
	ContextRecords int
	ContextTokens  int
	DurationMs     int
	Error          string
}

// QuestionLogRepository persists question logs.
type QuestionLogRepository interface {
	CreateQuestionLog(ctx context.Context, entry QuestionLogEntry) (string, error)
}
