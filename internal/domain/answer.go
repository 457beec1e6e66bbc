package domain

import (
	"strings"
)

// AnswerStatus distinguishes the outcomes of a successful completion call.
type AnswerStatus string

const (
	// AnswerStatusAnswered means the model produced an answer from the context.
	AnswerStatusAnswered AnswerStatus = "answered"
	// AnswerStatusUnknown means the model replied that the context does not contain the answer.
	AnswerStatusUnknown AnswerStatus = "unknown"
	// AnswerStatusEmpty means the model returned no text at all.
	AnswerStatusEmpty AnswerStatus = "empty"
)

// Answer is the result of one question against the embedding store.
type Answer struct {
	Question       string
	Text           string
	Status         AnswerStatus
	Context        string
	ContextRecords int
	ContextTokens  int
	Warnings       []Warning
}

// ClassifyAnswer derives the status of a completion text. unknownReply is the
// phrase the model is instructed to use when the context cannot answer.
func ClassifyAnswer(text, unknownReply string) AnswerStatus {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return AnswerStatusEmpty
	}
	if unknownReply != "" {
		normalized := strings.ToLower(strings.TrimRight(clean, ".! "))
		if normalized == strings.ToLower(strings.TrimRight(unknownReply, ".! ")) {
			return AnswerStatusUnknown
		}
	}
	return AnswerStatusAnswered
}

// CompletionRequest is one chat completion call with a fixed system instruction.
type CompletionRequest struct {
	Model            string
	System           string
	User             string
	MaxTokens        int
	Temperature      float32
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
	Stop             []string
}
