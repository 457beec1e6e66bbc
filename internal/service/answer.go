package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/jobs"
	"github.com/cloo-solutions/docqa/internal/logger"
	"github.com/cloo-solutions/docqa/internal/metrics"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

const (
	// DefaultChatModel is the completion model used when none is configured.
	DefaultChatModel = "gpt-3.5-turbo"
	// DefaultAnswerMaxTokens bounds the length of a generated answer.
	DefaultAnswerMaxTokens = 150

	// DefaultSystemPrompt instructs the model to stay within the supplied context.
	DefaultSystemPrompt = "Eres un experto en responder preguntas basándose en el contexto y no alucinando con la información. Sea honesto y preciso"
	// DefaultUnknownReply is what the model is told to answer when the context is insufficient.
	DefaultUnknownReply = "No lo sé"

	userPromptTemplate = "Responde a la pregunta basándote en el contexto que aparece a continuación, selecciona una opción y escribe sólo la opción sin más texto, y si la pregunta no se puede responder basándote en el contexto, di \"%s\"\n\nContexto: %s\n\n---\n\nPregunta: %s\nRespuesta:"
)

// AnswerConfig controls prompt construction and completion parameters.
type AnswerConfig struct {
	Model            string
	MaxTokens        int
	Stop             []string
	MaxContextTokens int
	SystemPrompt     string
	UnknownReply     string
	// Debug logs the assembled context of every question.
	Debug bool
}

// DefaultAnswerConfig returns the default answer configuration.
func DefaultAnswerConfig() AnswerConfig {
	return AnswerConfig{
		Model:            DefaultChatModel,
		MaxTokens:        DefaultAnswerMaxTokens,
		MaxContextTokens: DefaultMaxContextTokens,
		SystemPrompt:     DefaultSystemPrompt,
		UnknownReply:     DefaultUnknownReply,
	}
}

// AnswerInput is one question against a set of records.
type AnswerInput struct {
	Question   string
	Records    []domain.EmbeddingRecord
	Credential Credential
	Debug      bool
}

// Answerer answers questions from the records nearest to the question.
type Answerer struct {
	clients   ClientFactory
	assembler *ContextAssembler
	retry     jobs.RetryPolicy
	cfg       AnswerConfig
}

// NewAnswerer creates a new Answerer instance
func NewAnswerer(clients ClientFactory, retry jobs.RetryPolicy, cfg AnswerConfig) *Answerer {
	def := DefaultAnswerConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = def.MaxContextTokens
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = def.SystemPrompt
	}
	if cfg.UnknownReply == "" {
		cfg.UnknownReply = def.UnknownReply
	}
	return &Answerer{
		clients:   clients,
		assembler: NewContextAssembler(),
		retry:     retry,
		cfg:       cfg,
	}
}

// Answer embeds the question, assembles the nearest context and asks the
// completion model. The completion is requested even when the context is
// empty. Service failures are returned as errors, never as an empty answer.
func (a *Answerer) Answer(ctx context.Context, in AnswerInput) (*domain.Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "Answerer.Answer", telemetry.SpanAttributes{
		Operation: "ask",
		Model:     a.cfg.Model,
		Records:   len(in.Records),
	})
	defer span.End()

	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	client, err := a.clients(in.Credential)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)

	queryEmbedding, err := a.embed(ctx, client, question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	window, err := a.assembler.Build(queryEmbedding, in.Records, a.cfg.MaxContextTokens)
	if err != nil {
		return nil, err
	}
	span.SetData("context_tokens", window.TokensUsed)

	reportWarnings(ctx, span, "context", window.Warnings)

	if a.cfg.Debug || in.Debug {
		log.Debug("assembled context",
			zap.Int("records", len(window.Included)),
			zap.Int("tokens", window.TokensUsed),
			zap.String("context", window.Text),
		)
	}

	req := a.buildRequest(question, window.Text)

	var text string
	err = a.retry.Do(ctx, "complete", func(ctx context.Context) error {
		var completeErr error
		text, completeErr = client.Complete(ctx, req)
		return completeErr
	})
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to complete answer: %w", err)
	}

	status := domain.ClassifyAnswer(text, a.cfg.UnknownReply)
	if status == domain.AnswerStatusEmpty {
		metrics.WarningsTotal.WithLabelValues("empty_answer").Inc()
	}

	return &domain.Answer{
		Question:       question,
		Text:           strings.TrimSpace(text),
		Status:         status,
		Context:        window.Text,
		ContextRecords: len(window.Included),
		ContextTokens:  window.TokensUsed,
		Warnings:       window.Warnings,
	}, nil
}

// EmbedQuestion embeds a question with the caller's credential.
func (a *Answerer) EmbedQuestion(ctx context.Context, cred Credential, question string) ([]float32, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	client, err := a.clients(cred)
	if err != nil {
		return nil, err
	}
	return a.embed(ctx, client, question)
}

func (a *Answerer) embed(ctx context.Context, client ModelClient, question string) ([]float32, error) {
	var vec []float32
	err := a.retry.Do(ctx, "embed question", func(ctx context.Context) error {
		var embedErr error
		vec, embedErr = client.GenerateEmbedding(ctx, question)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	return vec, nil
}

func (a *Answerer) buildRequest(question, contextText string) domain.CompletionRequest {
	return domain.CompletionRequest{
		Model:            a.cfg.Model,
		System:           a.cfg.SystemPrompt,
		User:             BuildUserPrompt(a.cfg.UnknownReply, contextText, question),
		MaxTokens:        a.cfg.MaxTokens,
		Temperature:      0,
		TopP:             1,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
		Stop:             a.cfg.Stop,
	}
}

// BuildUserPrompt embeds the context and question in the user message.
func BuildUserPrompt(unknownReply, contextText, question string) string {
	return fmt.Sprintf(userPromptTemplate, unknownReply, contextText, question)
}

// elapsedMs is shared by the services that log durations.
func elapsedMs(start time.Time) int {
	return int(time.Since(start).Milliseconds())
}
