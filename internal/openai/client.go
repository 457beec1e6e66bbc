package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/metrics"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel answers questions from the assembled context
	DefaultChatModel = openai.GPT3Dot5Turbo

	serviceEmbedding  = "embedding"
	serviceCompletion = "completion"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client wraps the OpenAI API client
type Client struct {
	api            EmbeddingAPI
	chat           ChatAPI
	limiter        *rate.Limiter
	dimensions     int
	embeddingModel string
	chatModel      string
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(client *openai.Client, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: client,
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create one embedding per input, in input order
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, 0, len(data))
	for _, d := range data {
		out = append(out, d.Embedding)
	}
	return out, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
	ChatModel           string
	HTTPClient          *http.Client
	// Limiter is shared by every client built from the same Factory. Nil means unlimited.
	Limiter *rate.Limiter
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = string(DefaultEmbeddingModel)
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		apiCfg.HTTPClient = cfg.HTTPClient
	}
	api := openai.NewClientWithConfig(apiCfg)

	return &Client{
		api:            NewOpenAIAdapter(api, openai.EmbeddingModel(embeddingModel)),
		chat:           api,
		limiter:        limiter,
		dimensions:     dimensions,
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
	}
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vecs, err := c.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GenerateEmbeddings embeds a batch of texts with one request. The result has one vector per text, in order.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyError(serviceEmbedding, err)
	}

	start := time.Now()
	vecs, err := c.api.CreateEmbeddings(ctx, texts)
	metrics.ServiceRequestDuration.WithLabelValues(serviceEmbedding, c.embeddingModel).Observe(time.Since(start).Seconds())
	if err != nil {
		svcErr := classifyError(serviceEmbedding, err)
		metrics.ServiceRequestsTotal.WithLabelValues(serviceEmbedding, c.embeddingModel, string(svcErr.Kind)).Inc()
		return nil, svcErr
	}

	if len(vecs) != len(texts) {
		metrics.ServiceRequestsTotal.WithLabelValues(serviceEmbedding, c.embeddingModel, string(domain.ServiceErrorMalformedResponse)).Inc()
		return nil, domain.NewServiceError(serviceEmbedding, domain.ServiceErrorMalformedResponse,
			fmt.Errorf("got %d embeddings for %d inputs", len(vecs), len(texts)))
	}
	for i, v := range vecs {
		if len(v) != c.dimensions {
			metrics.ServiceRequestsTotal.WithLabelValues(serviceEmbedding, c.embeddingModel, string(domain.ServiceErrorMalformedResponse)).Inc()
			return nil, domain.NewServiceError(serviceEmbedding, domain.ServiceErrorMalformedResponse,
				fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(v), c.dimensions))
		}
	}

	metrics.ServiceRequestsTotal.WithLabelValues(serviceEmbedding, c.embeddingModel, "ok").Inc()
	return vecs, nil
}

// Complete runs one chat completion and returns the trimmed text of the first choice.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.chatModel
	}

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Stop:             req.Stop,
	}
	// a zero temperature is dropped by omitempty and the API would fall back to 1
	if chatReq.Temperature == 0 {
		chatReq.Temperature = math.SmallestNonzeroFloat32
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", classifyError(serviceCompletion, err)
	}

	start := time.Now()
	resp, err := c.chat.CreateChatCompletion(ctx, chatReq)
	metrics.ServiceRequestDuration.WithLabelValues(serviceCompletion, model).Observe(time.Since(start).Seconds())
	if err != nil {
		svcErr := classifyError(serviceCompletion, err)
		metrics.ServiceRequestsTotal.WithLabelValues(serviceCompletion, model, string(svcErr.Kind)).Inc()
		return "", svcErr
	}

	if len(resp.Choices) == 0 {
		metrics.ServiceRequestsTotal.WithLabelValues(serviceCompletion, model, string(domain.ServiceErrorMalformedResponse)).Inc()
		return "", domain.NewServiceError(serviceCompletion, domain.ServiceErrorMalformedResponse,
			errors.New("no choices returned"))
	}

	metrics.ServiceRequestsTotal.WithLabelValues(serviceCompletion, model, "ok").Inc()
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
