package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. DOCQA_PORT.
const EnvPrefix = "DOCQA"

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// MaxUploadMB bounds the request body of ingest and import.
	MaxUploadMB int64 `envconfig:"MAX_UPLOAD_MB" default:"100"`

	OpenAIAPIKey         string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL        string  `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel       string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions  int     `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbeddingBatchSize   int     `envconfig:"EMBEDDING_BATCH_SIZE" default:"64"`
	EmbeddingConcurrency int     `envconfig:"EMBEDDING_CONCURRENCY" default:"4"`
	EmbeddingRPS         float64 `envconfig:"EMBEDDING_RPS" default:"0"`

	ChatModel        string   `envconfig:"CHAT_MODEL" default:"gpt-3.5-turbo"`
	AnswerMaxTokens  int      `envconfig:"ANSWER_MAX_TOKENS" default:"150"`
	AnswerStop       []string `envconfig:"ANSWER_STOP"`
	ContextMaxTokens int      `envconfig:"CONTEXT_MAX_TOKENS" default:"1800"`

	ChunkMaxTokens     int    `envconfig:"CHUNK_MAX_TOKENS" default:"500"`
	ChunkFlushTrailing bool   `envconfig:"CHUNK_FLUSH_TRAILING" default:"true"`
	TokenizerEncoding  string `envconfig:"TOKENIZER_ENCODING" default:"cl100k_base"`

	// DatabaseURL enables persistence of the store and the question log.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docqa-tables"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN              string  `envconfig:"SENTRY_DSN"`
	SentryTracesSampleRate float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE" default:"1.0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects budgets and limits that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.ChunkMaxTokens <= 0:
		return fmt.Errorf("CHUNK_MAX_TOKENS must be positive, got %d", c.ChunkMaxTokens)
	case c.ContextMaxTokens <= 0:
		return fmt.Errorf("CONTEXT_MAX_TOKENS must be positive, got %d", c.ContextMaxTokens)
	case c.AnswerMaxTokens <= 0:
		return fmt.Errorf("ANSWER_MAX_TOKENS must be positive, got %d", c.AnswerMaxTokens)
	case c.EmbeddingDimensions <= 0:
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.EmbeddingDimensions)
	case c.EmbeddingRPS < 0:
		return fmt.Errorf("EMBEDDING_RPS cannot be negative, got %v", c.EmbeddingRPS)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
