package cli

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docqa/internal/config"
	"github.com/cloo-solutions/docqa/internal/jobs"
	"github.com/cloo-solutions/docqa/internal/openai"
	"github.com/cloo-solutions/docqa/internal/pdf"
	"github.com/cloo-solutions/docqa/internal/service"
	"github.com/cloo-solutions/docqa/internal/storage"
	"github.com/cloo-solutions/docqa/internal/tokenizer"
)

// StackOptions carries the optional persistence used by the daemon.
type StackOptions struct {
	Records   service.RecordRepository
	Questions service.QuestionLogRepository
	// EnsureBucket creates the archive bucket when it does not exist.
	EnsureBucket bool
}

// Stack is the service graph both binaries run on.
type Stack struct {
	Session  *service.Session
	Archiver *service.Archiver
	Storage  *storage.S3Client
}

// BuildStack wires the tokenizer, chunker, embedding and completion clients
// into a Session. The archiver is only built when S3 is configured.
func BuildStack(ctx context.Context, cfg *config.Config, opts StackOptions) (*Stack, error) {
	counter, err := tokenizer.New(cfg.TokenizerEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	factory := openai.NewFactory(openai.Config{
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		ChatModel:           cfg.ChatModel,
	}, cfg.EmbeddingRPS)

	clients := func(cred service.Credential) (service.ModelClient, error) {
		client, err := factory.ForCredential(string(cred))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	retry := jobs.DefaultRetryPolicy()
	chunker := service.NewChunker(counter, service.ChunkConfig{
		MaxTokens:     cfg.ChunkMaxTokens,
		FlushTrailing: cfg.ChunkFlushTrailing,
	})
	embedder := service.NewEmbeddingService(
		jobs.NewBatchRunner(cfg.EmbeddingBatchSize, cfg.EmbeddingConcurrency, retry))

	ingestor := service.NewIngestor(pdf.NewExtractor(), chunker, embedder, clients)
	answerer := service.NewAnswerer(clients, retry, service.AnswerConfig{
		Model:            cfg.ChatModel,
		MaxTokens:        cfg.AnswerMaxTokens,
		Stop:             cfg.AnswerStop,
		MaxContextTokens: cfg.ContextMaxTokens,
		Debug:            cfg.Debug,
	})

	stack := &Stack{
		Session: service.NewSession(ingestor, answerer, opts.Records, opts.Questions),
	}

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if opts.EnsureBucket {
			if err := s3Client.EnsureBucket(ctx); err != nil {
				return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
			}
		}
		stack.Storage = s3Client
		stack.Archiver = service.NewArchiver(s3Client, stack.Session, storage.ArchiveKey)
	}

	return stack, nil
}
