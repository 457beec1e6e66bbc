//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docqa/internal/domain"
)

func TestIntegration_GenerateEmbeddings_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	vecs, err := client.GenerateEmbeddings(context.Background(), []string{
		"This is a test document for generating embeddings.",
		"A second sentence.",
	})

	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], DefaultEmbeddingDimensions)
}

func TestIntegration_Complete_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	text, err := client.Complete(context.Background(), domain.CompletionRequest{
		System:    "Answer with one word.",
		User:      "What colour is the sky on a clear day?",
		MaxTokens: 5,
		TopP:      1,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestIntegration_InvalidKey(t *testing.T) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	_, err := NewClient("sk-invalid").GenerateEmbedding(context.Background(), "hello")

	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, domain.ServiceErrorUnauthorized, svcErr.Kind)
}
