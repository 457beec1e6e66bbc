package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"
)

// FakeOpenAI serves the embeddings and chat completions endpoints with
// deterministic replies. Embeddings are a bag of letters folded into the
// configured dimension, so identical texts get identical vectors.
type FakeOpenAI struct {
	srv        *httptest.Server
	dimensions int
	answer     string

	embeddingCalls  atomic.Int64
	completionCalls atomic.Int64
}

// NewFakeOpenAI starts a fake that answers every completion with answer.
func NewFakeOpenAI(dimensions int, answer string) *FakeOpenAI {
	f := &FakeOpenAI{dimensions: dimensions, answer: answer}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /embeddings", f.embeddings)
	mux.HandleFunc("POST /chat/completions", f.chat)
	f.srv = httptest.NewServer(mux)

	return f
}

// URL is the base URL to configure as DOCQA_OPENAI_BASE_URL.
func (f *FakeOpenAI) URL() string {
	return f.srv.URL
}

func (f *FakeOpenAI) Close() {
	f.srv.Close()
}

func (f *FakeOpenAI) EmbeddingCalls() int64 {
	return f.embeddingCalls.Load()
}

func (f *FakeOpenAI) CompletionCalls() int64 {
	return f.completionCalls.Load()
}

// Embedding returns the vector the fake produces for text.
func (f *FakeOpenAI) Embedding(text string) []float32 {
	return FakeEmbedding(text, f.dimensions)
}

// FakeEmbedding is the vector a FakeOpenAI with the given dimension returns for text.
func FakeEmbedding(text string, dimensions int) []float32 {
	vec := make([]float32, dimensions)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[int(r)%dimensions]++
		}
	}
	// keeps texts without letters off the zero vector
	vec[0] += 0.5
	return vec
}

func (f *FakeOpenAI) embeddings(w http.ResponseWriter, r *http.Request) {
	f.embeddingCalls.Add(1)

	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	type item struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	data := make([]item, len(req.Input))
	for i, text := range req.Input {
		data[i] = item{Object: "embedding", Embedding: f.Embedding(text), Index: i}
	}

	writeJSON(w, map[string]any{
		"object": "list",
		"data":   data,
		"model":  req.Model,
		"usage":  map[string]int{"prompt_tokens": len(req.Input), "total_tokens": len(req.Input)},
	})
}

func (f *FakeOpenAI) chat(w http.ResponseWriter, r *http.Request) {
	f.completionCalls.Add(1)

	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": f.answer},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
