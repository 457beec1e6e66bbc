package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReader_ReportsProgress(t *testing.T) {
	data := []byte("hello world this is test data")

	var calls []struct{ current, total int64 }
	pr := &progressReader{
		reader: bytes.NewReader(data),
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			calls = append(calls, struct{ current, total int64 }{current, total})
		},
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)

	require.NotEmpty(t, calls)
	last := calls[len(calls)-1]
	assert.Equal(t, int64(len(data)), last.current)
	assert.Equal(t, int64(len(data)), last.total)
}

func TestProgressReader_NilCallback(t *testing.T) {
	data := []byte("hello world")
	pr := &progressReader{reader: bytes.NewReader(data), total: int64(len(data))}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)
}

func TestAPIClient_PostDecodesDataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ask", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "¿Qué es?", body["question"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"question":"¿Qué es?","answer":"Un manual","status":"answered","context_records":2,"context_tokens":40,"warnings":[]}}`))
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL+"/", "sk-test")

	var report AnswerReport
	err := api.Post(context.Background(), "/ask", map[string]any{"question": "¿Qué es?"}, &report)
	require.NoError(t, err)
	assert.Equal(t, "Un manual", report.Answer)
	assert.Equal(t, "answered", report.Status)
	assert.Equal(t, 2, report.ContextRecords)
}

func TestAPIClient_EmptyKeySendsNoAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"items":[],"total":0,"has_more":false}}`))
	}))
	defer srv.Close()

	page, err := NewRemoteBackend(NewAPIClient(srv.URL, "")).Records(context.Background(), RecordsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"embedding service is rate limited","code":"SERVICE_rate_limited","retryable":true}`))
	}))
	defer srv.Close()

	err := NewAPIClient(srv.URL, "sk-test").Post(context.Background(), "/ask", map[string]any{}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "SERVICE_rate_limited", apiErr.Code)
	assert.True(t, apiErr.Retryable)
	assert.Contains(t, apiErr.Error(), "rate limited")
}

func TestAPIClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewAPIClient(srv.URL, "").Get(context.Background(), "/records", &struct{}{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestRemoteBackend_IngestSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ingest", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Page \\d+", r.FormValue("patterns"))
		assert.Equal(t, "1,2", r.FormValue("exclude_pages"))

		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		assert.Equal(t, "a.pdf", files[0].Filename)
		assert.Equal(t, "b.pdf", files[1].Filename)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"documents":[{"name":"a","page_count":3,"pages_included":1,"characters":10}],"records":4,"warnings":[],"duration_ms":12}}`))
	}))
	defer srv.Close()

	var progressed int64
	backend := NewRemoteBackend(NewAPIClient(srv.URL, "sk-test"))
	backend.Progress = func(current, total int64) { progressed = current }

	report, err := backend.Ingest(context.Background(), IngestRequest{
		Files:        []UploadFile{{Name: "a.pdf", Data: []byte("%PDF-a")}, {Name: "b.pdf", Data: []byte("%PDF-b")}},
		Patterns:     "Page \\d+",
		ExcludePages: "1,2",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Records)
	require.Len(t, report.Documents, 1)
	assert.Equal(t, 3, report.Documents[0].PageCount)
	assert.Positive(t, progressed)
}

func TestRemoteBackend_RecordsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "abc", q.Get("cursor"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "true", q.Get("embeddings"))
		w.Write([]byte(`{"data":{"items":[{"position":5,"text":"x","n_tokens":1,"dimensions":2,"embedding":[1,0]}],"total":9,"cursor":"next","has_more":true}}`))
	}))
	defer srv.Close()

	page, err := NewRemoteBackend(NewAPIClient(srv.URL, "")).Records(context.Background(),
		RecordsQuery{Cursor: "abc", Limit: 5, Embeddings: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 5, page.Items[0].Position)
	assert.Equal(t, []float32{1, 0}, page.Items[0].Embedding)
	assert.True(t, page.HasMore)
	assert.Equal(t, "next", page.Cursor)
}

func TestRemoteBackend_PushAndPull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tables/x.csv", body["key"])

		switch r.URL.Path {
		case "/archive":
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"data":{"key":"tables/x.csv","records":3,"bytes":120}}`))
		case "/archive/restore":
			w.Write([]byte(`{"data":{"loaded":true,"records":3,"dimensions":2,"total_tokens":30}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	backend := NewRemoteBackend(NewAPIClient(srv.URL, ""))

	result, err := backend.Push(context.Background(), "tables/x.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Records)
	assert.Equal(t, int64(120), result.Bytes)

	stats, err := backend.Pull(context.Background(), "tables/x.csv")
	require.NoError(t, err)
	assert.True(t, stats.Loaded)
	assert.Equal(t, 2, stats.Dimensions)
}

func TestAPIClient_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/export", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("text,n_tokens,embeddings\n"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	err := NewAPIClient(srv.URL, "sk-test").Download(context.Background(), "/export", &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, "text,n_tokens,embeddings\n", buf.String())
}
