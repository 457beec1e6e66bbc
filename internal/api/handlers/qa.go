package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/api/middleware"
	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logger"
	"github.com/cloo-solutions/docqa/internal/pagination"
	"github.com/cloo-solutions/docqa/internal/service"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

// multipartMemory is how much of an upload is kept in memory before spilling to disk.
const multipartMemory = 32 << 20

type SessionService interface {
	Ingest(ctx context.Context, in service.IngestInput) (*service.IngestResult, error)
	Import(ctx context.Context, r io.Reader) (*service.SessionStats, error)
	Export(w io.Writer) error
	Ask(ctx context.Context, in service.AskInput) (*domain.Answer, error)
	Search(ctx context.Context, in service.SearchInput) ([]service.ScoredRecord, error)
	Records(offset, limit int) ([]domain.EmbeddingRecord, int, error)
	Stats() service.SessionStats
}

type ArchiveService interface {
	Push(ctx context.Context, key string) (*service.ArchiveResult, error)
	Pull(ctx context.Context, key string) (*service.SessionStats, error)
}

type QAHandler struct {
	session  SessionService
	archives ArchiveService
}

// NewQAHandler creates a QAHandler. archives may be nil when no object storage is configured.
func NewQAHandler(session SessionService, archives ArchiveService) *QAHandler {
	return &QAHandler{session: session, archives: archives}
}

type IngestResponse struct {
	Documents  []service.DocumentSummary `json:"documents"`
	Records    int                       `json:"records"`
	Warnings   []domain.Warning          `json:"warnings"`
	DurationMs int                       `json:"duration_ms"`
	Store      service.SessionStats      `json:"store"`
}

type AskRequest struct {
	Question string `json:"question"`
	Debug    bool   `json:"debug"`
}

type AnswerResponse struct {
	Question       string           `json:"question"`
	Answer         string           `json:"answer"`
	Status         string           `json:"status"`
	ContextRecords int              `json:"context_records"`
	ContextTokens  int              `json:"context_tokens"`
	Context        string           `json:"context,omitempty"`
	Warnings       []domain.Warning `json:"warnings"`
}

type SearchRequest struct {
	Question string `json:"question"`
	Limit    int    `json:"limit"`
}

type SearchResult struct {
	Text       string  `json:"text"`
	TokenCount int     `json:"n_tokens"`
	Distance   float64 `json:"distance"`
}

type RecordResponse struct {
	Position   int       `json:"position"`
	Text       string    `json:"text"`
	TokenCount int       `json:"n_tokens"`
	Dimensions int       `json:"dimensions"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

type ArchiveRequest struct {
	Key string `json:"key"`
}

type HealthResponse struct {
	Status  string               `json:"status"`
	Store   service.SessionStats `json:"store"`
	Archive bool                 `json:"archive"`
}

// Ingest builds a new store from the PDFs of a multipart upload.
func (h *QAHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.fail(w, r, badRequest("invalid multipart form", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, err := readUploads(r.MultipartForm.File["files"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	pages, err := service.ParsePageList(r.FormValue("exclude_pages"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.session.Ingest(r.Context(), service.IngestInput{
		Files:        files,
		Patterns:     service.ParsePatterns(r.FormValue("patterns")),
		ExcludePages: pages,
		Credential:   service.Credential(middleware.GetCredential(r.Context())),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, IngestResponse{
		Documents:  result.Documents,
		Records:    result.Store.Len(),
		Warnings:   nonNilWarnings(result.Warnings),
		DurationMs: result.DurationMs,
		Store:      h.session.Stats(),
	})
}

// Import loads a table sent as the raw body or as the "file" part of a multipart form.
func (h *QAHandler) Import(w http.ResponseWriter, r *http.Request) {
	var body io.Reader = r.Body

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			h.fail(w, r, badRequest("file is required", err))
			return
		}
		defer file.Close()
		body = file
	}

	stats, err := h.session.Import(r.Context(), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}

// Export streams the current table as CSV.
func (h *QAHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !h.session.Stats().Loaded {
		h.fail(w, r, domain.ErrStoreNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="embeddings.csv"`)
	if err := h.session.Export(w); err != nil {
		// headers are gone; all that is left is to log it
		logger.FromContext(r.Context()).Error("export failed", zap.Error(err))
	}
}

func (h *QAHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.session.Ask(r.Context(), service.AskInput{
		Question:   req.Question,
		Credential: service.Credential(middleware.GetCredential(r.Context())),
		Debug:      req.Debug,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := AnswerResponse{
		Question:       answer.Question,
		Answer:         answer.Text,
		Status:         string(answer.Status),
		ContextRecords: answer.ContextRecords,
		ContextTokens:  answer.ContextTokens,
		Warnings:       nonNilWarnings(answer.Warnings),
	}
	if req.Debug {
		resp.Context = answer.Context
	}

	api.Success(w, http.StatusOK, resp)
}

// Search returns the records nearest to a question without generating an answer.
func (h *QAHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ranked, err := h.session.Search(r.Context(), service.SearchInput{
		Question:   req.Question,
		Credential: service.Credential(middleware.GetCredential(r.Context())),
		Limit:      req.Limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	results := make([]SearchResult, 0, len(ranked))
	for _, s := range ranked {
		results = append(results, SearchResult{
			Text:       s.Record.Text,
			TokenCount: s.Record.TokenCount,
			Distance:   s.Distance,
		})
	}
	api.Success(w, http.StatusOK, results)
}

func (h *QAHandler) Records(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cursor, err := pagination.DecodeCursor(q.Get("cursor"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "limit must be a number")
			return
		}
	}
	limit = pagination.ClampLimit(limit)
	withEmbeddings := q.Get("embeddings") == "true"

	records, total, err := h.session.Records(cursor.Offset, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items := make([]RecordResponse, 0, len(records))
	for i, rec := range records {
		item := RecordResponse{
			Position:   cursor.Offset + i,
			Text:       rec.Text,
			TokenCount: rec.TokenCount,
			Dimensions: len(rec.Embedding),
		}
		if withEmbeddings {
			item.Embedding = rec.Embedding
		}
		items = append(items, item)
	}

	api.Success(w, http.StatusOK, pagination.NewPage(items, cursor.Offset, total))
}

// PushArchive uploads the current table to object storage.
func (h *QAHandler) PushArchive(w http.ResponseWriter, r *http.Request) {
	if h.archives == nil {
		h.fail(w, r, domain.ErrArchiveDisabled)
		return
	}

	var req ArchiveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.archives.Push(r.Context(), req.Key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, result)
}

// PullArchive replaces the current store with a table from object storage.
func (h *QAHandler) PullArchive(w http.ResponseWriter, r *http.Request) {
	if h.archives == nil {
		h.fail(w, r, domain.ErrArchiveDisabled)
		return
	}

	var req ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stats, err := h.archives.Pull(r.Context(), req.Key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, stats)
}

func (h *QAHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Store:   h.session.Stats(),
		Archive: h.archives != nil,
	})
}

func (h *QAHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := api.DomainErrorToHTTP(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
		telemetry.CaptureError(r.Context(), err)
	} else {
		log.Info("request rejected", zap.Int("status", status), zap.Error(err))
	}
	api.HandleError(w, err)
}

func readUploads(headers []*multipart.FileHeader) ([]service.InputFile, error) {
	files := make([]service.InputFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		files = append(files, service.InputFile{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func badRequest(message string, err error) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, message, err)
}

func nonNilWarnings(ws []domain.Warning) []domain.Warning {
	if ws == nil {
		return []domain.Warning{}
	}
	return ws
}
