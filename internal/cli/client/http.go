package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds one request; ingest embeds every chunk before answering.
const DefaultTimeout = 10 * time.Minute

// APIClient talks to a docqad instance.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPIClient creates an APIClient. An empty apiKey sends no Authorization
// header and the daemon falls back to its own key.
func NewAPIClient(baseURL, apiKey string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data json.RawMessage `json:"data,omitempty"`
}

type apiErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Get performs a GET request and decodes the data envelope into out.
func (c *APIClient) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with a JSON body.
func (c *APIClient) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// UploadFile is one file part of a multipart request.
type UploadFile struct {
	Name string
	Data []byte
}

// PostMultipart sends fields and files as multipart/form-data. Files share
// the form field name filesField. onProgress may be nil.
func (c *APIClient) PostMultipart(ctx context.Context, path string, fields map[string]string, filesField string, files []UploadFile, onProgress ProgressFunc, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(filesField, f.Name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return fmt.Errorf("failed to add %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %w", err)
	}

	return c.PostRaw(ctx, path, mw.FormDataContentType(), &buf, int64(buf.Len()), onProgress, out)
}

// PostRaw sends body as is with the given content type.
func (c *APIClient) PostRaw(ctx context.Context, path, contentType string, body io.Reader, size int64, onProgress ProgressFunc, out any) error {
	if onProgress != nil {
		body = &progressReader{reader: body, total: size, onProgress: onProgress}
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size

	return c.send(req, out)
}

// Download streams a non-JSON response body into w.
func (c *APIClient) Download(ctx context.Context, path string, w io.Writer, onProgress ProgressFunc) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, respBody)
	}

	var reader io.Reader = resp.Body
	if onProgress != nil {
		reader = &progressReader{
			reader:     resp.Body,
			total:      resp.ContentLength,
			onProgress: onProgress,
		}
	}

	if _, err := io.Copy(w, reader); err != nil {
		return fmt.Errorf("failed to write download: %w", err)
	}
	return nil
}

func (c *APIClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *APIClient) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if err := json.Unmarshal(apiResp.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	var e apiErrorBody
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{
		StatusCode: status,
		Code:       e.Code,
		Message:    e.Error,
		Retryable:  e.Retryable,
	}
}

// ProgressFunc is a callback for reporting upload/download progress.
type ProgressFunc func(current, total int64)

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader     io.Reader
	total      int64
	current    int64
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	if pr.onProgress != nil {
		pr.onProgress(pr.current, pr.total)
	}
	return n, err
}
