//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/docqa/internal/api/handlers"
	"github.com/cloo-solutions/docqa/internal/cli"
	"github.com/cloo-solutions/docqa/internal/config"
	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/repository"
	"github.com/cloo-solutions/docqa/internal/server"
	"github.com/cloo-solutions/docqa/internal/store"
	"github.com/cloo-solutions/docqa/internal/testutil"
)

const (
	testDimensions = 8
	testAnswer     = "The warranty lasts two years."
	testCredential = "sk-e2e-credential"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	Model      *testutil.FakeOpenAI
	Config     *config.Config
	ServerURL  string
	BinaryDir  string
	HTTPClient *http.Client

	serverCloser func()
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	model := testutil.NewFakeOpenAI(testDimensions, testAnswer)

	cfg := &config.Config{
		OpenAIAPIKey:         testCredential,
		OpenAIBaseURL:        model.URL(),
		EmbeddingModel:       "text-embedding-ada-002",
		EmbeddingDimensions:  testDimensions,
		EmbeddingBatchSize:   16,
		EmbeddingConcurrency: 2,
		ChatModel:            "gpt-3.5-turbo",
		AnswerMaxTokens:      150,
		ContextMaxTokens:     1800,
		ChunkMaxTokens:       500,
		ChunkFlushTrailing:   true,
		TokenizerEncoding:    "cl100k_base",
		DatabaseURL:          pgC.ConnectionString(),
		S3Endpoint:           s3C.Endpoint(),
		S3AccessKey:          testutil.RustFSAccessKey,
		S3SecretKey:          testutil.RustFSSecretKey,
		S3Bucket:             "docqa-e2e",
		S3Region:             "us-east-1",
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Model:      model,
		Config:     cfg,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.StartServer()

	return env
}

// StartServer builds the service stack and serves it on a free port.
// Any running server is shut down first, so calling it again simulates a restart.
func (e *E2ETestEnv) StartServer() {
	if e.serverCloser != nil {
		e.serverCloser()
	}

	stack, err := cli.BuildStack(e.Ctx, e.Config, cli.StackOptions{
		Records:      repository.NewRecordRepository(e.Pool),
		Questions:    repository.NewQuestionLogRepository(e.Pool),
		EnsureBucket: true,
	})
	if err != nil {
		e.T.Fatalf("failed to build stack: %v", err)
	}
	if err := stack.Session.Restore(e.Ctx); err != nil && !domain.IsNotFound(err) {
		e.T.Fatalf("failed to restore store: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		e.T.Fatalf("failed to get free port: %v", err)
	}

	router := server.NewRouter(server.RouterConfig{
		QAHandler:         handlers.NewQAHandler(stack.Session, stack.Archiver),
		DefaultCredential: e.Config.OpenAIAPIKey,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	e.ServerURL = fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, e.ServerURL, 10*time.Second)

	e.serverCloser = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.serverCloser != nil {
		e.serverCloser()
	}
	if e.Model != nil {
		e.Model.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		_ = e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		_ = e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries compiles docqa into a temporary directory.
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "docqa-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "docqa"), "./cmd/docqa")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build docqa: %v\n%s", err, out)
	}
}

// RunDocqa runs the docqa CLI against the test server.
func (e *E2ETestEnv) RunDocqa(workDir string, args ...string) (string, error) {
	return e.runDocqa(workDir, []string{"DOCQA_API_URL=" + e.ServerURL}, args...)
}

// RunDocqaLocal runs the docqa CLI in process mode, talking to the fake model directly.
func (e *E2ETestEnv) RunDocqaLocal(workDir string, args ...string) (string, error) {
	return e.runDocqa(workDir, []string{
		"DOCQA_API_URL=",
		"DOCQA_OPENAI_BASE_URL=" + e.Model.URL(),
		fmt.Sprintf("DOCQA_EMBEDDING_DIMENSIONS=%d", testDimensions),
	}, args...)
}

func (e *E2ETestEnv) runDocqa(workDir string, extraEnv []string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "docqa"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"DOCQA_OPENAI_API_KEY="+testCredential,
		"HOME="+workDir,
		"XDG_CONFIG_HOME="+filepath.Join(workDir, ".config"),
	)
	cmd.Env = append(cmd.Env, extraEnv...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int             `json:"-"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, "application/json", nil)
}

// Post performs a POST request with a JSON body
func (e *E2ETestEnv) Post(path string, body any) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}
	return e.doRequest(http.MethodPost, path, "application/json", reqBody)
}

// PostTable uploads an embeddings table to /import.
func (e *E2ETestEnv) PostTable(table string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, "/import", "text/csv", strings.NewReader(table))
}

// GetRaw performs a GET request and returns the unparsed body.
func (e *E2ETestEnv) GetRaw(path string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(e.ServerURL + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// doRequest returns the decoded envelope for any status code. Only transport
// and decoding failures are returned as errors.
func (e *E2ETestEnv) doRequest(method, path, contentType string, body io.Reader) (*APIResponse, error) {
	req, err := http.NewRequest(method, e.ServerURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{Status: resp.StatusCode}
	if err := json.Unmarshal(respBody, apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return apiResp, nil
}

// QuestionLogCount returns how many questions were recorded with the given status.
func (e *E2ETestEnv) QuestionLogCount(status string) int {
	var n int
	row := e.Pool.QueryRow(e.Ctx, "SELECT count(*) FROM question_logs WHERE status = $1", status)
	if err := row.Scan(&n); err != nil {
		e.T.Fatalf("failed to count question logs: %v", err)
	}
	return n
}

// BuildTable renders texts as an embeddings table using the fake model's vectors.
func BuildTable(t *testing.T, texts ...string) string {
	s := store.New()
	for _, text := range texts {
		rec := domain.EmbeddingRecord{
			Text:       text,
			TokenCount: len(strings.Fields(text)),
			Embedding:  testutil.FakeEmbedding(text, testDimensions),
		}
		if err := s.Append(rec); err != nil {
			t.Fatalf("failed to build table: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := store.WriteTable(&buf, s); err != nil {
		t.Fatalf("failed to write table: %v", err)
	}
	return buf.String()
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
