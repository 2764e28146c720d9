package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/prerender/config"
	"github.com/use-agent/prerender/jobs"
	"github.com/use-agent/prerender/models"
	"github.com/use-agent/prerender/telemetry"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingRunner struct {
	mu   sync.Mutex
	reqs []models.CaptureRequest
}

func (r *recordingRunner) Run(_ context.Context, req *models.CaptureRequest) (*models.BatchReport, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, *req)
	r.mu.Unlock()

	report := models.NewBatchReport()
	report.Append(models.PageResult{URL: req.URL, Succeeded: true, DurationMs: 42})
	return report, nil
}

func (r *recordingRunner) last() models.CaptureRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reqs[len(r.reqs)-1]
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.Output.Dir = "/srv/renders"
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}
	return cfg
}

func setup(t *testing.T, cfg *config.Config, start bool) (http.Handler, *recordingRunner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	runner := &recordingRunner{}
	q := jobs.New(jobs.Options{Runner: runner, Size: 2, Logger: discard})
	if start {
		q.Start(ctx)
	}
	t.Cleanup(func() { cancel(); q.Wait() })

	return NewRouter(ctx, q, telemetry.NewMetrics(), cfg, time.Now()), runner
}

func do(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error models.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestHealth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"k1"}}
	h, _ := setup(t, cfg, false)

	w := do(h, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 0, health.QueueDepth)
}

func TestRenderLifecycle(t *testing.T) {
	h, runner := setup(t, testConfig(), true)

	w := do(h, http.MethodPost, "/api/v1/render",
		`{"url":"https://site.test/sitemap.xml","formats":["HTML","pdf","bogus"],"csv":true}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted models.RenderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Equal(t, models.JobQueued, accepted.Status)

	var status models.JobStatusResponse
	require.Eventually(t, func() bool {
		w := do(h, http.MethodGet, "/api/v1/render/"+accepted.ID, "")
		if w.Code != http.StatusOK {
			return false
		}
		_ = json.Unmarshal(w.Body.Bytes(), &status)
		return status.Status == models.JobCompleted
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, status.Succeeded)
	assert.Equal(t, "https://site.test/sitemap.xml", status.URL)

	req := runner.last()
	assert.Equal(t, []models.FormatKind{models.FormatHTML, models.FormatPDF}, req.Formats)
	assert.Equal(t, filepath.Join("/srv/renders", accepted.ID), req.OutputDir)
	assert.Equal(t, models.DefaultViewportWidth, req.ViewportWidth)
	assert.True(t, req.CSV)
}

func TestRenderOutputSubdirectory(t *testing.T) {
	h, runner := setup(t, testConfig(), true)

	w := do(h, http.MethodPost, "/api/v1/render",
		`{"url":"https://site.test/","formats":["text"],"output":"docs/latest","width":1280}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return len(runner.reqs) == 1
	}, 2*time.Second, 5*time.Millisecond)

	req := runner.last()
	assert.Equal(t, filepath.Join("/srv/renders", "docs/latest"), req.OutputDir)
	assert.Equal(t, 1280, req.ViewportWidth)
}

func TestRenderRejectsBadInput(t *testing.T) {
	h, _ := setup(t, testConfig(), false)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"url":`},
		{"missing url", `{"formats":["html"]}`},
		{"relative url", `{"url":"/about","formats":["html"]}`},
		{"unsupported scheme", `{"url":"ftp://site.test/","formats":["html"]}`},
		{"only unknown formats", `{"url":"https://site.test/","formats":["gif"]}`},
		{"escaping output", `{"url":"https://site.test/","formats":["html"],"output":"../etc"}`},
		{"absolute output", `{"url":"https://site.test/","formats":["html"],"output":"/tmp/x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/api/v1/render", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, models.ErrCodeInvalidInput, errorCode(t, w))
		})
	}
}

func TestRenderQueueFull(t *testing.T) {
	h, _ := setup(t, testConfig(), false)

	body := `{"url":"https://site.test/","formats":["html"]}`
	for range 2 {
		require.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/api/v1/render", body).Code)
	}
	w := do(h, http.MethodPost, "/api/v1/render", body)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, models.ErrCodeQueueFull, errorCode(t, w))
}

func TestUnknownJob(t *testing.T) {
	h, _ := setup(t, testConfig(), false)

	w := do(h, http.MethodGet, "/api/v1/render/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrCodeNotFound, errorCode(t, w))
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"k1", "k2"}}
	h, _ := setup(t, cfg, false)

	w := do(h, http.MethodGet, "/api/v1/render/x", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(h, http.MethodGet, "/api/v1/render/x", "", "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrCodeUnauthorized, errorCode(t, w))

	w = do(h, http.MethodGet, "/api/v1/render/x", "", "Authorization", "Bearer k2")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.01, Burst: 1}
	h, _ := setup(t, cfg, false)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/v1/render/x", "").Code)

	w := do(h, http.MethodGet, "/api/v1/render/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, models.ErrCodeRateLimited, errorCode(t, w))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := setup(t, testConfig(), false)

	w := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "prerender_")
}
