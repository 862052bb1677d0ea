package devproxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"ZMQ_utils/internal/api"
	"ZMQ_utils/internal/config"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type seenRequest struct {
	Method    string `json:"method"`
	URI       string `json:"uri"`
	Host      string `json:"host"`
	Auth      string `json:"auth"`
	RequestID string `json:"request_id"`
	Body      string `json:"body"`
}

// newBackend echoes what it received as JSON.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.URL.Path == "/api/auth/verify" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"invalid token"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(seenRequest{
			Method:    r.Method,
			URI:       r.URL.RequestURI(),
			Host:      r.Host,
			Auth:      r.Header.Get("Authorization"),
			RequestID: r.Header.Get(RequestIDHeader),
			Body:      string(body),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newDevServer(t *testing.T, cfg config.DevServer) *httptest.Server {
	t.Helper()
	s, err := New(cfg, quietLogger())
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestProxy_ForwardsAPIVerbatim(t *testing.T) {
	backend := newBackend(t)
	dev := newDevServer(t, config.DevServer{Target: backend.URL, ChangeOrigin: true})

	req, err := http.NewRequest(http.MethodPost, dev.URL+"/api/send?x=1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var seen seenRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&seen))

	backendURL, _ := url.Parse(backend.URL)
	assert.Equal(t, http.MethodPost, seen.Method)
	assert.Equal(t, "/api/send?x=1", seen.URI)
	assert.Equal(t, backendURL.Host, seen.Host, "change origin sets the target host")
	assert.Equal(t, "Bearer tok", seen.Auth)
	assert.NotEmpty(t, seen.RequestID)
	assert.Equal(t, seen.RequestID, resp.Header.Get(RequestIDHeader))
}

func TestProxy_KeepsIncomingHostAndRequestID(t *testing.T) {
	backend := newBackend(t)
	dev := newDevServer(t, config.DevServer{Target: backend.URL, ChangeOrigin: false})

	req, err := http.NewRequest(http.MethodGet, dev.URL+"/api/clients", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var seen seenRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&seen))

	devURL, _ := url.Parse(dev.URL)
	assert.Equal(t, devURL.Host, seen.Host)
	assert.Equal(t, "req-1", seen.RequestID)
}

func TestProxy_UnreachableTarget(t *testing.T) {
	backend := newBackend(t)
	target := backend.URL
	backend.Close()

	dev := newDevServer(t, config.DevServer{Target: target})

	resp, err := http.Get(dev.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "proxy error")
}

func TestProxy_WithGateway(t *testing.T) {
	backend := newBackend(t)
	dev := newDevServer(t, config.DevServer{Target: backend.URL, ChangeOrigin: true})

	client := api.NewClient(dev.URL+"/api", nil, api.WithLogger(quietLogger()))
	client.SetAPIKey("tok123")

	var seen seenRequest
	require.NoError(t, client.Request(context.Background(), "/client/c1/logs?limit=5", nil, &seen))
	assert.Equal(t, "/api/client/c1/logs?limit=5", seen.URI)
	assert.Equal(t, "Bearer tok123", seen.Auth)

	_, err := client.VerifyAPIKey(context.Background(), "bad")
	require.Error(t, err)
	assert.Equal(t, "invalid token", err.Error())
}

func TestStatic_ServesFilesAndIndexFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>console</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	dev := newDevServer(t, config.DevServer{Target: "http://127.0.0.1:1", OutDir: dir})

	tests := []struct {
		path string
		body string
	}{
		{"/assets/app.js", "console.log(1)"},
		{"/", "<html>console</html>"},
		{"/clients/c1", "<html>console</html>"},
	}
	for _, tt := range tests {
		resp, err := http.Get(dev.URL + tt.path)
		require.NoError(t, err)
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, tt.path)
		assert.Equal(t, tt.body, string(data), tt.path)
	}
}

func TestStatic_MissingOutDir(t *testing.T) {
	dev := newDevServer(t, config.DevServer{Target: "http://127.0.0.1:1", OutDir: filepath.Join(t.TempDir(), "dist")})

	resp, err := http.Get(dev.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNew_InvalidTarget(t *testing.T) {
	_, err := New(config.DevServer{Target: "ftp://host"}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")

	_, err = New(config.DevServer{Target: "://bad"}, quietLogger())
	require.Error(t, err)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s, err := New(config.DevServer{Port: 0, Target: "http://127.0.0.1:1"}, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}

func TestProxy_TLSVerification(t *testing.T) {
	backend := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	t.Cleanup(backend.Close)

	tests := []struct {
		name   string
		secure bool
		status int
	}{
		{"verification off accepts self-signed", false, http.StatusOK},
		{"verification on rejects self-signed", true, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newDevServer(t, config.DevServer{Target: backend.URL, ChangeOrigin: true, Secure: tt.secure})

			resp, err := http.Get(dev.URL + "/api/status")
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.secure {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Contains(t, body["error"], "proxy error")
			}
		})
	}
}

func TestStatic_SourcemapSwitch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>console</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js.map"), []byte(`{"version":3}`), 0o644))

	tests := []struct {
		sourcemap bool
		status    int
	}{
		{true, http.StatusOK},
		{false, http.StatusNotFound},
	}
	for _, tt := range tests {
		dev := newDevServer(t, config.DevServer{Target: "http://127.0.0.1:1", OutDir: dir, Sourcemap: tt.sourcemap})

		resp, err := http.Get(dev.URL + "/app.js.map")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.status, resp.StatusCode, "sourcemap=%v", tt.sourcemap)
	}
}
