package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, s http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	t.Run("without pipeline", func(t *testing.T) {
		rec := get(t, New(Config{}), http.MethodGet, "/api/health")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
		assert.Contains(t, body, "uptime")
		assert.NotContains(t, body, "enabled")
	})

	t.Run("reports the enabled switch", func(t *testing.T) {
		rec := get(t, New(Config{Pipeline: &stubPipeline{}}), http.MethodGet, "/api/health")
		var body map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, false, body["enabled"])
	})

	t.Run("GET only", func(t *testing.T) {
		s := New(Config{})
		for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			assert.Equal(t, http.StatusMethodNotAllowed, get(t, s, m, "/api/health").Code, m)
		}
	})
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	page := "<html><body>probes</body></html>"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "probes.js"), []byte("poll()"), 0644))

	s := New(Config{StaticDir: dir})

	rec := get(t, s, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, page, rec.Body.String())

	rec = get(t, s, http.MethodGet, "/probes.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "poll()", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(t, s, http.MethodGet, "/missing.html").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, http.MethodGet, "/api/nonexistent").Code)
}

func TestServer_NoStaticDir(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, New(Config{}), http.MethodGet, "/").Code)
}

func TestServer_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(Config{}).Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(7 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type fakeFrames struct {
	mu       sync.Mutex
	watchers int
	frame    []byte
}

func (f *fakeFrames) Watch() func() {
	f.mu.Lock()
	f.watchers++
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.watchers--
		f.mu.Unlock()
	}
}

func (f *fakeFrames) LatestJPEG() ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame, f.frame != nil
}

func (f *fakeFrames) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watchers
}

func TestStreamHandler(t *testing.T) {
	frames := &fakeFrames{frame: []byte{0xff, 0xd8, 0xff, 0xd9}}
	s := New(Config{Frames: frames})

	ctx, cancel := context.WithTimeout(context.Background(), 3*StreamInterval)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); got != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Content-Type = %q", got)
	}
	body := rec.Body.String()
	if n := strings.Count(body, "--frame"); n != 1 {
		t.Errorf("parts = %d, want 1 (unchanged frames are skipped)", n)
	}
	if !strings.Contains(body, "Content-Length: 4") {
		t.Errorf("missing Content-Length in %q", body)
	}
	if frames.count() != 0 {
		t.Errorf("watchers = %d after disconnect, want 0", frames.count())
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestServer_OptionalRoutes(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/probes", "/api/features", "/api/stream", "/api/calibration/profiles", "/metrics"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusNotFound)
		}
	}
}
