package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		Addr:             ":0",
		StorageDir:       dir,
		MaxUploadBytes:   1 << 20,
		JWTSecret:        "test-secret",
		JWTTTL:           time.Hour,
		LockTTL:          300 * time.Second,
		MirrorWorkers:    1,
		CacheDir:         filepath.Join(dir, "cache"),
		CacheMemoryItems: 64,
		CacheTTL:         time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(cfg, logger)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

// doJSON fires one request at the router. A nil body sends no payload;
// anything else is marshalled as JSON.
func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

// registerAndLogin creates an account and returns its bearer token and
// user ID.
func registerAndLogin(t *testing.T, srv *Server, email string) (string, string) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/register", "", map[string]string{
		"email":    email,
		"password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register failed with %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	return body["token"].(string), body["user_id"].(string)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("unexpected health payload: %v", body)
	}
}

func TestRootBanner(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("Forseti")) {
		t.Errorf("unexpected banner: %q", rec.Body.String())
	}
}

func TestStats(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerAndLogin(t, srv, "stats@example.com")
	doJSON(t, srv, http.MethodPost, "/files/f1/save", token, map[string]string{
		"content":      "hello\n",
		"base_version": "initial",
	})

	rec := doJSON(t, srv, http.MethodGet, "/stats", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	storageStats, ok := body["storage"].(map[string]any)
	if !ok {
		t.Fatalf("missing storage stats: %v", body)
	}
	if storageStats["files"].(float64) != 1 {
		t.Errorf("expected 1 tracked file, got %v", storageStats["files"])
	}
	if _, ok := body["cache"]; !ok {
		t.Error("missing cache stats")
	}
	if _, ok := body["mirror_queue"]; !ok {
		t.Error("missing mirror queue stats")
	}
}

func TestAdminLocksRequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/admin/locks", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	token, _ := registerAndLogin(t, srv, "admin@example.com")
	doJSON(t, srv, http.MethodPost, "/files/f1/edit", token, nil)

	rec = doJSON(t, srv, http.MethodGet, "/admin/locks", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 1 {
		t.Errorf("expected one lock, got %v", body["count"])
	}
}
