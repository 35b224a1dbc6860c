package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// doRaw sends a request with a verbatim body, for the non-JSON upload
// and download surfaces.
func doRaw(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestUploadAndGetFile(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerAndLogin(t, srv, "a@example.com")

	rec := doRaw(t, srv, http.MethodPost, "/upload/notes.txt", token, "plain notes\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload failed with %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRaw(t, srv, http.MethodGet, "/files/notes.txt", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get failed with %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "plain notes\n" {
		t.Errorf("unexpected content %q", rec.Body.String())
	}

	header := rec.Header().Get("X-File-Metadata")
	if header == "" {
		t.Fatal("expected metadata header")
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(header), &meta); err != nil {
		t.Fatalf("metadata header is not JSON: %v", err)
	}
	if meta["file_name"] != "notes.txt" {
		t.Errorf("unexpected metadata: %v", meta)
	}
}

func TestGetFile_Missing(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerAndLogin(t, srv, "a@example.com")

	rec := doRaw(t, srv, http.MethodGet, "/files/absent.txt", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUpload_RejectsBadFilename(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerAndLogin(t, srv, "a@example.com")

	rec := doRaw(t, srv, http.MethodPost, `/upload/a\b.txt`, token, "x")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for traversal attempt, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpload_SizeLimit(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerAndLogin(t, srv, "a@example.com")

	big := strings.Repeat("x", int(srv.cfg.MaxUploadBytes)+1)
	rec := doRaw(t, srv, http.MethodPost, "/upload/big.txt", token, big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestSave_MirrorsToWorkspace(t *testing.T) {
	srv := newTestServer(t)
	token, userID := registerAndLogin(t, srv, "a@example.com")

	saveFile(t, srv, token, "doc.txt", "versioned body\n", "initial")
	srv.mirror.Drain()

	content, meta, err := srv.workspace.Read(srv.workspace.UserDir(userID), "doc.txt")
	if err != nil {
		t.Fatalf("mirror copy missing: %v", err)
	}
	if string(content) != "versioned body\n" {
		t.Errorf("unexpected mirror content %q", content)
	}
	if meta == nil || meta.Versioned == nil || !*meta.Versioned {
		t.Errorf("mirror sidecar should mark the file versioned: %+v", meta)
	}
}

func TestListFiles_PublicScope(t *testing.T) {
	srv := newTestServer(t)

	rec := doRaw(t, srv, http.MethodGet, "/list-files", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous listing failed with %d", rec.Code)
	}
	if files := decodeBody(t, rec)["files"].([]any); len(files) != 0 {
		t.Errorf("expected empty public workspace, got %v", files)
	}
}
