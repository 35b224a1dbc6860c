package api

import (
	"net/http"
	"testing"
	"time"
)

func saveFile(t *testing.T, srv *Server, token, fileID, content, base string) map[string]any {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/files/"+fileID+"/save", token, map[string]string{
		"content":      content,
		"base_version": base,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save failed with %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)
}

func TestSave_FirstSaveBootstraps(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerAndLogin(t, srv, "a@example.com")

	body := saveFile(t, srv, token, "f1", "hello\n", "initial")
	if body["status"] != "saved" {
		t.Fatalf("expected saved, got %v", body["status"])
	}
	v0, _ := body["new_version"].(string)
	if v0 == "" {
		t.Fatal("no new_version in response")
	}

	rec := doJSON(t, srv, http.MethodGet, "/files/f1/versions/"+v0, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("version fetch failed with %d", rec.Code)
	}
	if rec.Body.String() != "hello\n" {
		t.Errorf("unexpected version content %q", rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/files/f1/history", "", nil)
	history := decodeBody(t, rec)
	if history["total_count"].(float64) != 1 {
		t.Errorf("expected history length 1, got %v", history["total_count"])
	}
	if history["current_version"] != v0 {
		t.Errorf("current_version mismatch: %v", history["current_version"])
	}
}

func TestSave_AutoMergeOnDisjointLines(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := registerAndLogin(t, srv, "a@example.com")
	tokenB, _ := registerAndLogin(t, srv, "b@example.com")

	v0 := saveFile(t, srv, tokenA, "f", "L1\nL2\nL3\n", "initial")["new_version"].(string)
	saveFile(t, srv, tokenA, "f", "L1a\nL2\nL3\n", v0)

	body := saveFile(t, srv, tokenB, "f", "L1\nL2b\nL3\n", v0)
	if body["status"] != "auto_merged" {
		t.Fatalf("expected auto_merged, got %v", body["status"])
	}
	v2 := body["new_version"].(string)

	rec := doJSON(t, srv, http.MethodGet, "/files/f/versions/"+v2, "", nil)
	if rec.Body.String() != "L1a\nL2b\nL3\n" {
		t.Errorf("unexpected merged content %q", rec.Body.String())
	}
}

func TestSave_ConflictAndResolve(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := registerAndLogin(t, srv, "a@example.com")
	tokenB, _ := registerAndLogin(t, srv, "b@example.com")

	v0 := saveFile(t, srv, tokenA, "f", "L1\nL2\nL3\n", "initial")["new_version"].(string)
	v1 := saveFile(t, srv, tokenA, "f", "A1\nL2\nL3\n", v0)["new_version"].(string)

	rec := doJSON(t, srv, http.MethodPost, "/files/f/save", tokenB, map[string]string{
		"content":      "B1\nL2\nL3\n",
		"base_version": v0,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "conflict" {
		t.Fatalf("expected conflict, got %v", body["status"])
	}
	if body["new_version"] != v1 {
		t.Errorf("conflict should report the unchanged head %s, got %v", v1, body["new_version"])
	}
	conflicts, ok := body["conflicts"].([]any)
	if !ok || len(conflicts) != 1 {
		t.Fatalf("expected one conflict region, got %v", body["conflicts"])
	}
	region := conflicts[0].(map[string]any)
	if region["base_content"] != "L1" || region["your_content"] != "B1" || region["current_content"] != "A1" {
		t.Errorf("unexpected conflict region: %v", region)
	}

	rec = doJSON(t, srv, http.MethodPost, "/files/f/resolve-conflicts", tokenB, map[string]string{
		"content":         "MERGED\nL2\nL3\n",
		"base_version":    v0,
		"current_version": v1,
		"message":         "manual merge",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve failed with %d: %s", rec.Code, rec.Body.String())
	}
	resolved := decodeBody(t, rec)
	if resolved["status"] != "saved" {
		t.Errorf("expected saved, got %v", resolved["status"])
	}

	v2 := resolved["new_version"].(string)
	rec = doJSON(t, srv, http.MethodGet, "/files/f/versions/"+v2, "", nil)
	if rec.Body.String() != "MERGED\nL2\nL3\n" {
		t.Errorf("unexpected resolved content %q", rec.Body.String())
	}
}

func TestSave_RequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/files/f/save", "", map[string]string{
		"content":      "x\n",
		"base_version": "initial",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSave_MissingBaseVersion(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerAndLogin(t, srv, "a@example.com")
	rec := doJSON(t, srv, http.MethodPost, "/files/f/save", token, map[string]string{
		"content": "x\n",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHistory_Pagination(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerAndLogin(t, srv, "a@example.com")

	ids := make([]string, 0, 4)
	base := "initial"
	for i := 0; i < 4; i++ {
		time.Sleep(2 * time.Millisecond)
		body := saveFile(t, srv, token, "f", "content\n", base)
		base = body["new_version"].(string)
		ids = append(ids, base)
	}

	rec := doJSON(t, srv, http.MethodGet, "/files/f/history?limit=2&skip=1", "", nil)
	body := decodeBody(t, rec)
	if body["total_count"].(float64) != 4 {
		t.Errorf("expected total 4, got %v", body["total_count"])
	}
	if body["current_version"] != ids[3] {
		t.Errorf("expected current %s, got %v", ids[3], body["current_version"])
	}
	versions := body["versions"].([]any)
	if len(versions) != 2 {
		t.Fatalf("expected page of 2, got %d", len(versions))
	}
	first := versions[0].(map[string]any)
	second := versions[1].(map[string]any)
	if first["version_id"] != ids[2] || second["version_id"] != ids[1] {
		t.Errorf("unexpected page order: %v, %v", first["version_id"], second["version_id"])
	}
}

func TestVersionContent_NotFound(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerAndLogin(t, srv, "a@example.com")
	saveFile(t, srv, token, "f", "x\n", "initial")

	rec := doJSON(t, srv, http.MethodGet, "/files/f/versions/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDiff_Endpoint(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerAndLogin(t, srv, "a@example.com")

	v0 := saveFile(t, srv, token, "f", "L1\nL2\nL3\n", "initial")["new_version"].(string)
	v1 := saveFile(t, srv, token, "f", "L1\nL2\nL3x\n", v0)["new_version"].(string)

	rec := doJSON(t, srv, http.MethodGet, "/files/f/diff?from="+v0+"&to="+v1, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("diff failed with %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["base_version"] != v0 || body["compare_version"] != v1 {
		t.Errorf("unexpected version labels: %v", body)
	}
	if body["can_auto_merge"] != true {
		t.Errorf("expected can_auto_merge true, got %v", body["can_auto_merge"])
	}
	if len(body["changes"].([]any)) == 0 {
		t.Error("expected changes between distinct versions")
	}

	rec = doJSON(t, srv, http.MethodGet, "/files/f/diff?from="+v0, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing to, got %d", rec.Code)
	}
}
