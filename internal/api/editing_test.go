package api

import (
	"net/http"
	"testing"
)

func TestEdit_LockContention(t *testing.T) {
	srv := newTestServer(t)
	tokenA, userA := registerAndLogin(t, srv, "a@example.com")
	tokenB, _ := registerAndLogin(t, srv, "b@example.com")

	v0 := saveFile(t, srv, tokenA, "f", "L1\n", "initial")["new_version"].(string)

	rec := doJSON(t, srv, http.MethodPost, "/files/f/edit", tokenA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit failed with %d: %s", rec.Code, rec.Body.String())
	}
	editors := decodeBody(t, rec)["active_editors"].([]any)
	if len(editors) != 1 {
		t.Fatalf("expected one editor, got %d", len(editors))
	}

	// B cannot save while A holds the lock.
	rec = doJSON(t, srv, http.MethodPost, "/files/f/save", tokenB, map[string]string{
		"content":      "L2\n",
		"base_version": v0,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "locked" {
		t.Errorf("expected locked status, got %v", body["status"])
	}
	if body["lock_holder"] != userA {
		t.Errorf("expected holder %s, got %v", userA, body["lock_holder"])
	}

	// B cannot start editing either.
	rec = doJSON(t, srv, http.MethodPost, "/files/f/edit", tokenB, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second editor, got %d", rec.Code)
	}

	// A releases; B proceeds.
	rec = doJSON(t, srv, http.MethodPost, "/files/f/release", tokenA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("release failed with %d", rec.Code)
	}
	saveFile(t, srv, tokenB, "f", "L1\nL2\n", v0)
}

func TestEdit_ReRegisterReplacesEntry(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerAndLogin(t, srv, "a@example.com")

	doJSON(t, srv, http.MethodPost, "/files/f/edit", token, nil)
	rec := doJSON(t, srv, http.MethodPost, "/files/f/edit", token, map[string]string{"branch": "feat"})
	if rec.Code != http.StatusOK {
		t.Fatalf("re-edit failed with %d", rec.Code)
	}
	editors := decodeBody(t, rec)["active_editors"].([]any)
	if len(editors) != 1 {
		t.Fatalf("expected one roster entry, got %d", len(editors))
	}
	entry := editors[0].(map[string]any)
	if entry["branch"] != "feat" {
		t.Errorf("re-registration should replace the entry, got %v", entry)
	}
	if entry["username"] != "a" {
		t.Errorf("expected enriched username, got %v", entry["username"])
	}
}

func TestActiveEditorsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token, userID := registerAndLogin(t, srv, "editor@example.com")

	doJSON(t, srv, http.MethodPost, "/files/f/edit", token, nil)
	doJSON(t, srv, http.MethodPost, "/files/f/release", token, nil)
	doJSON(t, srv, http.MethodPost, "/files/f/edit", token, nil)

	rec := doJSON(t, srv, http.MethodGet, "/files/f/active-editors", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("active-editors failed with %d", rec.Code)
	}
	editors := decodeBody(t, rec)["active_editors"].([]any)
	if len(editors) != 1 {
		t.Fatalf("expected one editor, got %d", len(editors))
	}
	if editors[0].(map[string]any)["user_id"] != userID {
		t.Errorf("unexpected editor: %v", editors[0])
	}
}

func TestLockEndpoints(t *testing.T) {
	srv := newTestServer(t)
	tokenA, userA := registerAndLogin(t, srv, "a@example.com")
	tokenB, _ := registerAndLogin(t, srv, "b@example.com")

	// Unlocked file: anyone may edit.
	rec := doJSON(t, srv, http.MethodGet, "/files/f/lock", tokenB, nil)
	status := decodeBody(t, rec)
	if status["locked"] != false || status["can_edit"] != true {
		t.Errorf("unexpected unlocked status: %v", status)
	}

	rec = doJSON(t, srv, http.MethodPost, "/files/f/lock", tokenA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lock acquire failed with %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/files/f/lock", tokenB, nil)
	status = decodeBody(t, rec)
	if status["locked"] != true || status["lock_holder"] != userA || status["can_edit"] != false {
		t.Errorf("unexpected locked status for b: %v", status)
	}
	if status["duration_secs"] != float64(300) {
		t.Errorf("locked status should carry the lock ttl, got %v", status["duration_secs"])
	}

	// Renewal by the holder succeeds; takeover by B is refused.
	rec = doJSON(t, srv, http.MethodPost, "/files/f/lock", tokenA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lock renewal failed with %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, "/files/f/lock", tokenB, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on takeover, got %d", rec.Code)
	}

	// Release by a non-holder is a no-op; by the holder it frees the file.
	rec = doJSON(t, srv, http.MethodDelete, "/files/f/lock", tokenB, nil)
	if decodeBody(t, rec)["released"] != false {
		t.Error("non-holder release should report false")
	}
	rec = doJSON(t, srv, http.MethodDelete, "/files/f/lock", tokenA, nil)
	if decodeBody(t, rec)["released"] != true {
		t.Error("holder release should report true")
	}

	rec = doJSON(t, srv, http.MethodGet, "/files/f/lock", tokenB, nil)
	if decodeBody(t, rec)["can_edit"] != true {
		t.Error("file should be editable after release")
	}
}
