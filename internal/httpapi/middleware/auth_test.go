package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuth_ResolvesCallerID(t *testing.T) {
	keys := map[string]string{"k1": "alice", "k2": "bob"}

	var caller string
	h := Auth(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = CallerID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// X-API-Key
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "k1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || caller != "alice" {
		t.Fatalf("want alice/200, got %q/%d", caller, rec.Code)
	}

	// Bearer header
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set("Authorization", "Bearer k2")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK || caller != "bob" {
		t.Fatalf("want bob/200, got %q/%d", caller, rec2.Code)
	}

	// unknown key -> 401
	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.Header.Set("X-API-Key", "nope")
	rec3 := httptest.NewRecorder()
	h.ServeHTTP(rec3, req3)
	if rec3.Code != http.StatusUnauthorized {
		t.Fatalf("unknown key should be 401, got %d", rec3.Code)
	}

	// missing key -> 401
	rec4 := httptest.NewRecorder()
	h.ServeHTTP(rec4, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec4.Code != http.StatusUnauthorized {
		t.Fatalf("missing key should be 401, got %d", rec4.Code)
	}
}

func TestAuth_DevModeWhenNoKeysConfigured(t *testing.T) {
	var caller string
	h := Auth(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = CallerID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || caller != "dev" {
		t.Fatalf("dev mode should admit as \"dev\", got %q/%d", caller, rec.Code)
	}
}
