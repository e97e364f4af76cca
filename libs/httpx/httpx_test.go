package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "h") }), mark("a"), mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(order, ",") != "a,b,h" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rw.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated id to be echoed, got %q / %q", seen, rw.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("expected caller id, got %q", seen)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	hit := func() int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw.Code
	}
	if hit() != http.StatusNoContent || hit() != http.StatusNoContent {
		t.Fatal("expected first two requests to pass")
	}
	if code := hit(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	now = now.Add(2 * time.Minute)
	if code := hit(); code != http.StatusNoContent {
		t.Fatalf("expected window reset, got %d", code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("unexpected client ip %q", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		ListingID string `json:"listing_id"`
	}
	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"ok", `{"listing_id":"l-1"}`, false},
		{"empty", ``, true},
		{"unknown field", `{"listing":"l-1"}`, true},
		{"trailing", `{"listing_id":"l-1"} {}`, true},
	}
	for _, tc := range cases {
		var dst body
		err := DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.payload)), &dst)
		if tc.wantErr != (err != nil) {
			t.Fatalf("%s: unexpected err %v", tc.name, err)
		}
		if err != nil && !errors.Is(err, ErrBadJSON) {
			t.Fatalf("%s: expected ErrBadJSON, got %v", tc.name, err)
		}
	}
}

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "rid-1"))
	rw := httptest.NewRecorder()
	WriteError(rw, req, http.StatusBadRequest, "listing_id is required")

	var got errorBody
	if err := json.Unmarshal(rw.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rw.Code != http.StatusBadRequest || got.Error != "listing_id is required" || got.RequestID != "rid-1" {
		t.Fatalf("unexpected error response: %d %+v", rw.Code, got)
	}
}

func TestAllowMethods(t *testing.T) {
	h := AllowMethods(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }, http.MethodPost)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusMethodNotAllowed || rw.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("expected 405 with Allow header, got %d %q", rw.Code, rw.Header().Get("Allow"))
	}
}

func TestWithCORS(t *testing.T) {
	h := WithCORS(DefaultCORSPolicy([]string{"https://app.example"}, true))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent || rw.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Fatalf("unexpected preflight response: %d %v", rw.Code, rw.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("expected no CORS headers for unknown origin")
	}
}
