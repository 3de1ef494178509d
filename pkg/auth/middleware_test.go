package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(r.Header.Get("X-Role-Name")))
	})
}

func testCfg() SecConfig {
	return SecConfig{
		RPS:          100,
		Burst:        100,
		BackendKeys:  map[string]struct{}{"bk": {}},
		FrontendKeys: map[string]struct{}{"fk": {}},
		AdminKeys:    map[string]struct{}{"ak": {}},
	}
}

func doReq(t *testing.T, h http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMissingKeyUnauthorized(t *testing.T) {
	h := AuthenticateRequestMiddleware(testCfg())(okHandler())
	rec := doReq(t, h, http.MethodGet, "/v1/inbox/alice", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestHealthProbesBypassAuth(t *testing.T) {
	h := AuthenticateRequestMiddleware(testCfg())(okHandler())
	for _, p := range []string{"/healthz", "/readyz"} {
		rec := doReq(t, h, http.MethodGet, p, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", p, rec.Code)
		}
	}
}

func TestRolesResolved(t *testing.T) {
	h := AuthenticateRequestMiddleware(testCfg())(okHandler())
	cases := []struct {
		key  string
		path string
		role string
	}{
		{"bk", "/v1/presence/alice", "backend"},
		{"ak", "/v1/presence/alice", "admin"},
		{"fk", "/v1/inbox/alice", "frontend"},
	}
	for _, c := range cases {
		rec := doReq(t, h, http.MethodGet, c.path, map[string]string{"X-API-Key": c.key})
		if rec.Code != http.StatusOK {
			t.Fatalf("key %s: status %d", c.key, rec.Code)
		}
		if rec.Body.String() != c.role {
			t.Fatalf("key %s: role %q want %q", c.key, rec.Body.String(), c.role)
		}
	}
}

func TestBearerTokenAccepted(t *testing.T) {
	h := AuthenticateRequestMiddleware(testCfg())(okHandler())
	rec := doReq(t, h, http.MethodGet, "/v1/presence/alice", map[string]string{"Authorization": "Bearer bk"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestFrontendScopeEnforced(t *testing.T) {
	h := AuthenticateRequestMiddleware(testCfg())(okHandler())
	// frontend keys cannot hit presence or backend send
	rec := doReq(t, h, http.MethodGet, "/v1/presence/alice", map[string]string{"X-API-Key": "fk"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("presence as frontend: status %d", rec.Code)
	}
	rec = doReq(t, h, http.MethodPost, "/v1/messages", map[string]string{"X-API-Key": "fk"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("send as frontend: status %d", rec.Code)
	}
	// but the socket and own reads are allowed
	rec = doReq(t, h, http.MethodGet, "/ws", map[string]string{"X-API-Key": "fk"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ws as frontend: status %d", rec.Code)
	}
}

func TestIPWhitelistBlocks(t *testing.T) {
	cfg := testCfg()
	cfg.IPWhitelist = []string{"10.1.1.1"}
	h := AuthenticateRequestMiddleware(cfg)(okHandler())
	rec := doReq(t, h, http.MethodGet, "/v1/presence/alice", map[string]string{"X-API-Key": "bk"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestRateLimitKicksIn(t *testing.T) {
	cfg := testCfg()
	cfg.RPS = 1
	cfg.Burst = 1
	h := AuthenticateRequestMiddleware(cfg)(okHandler())
	first := doReq(t, h, http.MethodGet, "/v1/presence/alice", map[string]string{"X-API-Key": "bk"})
	if first.Code != http.StatusOK {
		t.Fatalf("first request: status %d", first.Code)
	}
	second := doReq(t, h, http.MethodGet, "/v1/presence/alice", map[string]string{"X-API-Key": "bk"})
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d", second.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := testCfg()
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	h := AuthenticateRequestMiddleware(cfg)(okHandler())
	rec := doReq(t, h, http.MethodOptions, "/v1/inbox/alice", map[string]string{"Origin": "https://app.example.com"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: status %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("allow-origin missing: %v", rec.Header())
	}
	// unknown origins get no CORS headers
	rec = doReq(t, h, http.MethodOptions, "/v1/inbox/alice", map[string]string{"Origin": "https://evil.example.com"})
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("allow-origin leaked: %v", rec.Header())
	}
}
