package server_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bionicotaku/cast-services-portal/internal/admission"
	"github.com/bionicotaku/cast-services-portal/internal/server"

	"github.com/go-kratos/kratos/v2/log"
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

func newGate(t *testing.T) (http.Handler, *bool) {
	t.Helper()
	policy := admission.NewGatePolicy(admission.Config{}, log.NewStdLogger(io.Discard))
	filter := server.NewGateFilter(policy, log.NewStdLogger(io.Discard))

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	return filter(next), &reached
}

func doGet(t *testing.T, handler http.Handler, path, ua string, withCookie bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	if withCookie {
		req.AddCookie(&http.Cookie{Name: "better-auth.session_token", Value: "opaque"})
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGateBypassesListedPrefixes(t *testing.T) {
	paths := []string{
		"/api/videos",
		"/_next/static/chunk.js",
		"/_next/image?url=x",
		"/favicon.ico",
		"/sign-in",
		"/assets/logo.svg",
	}
	for _, path := range paths {
		handler, reached := newGate(t)
		rec := doGet(t, handler, path, "curl/8.0", false)
		if !*reached {
			t.Fatalf("expected %s to bypass the gate, got %d", path, rec.Code)
		}
	}
}

func TestGateDeniesAutomatedAgents(t *testing.T) {
	handler, reached := newGate(t)
	rec := doGet(t, handler, "/dashboard", "curl/8.0", true)
	if *reached {
		t.Fatal("automated agent must not reach the page")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestGateAllowsSearchEngines(t *testing.T) {
	handler, reached := newGate(t)
	rec := doGet(t, handler, "/dashboard", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", false)
	if *reached {
		t.Fatal("crawler without session should be redirected, not served")
	}
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307 for crawler without session, got %d", rec.Code)
	}
}

func TestGateRedirectsMissingSession(t *testing.T) {
	handler, reached := newGate(t)
	rec := doGet(t, handler, "/dashboard", browserUA, false)
	if *reached {
		t.Fatal("request without session must not reach the page")
	}
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/sign-in" {
		t.Fatalf("expected redirect to /sign-in, got %s", got)
	}
}

func TestGatePassesWithSessionCookie(t *testing.T) {
	handler, reached := newGate(t)
	rec := doGet(t, handler, "/dashboard", browserUA, true)
	if !*reached {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}

func TestGateBlocksShieldMarkers(t *testing.T) {
	handler, reached := newGate(t)
	rec := doGet(t, handler, "/dashboard?file=../../etc/passwd", browserUA, true)
	if *reached {
		t.Fatal("suspicious request must not reach the page")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
