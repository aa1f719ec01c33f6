package identity_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/identity"

	"github.com/go-kratos/kratos/v2/log"
)

type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) { return len(p), nil }

func newProvider(t *testing.T, baseURL string) *identity.Provider {
	t.Helper()
	provider, err := identity.NewProvider(identity.Config{BaseURL: baseURL, Timeout: time.Second}, log.NewStdLogger(ioDiscard{}))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return provider
}

func TestGetSession_ParsesUser(t *testing.T) {
	var gotCookie string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/get-session" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotCookie = r.Header.Get("Cookie")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":"user-1","email":"user@example.com"}}`))
	}))
	defer upstream.Close()

	provider := newProvider(t, upstream.URL+"/api/auth")

	header := http.Header{}
	header.Set("Cookie", "better-auth.session_token=abc")
	session, err := provider.GetSession(context.Background(), header)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session == nil || session.UserID != "user-1" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if gotCookie != "better-auth.session_token=abc" {
		t.Fatalf("cookie not forwarded, got %q", gotCookie)
	}
}

func TestGetSession_AnonymousReturnsNil(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`null`))
	}))
	defer upstream.Close()

	provider := newProvider(t, upstream.URL+"/api/auth")
	session, err := provider.GetSession(context.Background(), http.Header{})
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session != nil {
		t.Fatalf("expected nil session, got %+v", session)
	}
}

func TestHandler_ProxiesBody(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
	defer upstream.Close()

	provider := newProvider(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in/email", nil)
	recorder := httptest.NewRecorder()
	provider.Handler().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
	if gotPath != "/sign-in/email" {
		t.Fatalf("upstream path %q, want /sign-in/email", gotPath)
	}
}

func TestHandler_PrefixedBaseForwardsWithoutDoubling(t *testing.T) {
	var gotPath, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	provider := newProvider(t, upstream.URL+"/api/auth")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in/email?redirect=%2Fdashboard", nil)
	recorder := httptest.NewRecorder()
	provider.Handler().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
	if gotPath != "/api/auth/sign-in/email" {
		t.Fatalf("upstream path %q, want /api/auth/sign-in/email", gotPath)
	}
	if gotQuery != "redirect=%2Fdashboard" {
		t.Fatalf("query not preserved, got %q", gotQuery)
	}
}

func TestHasSessionCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if identity.HasSessionCookie(req) {
		t.Fatal("no cookie should mean no session")
	}

	req.AddCookie(&http.Cookie{Name: "better-auth.session_token", Value: "tok"})
	if !identity.HasSessionCookie(req) {
		t.Fatal("expected session cookie to be detected")
	}
}
