package controllers_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/admission"
	"github.com/bionicotaku/cast-services-portal/internal/controllers"
	"github.com/bionicotaku/cast-services-portal/internal/identity"

	"github.com/go-chi/chi/v5"
	"github.com/go-kratos/kratos/v2/log"
)

func newAuthTestServer(t *testing.T, providerHandler http.HandlerFunc, cfg admission.Config) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(providerHandler)
	t.Cleanup(upstream.Close)

	provider, err := identity.NewProvider(identity.Config{BaseURL: upstream.URL + "/api/auth"}, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	policy := admission.NewAuthPolicy(cfg, stubMX{records: []string{"mx.example.com"}}, log.NewStdLogger(io.Discard))
	handler := controllers.NewAuthHandler(provider, policy, log.NewStdLogger(io.Discard))

	router := chi.NewRouter()
	handler.Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type stubMX struct {
	records []string
	err     error
}

func (s stubMX) LookupMX(_ context.Context, _ string) ([]*net.MX, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*net.MX, 0, len(s.records))
	for _, host := range s.records {
		out = append(out, &net.MX{Host: host, Pref: 10})
	}
	return out, nil
}

func TestAuthHandlerForwardsGet(t *testing.T) {
	srv := newAuthTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/get-session" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`null`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}, admission.Config{RateLimitMax: 100, RateLimitInterval: time.Minute})

	resp, err := http.Get(srv.URL + "/api/auth/get-session")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthHandlerRejectsInvalidEmail(t *testing.T) {
	var forwarded bool
	srv := newAuthTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/get-session" {
			_, _ = w.Write([]byte(`null`))
			return
		}
		forwarded = true
		w.WriteHeader(http.StatusOK)
	}, admission.Config{RateLimitMax: 100, RateLimitInterval: time.Minute})

	resp, err := http.Post(srv.URL+"/api/auth/sign-in/email", "application/json",
		strings.NewReader(`{"email":"not-an-email","password":"x"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if forwarded {
		t.Fatal("denied sign-in must not reach the provider")
	}
}

func TestAuthHandlerForwardsValidSignIn(t *testing.T) {
	var gotBody, gotPath string
	srv := newAuthTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/get-session" {
			_, _ = w.Write([]byte(`null`))
			return
		}
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}, admission.Config{RateLimitMax: 100, RateLimitInterval: time.Minute})

	payload := `{"email":"user@example.com","password":"secret"}`
	resp, err := http.Post(srv.URL+"/api/auth/sign-in/email", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotBody != payload {
		t.Fatalf("request body must be restored for forwarding, got %q", gotBody)
	}
	if gotPath != "/api/auth/sign-in/email" {
		t.Fatalf("provider path %q, want /api/auth/sign-in/email", gotPath)
	}
}

func TestAuthHandlerRateLimitsAnonymousWrites(t *testing.T) {
	srv := newAuthTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/get-session" {
			_, _ = w.Write([]byte(`null`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}, admission.Config{RateLimitMax: 2, RateLimitInterval: 2 * time.Minute})

	var last int
	var retryAfter string
	for i := 0; i < 3; i++ {
		resp, err := http.Post(srv.URL+"/api/auth/sign-out", "application/json", strings.NewReader(`{}`))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		last = resp.StatusCode
		retryAfter = resp.Header.Get("Retry-After")
		resp.Body.Close()
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third write, got %d", last)
	}
	seconds, err := strconv.Atoi(retryAfter)
	if err != nil || seconds <= 0 || seconds > 120 {
		t.Fatalf("expected Retry-After within the window, got %q", retryAfter)
	}
}
