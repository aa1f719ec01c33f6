package admission_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/admission"

	"github.com/go-kratos/kratos/v2/log"
)

type stubResolver struct {
	records map[string][]*net.MX
	err     error
	calls   int
}

func (s *stubResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records[name], nil
}

func discardLogger() log.Logger {
	return log.NewStdLogger(ioDiscard{})
}

type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) { return len(p), nil }

func TestBotRule_AllowsSearchEngines(t *testing.T) {
	rule := admission.NewBotRule(nil)

	cases := []struct {
		agent string
		allow bool
	}{
		{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", true},
		{"Mozilla/5.0 (compatible; bingbot/2.0)", true},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36", true},
		{"curl/8.4.0", false},
		{"python-requests/2.31", false},
		{"EvilScraper-bot/1.0", false},
		{"", false},
	}
	for _, tc := range cases {
		decision, err := rule.Evaluate(context.Background(), admission.RequestInfo{UserAgent: tc.agent})
		if err != nil {
			t.Fatalf("Evaluate(%q): %v", tc.agent, err)
		}
		if decision.Allowed != tc.allow {
			t.Fatalf("Evaluate(%q): allowed=%v, want %v", tc.agent, decision.Allowed, tc.allow)
		}
		if !tc.allow && decision.Reason != admission.ReasonBot {
			t.Fatalf("Evaluate(%q): reason=%s, want bot", tc.agent, decision.Reason)
		}
	}
}

func TestBotRule_ExtraAllowlist(t *testing.T) {
	rule := admission.NewBotRule([]string{"uptime-checker"})
	decision, err := rule.Evaluate(context.Background(), admission.RequestInfo{UserAgent: "Uptime-Checker bot/1.0"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected allowlisted agent to pass")
	}
}

func TestShieldRule_DeniesInjectionMarkers(t *testing.T) {
	rule := admission.NewShieldRule()

	deny := []admission.RequestInfo{
		{Path: "/videos/../../etc/passwd"},
		{Path: "/search", RawQuery: "q=1%20UNION%20SELECT%20password"},
		{Path: "/watch", RawQuery: "title=<script>alert(1)</script>"},
	}
	for _, info := range deny {
		decision, err := rule.Evaluate(context.Background(), info)
		if err != nil {
			t.Fatalf("Evaluate(%s): %v", info.Path, err)
		}
		if decision.Allowed || decision.Reason != admission.ReasonShield {
			t.Fatalf("expected shield denial for %s?%s", info.Path, info.RawQuery)
		}
	}

	decision, err := rule.Evaluate(context.Background(), admission.RequestInfo{Path: "/videos/abc", RawQuery: "page=2"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected clean request to pass")
	}
}

func TestEmailRule_Denials(t *testing.T) {
	resolver := &stubResolver{records: map[string][]*net.MX{
		"example.com": {{Host: "mx.example.com", Pref: 10}},
	}}
	rule := admission.NewEmailRule(resolver, []string{"spam.example"}, time.Second)

	cases := []struct {
		email string
		allow bool
	}{
		{"user@example.com", true},
		{"not-an-email", false},
		{"user@mailinator.com", false},
		{"user@spam.example", false},
		{"user@no-mx.example", false},
		{"", true}, // 规则不适用
	}
	for _, tc := range cases {
		decision, err := rule.Evaluate(context.Background(), admission.RequestInfo{Email: tc.email})
		if err != nil {
			t.Fatalf("Evaluate(%q): %v", tc.email, err)
		}
		if decision.Allowed != tc.allow {
			t.Fatalf("Evaluate(%q): allowed=%v, want %v", tc.email, decision.Allowed, tc.allow)
		}
		if !tc.allow && decision.Reason != admission.ReasonEmail {
			t.Fatalf("Evaluate(%q): reason=%s, want email", tc.email, decision.Reason)
		}
	}
}

func TestEmailRule_NXDomainDenies(t *testing.T) {
	resolver := &stubResolver{err: &net.DNSError{Err: "no such host", IsNotFound: true}}
	rule := admission.NewEmailRule(resolver, nil, time.Second)

	decision, err := rule.Evaluate(context.Background(), admission.RequestInfo{Email: "user@gone.example"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected denial for non-existent domain")
	}
}

func TestEmailRule_TransientLookupErrorPropagates(t *testing.T) {
	resolver := &stubResolver{err: errors.New("dns timeout")}
	rule := admission.NewEmailRule(resolver, nil, time.Second)

	_, err := rule.Evaluate(context.Background(), admission.RequestInfo{Email: "user@example.com"})
	if err == nil {
		t.Fatal("expected transient lookup error to propagate")
	}
}

func TestSlidingWindowRule_DeniesBeyondMax(t *testing.T) {
	now := time.Now()
	rule := admission.NewSlidingWindowRule(2, 2*time.Minute).WithClock(func() time.Time { return now })
	info := admission.RequestInfo{Fingerprint: "user-1"}

	for i := 0; i < 2; i++ {
		decision, err := rule.Evaluate(context.Background(), info)
		if err != nil {
			t.Fatalf("Evaluate #%d: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("attempt %d should pass", i)
		}
	}

	decision, err := rule.Evaluate(context.Background(), info)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Allowed || decision.Reason != admission.ReasonRateLimit {
		t.Fatalf("expected rate-limit denial, got %+v", decision)
	}
	if decision.RetryAfter != 2*time.Minute {
		t.Fatalf("expected retry-after of the full window, got %v", decision.RetryAfter)
	}
}

func TestSlidingWindowRule_WindowSlides(t *testing.T) {
	now := time.Now()
	rule := admission.NewSlidingWindowRule(1, time.Minute).WithClock(func() time.Time { return now })
	info := admission.RequestInfo{Fingerprint: "user-2"}

	if d, _ := rule.Evaluate(context.Background(), info); !d.Allowed {
		t.Fatal("first attempt should pass")
	}
	if d, _ := rule.Evaluate(context.Background(), info); d.Allowed {
		t.Fatal("second attempt inside window should be denied")
	}

	now = now.Add(61 * time.Second)
	if d, _ := rule.Evaluate(context.Background(), info); !d.Allowed {
		t.Fatal("attempt after window expiry should pass")
	}
}

func TestSlidingWindowRule_SkipsEmailRequests(t *testing.T) {
	rule := admission.NewSlidingWindowRule(1, time.Minute)
	info := admission.RequestInfo{Fingerprint: "user-3", Email: "user@example.com"}

	for i := 0; i < 5; i++ {
		decision, err := rule.Evaluate(context.Background(), info)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if !decision.Allowed {
			t.Fatal("email-bearing requests are outside the rate-limit rule")
		}
	}
}

func TestPolicy_FirstDenialWins(t *testing.T) {
	cfg := admission.Config{RateLimitMax: 1, RateLimitInterval: time.Minute}
	resolver := &stubResolver{records: map[string][]*net.MX{"example.com": {{Host: "mx", Pref: 10}}}}
	policy := admission.NewAuthPolicy(cfg, resolver, discardLogger())

	// 邮箱规则优先于限流规则。
	decision, err := policy.Evaluate(context.Background(), admission.RequestInfo{
		Email:       "user@mailinator.com",
		Fingerprint: "user-4",
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Allowed || decision.Reason != admission.ReasonEmail {
		t.Fatalf("expected email denial, got %+v", decision)
	}
}

func TestPolicy_FailOpenSkipsBrokenRule(t *testing.T) {
	resolver := &stubResolver{err: errors.New("resolver down")}
	cfg := admission.Config{FailOpen: true, RateLimitMax: 5, RateLimitInterval: time.Minute}
	policy := admission.NewAuthPolicy(cfg, resolver, discardLogger())

	decision, err := policy.Evaluate(context.Background(), admission.RequestInfo{Email: "user@example.com"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("fail-open policy should serve the request")
	}
}

func TestPolicy_FailClosedPropagatesError(t *testing.T) {
	resolver := &stubResolver{err: errors.New("resolver down")}
	cfg := admission.Config{FailOpen: false, RateLimitMax: 5, RateLimitInterval: time.Minute}
	policy := admission.NewAuthPolicy(cfg, resolver, discardLogger())

	_, err := policy.Evaluate(context.Background(), admission.RequestInfo{Email: "user@example.com"})
	if err == nil {
		t.Fatal("fail-closed policy should surface the rule error")
	}
}

func TestReasonKind_StatusMapping(t *testing.T) {
	if admission.ReasonEmail.HTTPStatus() != 400 {
		t.Fatal("email denials map to 400")
	}
	if admission.ReasonRateLimit.HTTPStatus() != 429 {
		t.Fatal("rate-limit denials map to 429")
	}
	if admission.ReasonShield.HTTPStatus() != 403 {
		t.Fatal("shield denials map to 403")
	}
	if admission.ReasonBot.HTTPStatus() != 403 {
		t.Fatal("bot denials map to 403")
	}
}
