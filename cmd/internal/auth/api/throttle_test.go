package authapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"myauth/cmd/internal/httpx"
)

// failureLog is an in-memory FailureLog keyed by address and email.
type failureLog struct {
	mu     sync.Mutex
	byAddr map[string][]time.Time
	byMail map[string][]time.Time
	err    error
}

func newFailureLog() *failureLog {
	return &failureLog{byAddr: map[string][]time.Time{}, byMail: map[string][]time.Time{}}
}

func (l *failureLog) add(addr, email string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if addr != "" {
		l.byAddr[addr] = append(l.byAddr[addr], at)
	}
	if email != "" {
		l.byMail[email] = append(l.byMail[email], at)
	}
}

func (l *failureLog) LoginFailuresByAddr(_ context.Context, addr net.IP, since time.Time, limit int) ([]time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return newestSince(l.byAddr[addr.String()], since, limit), nil
}

func (l *failureLog) LoginFailuresByEmail(_ context.Context, email string, since time.Time, limit int) ([]time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return newestSince(l.byMail[email], since, limit), nil
}

func newestSince(all []time.Time, since time.Time, limit int) []time.Time {
	var out []time.Time
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if !all[i].Before(since) {
			out = append(out, all[i])
		}
	}
	return out
}

func TestEvaluateWindowThrottle(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)

	failures := []time.Time{
		now.Add(-1 * time.Minute),
		now.Add(-6 * time.Minute),
		now.Add(-2 * time.Minute),
	}

	blocked, retry := evaluateWindowThrottle(now, failures, 2, 5*time.Minute)
	if !blocked {
		t.Fatalf("expected window throttle to block")
	}
	if retry != 3*time.Minute {
		t.Fatalf("expected retry=3m, got %v", retry)
	}

	if blocked, retry = evaluateWindowThrottle(now, failures, 3, 5*time.Minute); blocked || retry != 0 {
		t.Fatalf("expected allow, got blocked=%v retry=%v", blocked, retry)
	}
	if blocked, _ = evaluateWindowThrottle(now, failures, 0, 5*time.Minute); blocked {
		t.Fatalf("zero limit must disable the throttle")
	}
}

func TestEvaluateProgressiveLockout(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	tiers := DefaultThrottleConfig().Tiers

	series := func(n int, newest, step time.Duration) []time.Time {
		out := make([]time.Time, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, now.Add(-newest-time.Duration(i)*step))
		}
		return out
	}

	cases := []struct {
		name      string
		failures  []time.Time
		wantBlock bool
		wantRetry time.Duration
	}{
		{name: "below short tier", failures: series(4, 0, time.Second)},
		{name: "short tier", failures: series(5, 30*time.Second, 30*time.Second), wantBlock: true, wantRetry: 4*time.Minute + 30*time.Second},
		{name: "short tier elapsed", failures: series(5, 6*time.Minute, time.Second)},
		{name: "long tier outlives short", failures: series(10, 6*time.Minute, time.Second), wantBlock: true, wantRetry: 24 * time.Minute},
		{name: "severe tier", failures: series(20, time.Minute, time.Second), wantBlock: true, wantRetry: 119 * time.Minute},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			blocked, retry := evaluateProgressiveLockout(now, tc.failures, tiers)
			if blocked != tc.wantBlock || retry != tc.wantRetry {
				t.Fatalf("got blocked=%v retry=%v want %v/%v", blocked, retry, tc.wantBlock, tc.wantRetry)
			}
		})
	}
}

func TestLogin_ThrottledByAccountFailures(t *testing.T) {
	failures := newFailureLog()
	f := newFixture(t, func(_ *Config, d *Deps) { d.Failures = failures })
	f.signup(t, "lock@example.com")

	for i := 0; i < 5; i++ {
		failures.add("", "lock@example.com", f.clk.Now().Add(-time.Duration(i)*time.Second))
	}

	rr := f.do(t, jsonRequest(http.MethodPost, "/login", `{"email":"Lock@Example.com ","password":"`+testPassword+`"}`))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if e := decodeError(t, rr); e.ErrorCode != httpx.CodeTooManyAttempts {
		t.Fatalf("unexpected body: %+v", e)
	}
	if got := rr.Header().Get("Retry-After"); got != "300" {
		t.Fatalf("Retry-After=%q want 300", got)
	}
	if refreshCookie(t, rr) != nil {
		t.Fatalf("throttled login must not set a cookie")
	}
	names := f.auditor.names()
	if names[len(names)-1] != EventLoginThrottled {
		t.Fatalf("expected throttle audited, got %v", names)
	}

	f.clk.Advance(5 * time.Minute)
	rr = f.do(t, jsonRequest(http.MethodPost, "/login", `{"email":"lock@example.com","password":"`+testPassword+`"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("after lockout status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestLogin_ThrottledByAddress(t *testing.T) {
	failures := newFailureLog()
	f := newFixture(t, func(c *Config, d *Deps) {
		c.Throttle.AddrMax = 3
		d.Failures = failures
	})
	f.signup(t, "addr@example.com")

	for i := 0; i < 3; i++ {
		failures.add("203.0.113.7", "", f.clk.Now().Add(-time.Minute))
	}

	rr := f.do(t, jsonRequest(http.MethodPost, "/login", `{"email":"addr@example.com","password":"`+testPassword+`"}`))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	other := jsonRequest(http.MethodPost, "/login", `{"email":"addr@example.com","password":"`+testPassword+`"}`)
	other.RemoteAddr = "198.51.100.9:4000"
	if rr = f.do(t, other); rr.Code != http.StatusOK {
		t.Fatalf("other address status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestLogin_ThrottleLookupFailure(t *testing.T) {
	failures := newFailureLog()
	failures.err = errors.New("db down")
	f := newFixture(t, func(_ *Config, d *Deps) { d.Failures = failures })
	f.signup(t, "busy@example.com")

	rr := f.do(t, jsonRequest(http.MethodPost, "/login", `{"email":"busy@example.com","password":"`+testPassword+`"}`))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if e := decodeError(t, rr); e.ErrorCode != httpx.CodeAuthUnavailable {
		t.Fatalf("unexpected body: %+v", e)
	}
}
