package authapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"myauth/cmd/internal/httpx"
)

const msgTooManyAttempts = "Too many login attempts. Please try again later."

// FailureLog reports recent login failures, newest first, at most limit entries.
// A nil FailureLog on the Handler disables throttling.
type FailureLog interface {
	LoginFailuresByAddr(ctx context.Context, addr net.IP, since time.Time, limit int) ([]time.Time, error)
	LoginFailuresByEmail(ctx context.Context, email string, since time.Time, limit int) ([]time.Time, error)
}

// lockoutTier blocks an account for Duration after its latest failure once Threshold failures are seen.
type lockoutTier struct {
	Threshold int
	Duration  time.Duration
}

// ThrottleConfig bounds login attempts per client address and per account.
type ThrottleConfig struct {
	AddrMax    int
	AddrWindow time.Duration

	AccountWindow time.Duration
	Tiers         []lockoutTier
}

// DefaultThrottleConfig allows 20 failures per address in 5m and locks an
// account progressively at 5, 10 and 20 failures within 15m.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		AddrMax:       20,
		AddrWindow:    5 * time.Minute,
		AccountWindow: 15 * time.Minute,
		Tiers: []lockoutTier{
			{Threshold: 20, Duration: 2 * time.Hour},
			{Threshold: 10, Duration: 30 * time.Minute},
			{Threshold: 5, Duration: 5 * time.Minute},
		},
	}
}

func (c ThrottleConfig) maxTierThreshold() int {
	n := 0
	for _, t := range c.Tiers {
		if t.Threshold > n {
			n = t.Threshold
		}
	}
	return n
}

// checkLoginThrottle consults the failure log before any credential work.
func (h *Handler) checkLoginThrottle(ctx context.Context, addr net.IP, email string, now time.Time) (bool, time.Duration, error) {
	if h.failures == nil {
		return false, 0, nil
	}
	tc := h.cfg.Throttle

	if addr != nil && tc.AddrMax > 0 && tc.AddrWindow > 0 {
		failures, err := h.failures.LoginFailuresByAddr(ctx, addr, now.Add(-tc.AddrWindow), tc.AddrMax)
		if err != nil {
			return false, 0, fmt.Errorf("count failures by addr: %w", err)
		}
		if blocked, retry := evaluateWindowThrottle(now, failures, tc.AddrMax, tc.AddrWindow); blocked {
			return true, retry, nil
		}
	}

	if email != "" && tc.AccountWindow > 0 && len(tc.Tiers) > 0 {
		failures, err := h.failures.LoginFailuresByEmail(ctx, email, now.Add(-tc.AccountWindow), tc.maxTierThreshold())
		if err != nil {
			return false, 0, fmt.Errorf("count failures by email: %w", err)
		}
		if blocked, retry := evaluateProgressiveLockout(now, failures, tc.Tiers); blocked {
			return true, retry, nil
		}
	}
	return false, 0, nil
}

// evaluateWindowThrottle blocks once limit failures fall inside window.
// retry is how long until the limit-th newest failure leaves the window.
func evaluateWindowThrottle(now time.Time, failures []time.Time, limit int, window time.Duration) (bool, time.Duration) {
	if limit <= 0 {
		return false, 0
	}
	recent := newestFirst(now, failures, now.Add(-window))
	if len(recent) < limit {
		return false, 0
	}
	return true, recent[limit-1].Add(window).Sub(now)
}

// evaluateProgressiveLockout applies the highest tier whose threshold is met
// and whose lockout, counted from the newest failure, is still running.
func evaluateProgressiveLockout(now time.Time, failures []time.Time, tiers []lockoutTier) (bool, time.Duration) {
	recent := newestFirst(now, failures, time.Time{})
	if len(recent) == 0 {
		return false, 0
	}

	ordered := append([]lockoutTier(nil), tiers...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Threshold > ordered[j].Threshold })

	for _, t := range ordered {
		if t.Threshold <= 0 || len(recent) < t.Threshold {
			continue
		}
		if until := recent[0].Add(t.Duration); until.After(now) {
			return true, until.Sub(now)
		}
	}
	return false, 0
}

func newestFirst(now time.Time, failures []time.Time, since time.Time) []time.Time {
	out := make([]time.Time, 0, len(failures))
	for _, f := range failures {
		if f.After(now) || (!since.IsZero() && f.Before(since)) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out
}

func writeTooManyAttempts(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64((retryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	httpx.WriteError(w, r, http.StatusTooManyRequests, httpx.CodeTooManyAttempts, "", msgTooManyAttempts)
}

// ---- audit queries ----

func (a *PostgresAuditor) LoginFailuresByAddr(ctx context.Context, addr net.IP, since time.Time, limit int) ([]time.Time, error) {
	if addr == nil || limit <= 0 {
		return nil, nil
	}
	return a.failureTimes(ctx, "remote_addr", addr.String(), since, limit)
}

func (a *PostgresAuditor) LoginFailuresByEmail(ctx context.Context, email string, since time.Time, limit int) ([]time.Time, error) {
	if email == "" || limit <= 0 {
		return nil, nil
	}
	return a.failureTimes(ctx, "email", email, since, limit)
}

// failureTimes reads created_at of recent login failures; column is one of the two literals above.
func (a *PostgresAuditor) failureTimes(ctx context.Context, column, value string, since time.Time, limit int) ([]time.Time, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT created_at
		FROM `+a.table+`
		WHERE event = $1
		  AND `+column+` = $2
		  AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT $4
	`, EventLoginFail, value, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
