// Package gate authenticates each request from its bearer token.
//
// A request ends in one of three states: Authenticated (a Principal is bound to
// the context), Anonymous (the request proceeds without one) or Rejected (a
// structured error is written and the handler never runs). Whether endpoints
// require a principal is decided by the endpoint, see RequirePrincipal.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"myauth/cmd/identity"
	"myauth/cmd/internal/auth/session"
	"myauth/cmd/internal/httpx"
)

// Verifier verifies access tokens.
type Verifier interface {
	Verify(token string) session.VerifyResult
}

// UserLookup resolves the user named by a token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (identity.User, error)
}

// Observer receives one outcome label per evaluated request.
type Observer interface {
	ObserveGate(outcome string)
}

// State is the terminal state of an evaluation.
type State int

const (
	Anonymous State = iota
	Authenticated
	Rejected
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	default:
		return "anonymous"
	}
}

// Outcome labels reported to the Observer.
const (
	OutcomeAuthenticated    = "authenticated"
	OutcomeAnonymous        = "anonymous"
	OutcomeUnknownUser      = "anonymous_unknown_user"
	OutcomeInactiveUser     = "anonymous_inactive_user"
	OutcomeRejectedExpired  = "rejected_expired"
	OutcomeRejectedInvalid  = "rejected_invalid"
	OutcomeUnexpectedOpen   = "unexpected_fail_open"
	OutcomeUnexpectedClosed = "unexpected_fail_closed"
)

// Decision is the result of evaluating one request.
// Status, Code, Action and Message are set only when State is Rejected.
type Decision struct {
	State     State
	Principal Principal
	Outcome   string

	Status  int
	Code    string
	Action  string
	Message string
}

// DefaultPublicPaths are served without evaluating credentials.
var DefaultPublicPaths = []string{
	"/login",
	"/signup",
	"/refresh",
	"/logout",
	"/health",
	"/healthz",
	"/readyz",
	"/metrics",
}

// Gate is the authentication middleware. It is safe for concurrent use.
type Gate struct {
	verifier Verifier
	users    UserLookup
	policy   Policy
	log      *slog.Logger
	obs      Observer
	public   map[string]struct{}
}

// Option configures a Gate.
type Option func(*Gate)

// WithPolicy sets the failure policy (default FailOpen).
func WithPolicy(p Policy) Option { return func(g *Gate) { g.policy = p } }

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// WithObserver sets the decision observer.
func WithObserver(o Observer) Option { return func(g *Gate) { g.obs = o } }

// WithPublicPaths replaces the set of paths that skip evaluation.
func WithPublicPaths(paths ...string) Option {
	return func(g *Gate) {
		g.public = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			g.public[p] = struct{}{}
		}
	}
}

// New returns a Gate.
func New(v Verifier, users UserLookup, opts ...Option) (*Gate, error) {
	if v == nil || users == nil {
		return nil, errors.New("gate: verifier and user lookup are required")
	}
	g := &Gate{
		verifier: v,
		users:    users,
		policy:   FailOpen,
		log:      slog.Default(),
	}
	WithPublicPaths(DefaultPublicPaths...)(g)
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Policy returns the configured failure policy.
func (g *Gate) Policy() Policy { return g.policy }

// Middleware evaluates each request before next runs.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := g.public[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		d := g.Evaluate(r)
		g.observe(d.Outcome)

		switch d.State {
		case Rejected:
			httpx.WriteError(w, r, d.Status, d.Code, d.Action, d.Message)
		case Authenticated:
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), d.Principal)))
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// Evaluate runs the per-request state machine without writing a response.
func (g *Gate) Evaluate(r *http.Request) (d Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			d = g.onUnexpected(r, fmt.Errorf("gate: panic: %v", rec))
		}
	}()

	tok, ok := httpx.BearerToken(r)
	if !ok {
		return Decision{State: Anonymous, Outcome: OutcomeAnonymous}
	}

	res := g.verifier.Verify(tok)
	switch res.Kind {
	case session.VerifyOK:
	case session.VerifyExpired:
		return rejected(OutcomeRejectedExpired, httpx.CodeTokenExpired, httpx.ActionRefreshToken, httpx.MsgTokenExpired)
	case session.VerifyInvalid, session.VerifyMalformed:
		return rejected(OutcomeRejectedInvalid, httpx.CodeInvalidToken, httpx.ActionLoginRequired, httpx.MsgInvalidToken)
	default:
		return g.onUnexpected(r, fmt.Errorf("gate: unclassified verify result %v: %w", res.Kind, res.Err))
	}

	if res.Claims.Type != session.TokenAccess || res.Claims.UserID == "" {
		return rejected(OutcomeRejectedInvalid, httpx.CodeInvalidToken, httpx.ActionLoginRequired, httpx.MsgInvalidToken)
	}

	u, err := g.users.GetUserByID(r.Context(), res.Claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return Decision{State: Anonymous, Outcome: OutcomeUnknownUser}
		}
		return g.onUnexpected(r, fmt.Errorf("gate: lookup user: %w", err))
	}
	if !u.CanAuthenticate() {
		return Decision{State: Anonymous, Outcome: OutcomeInactiveUser}
	}

	return Decision{State: Authenticated, Principal: principalOf(u), Outcome: OutcomeAuthenticated}
}

// onUnexpected is the only place the failure policy is applied.
func (g *Gate) onUnexpected(r *http.Request, err error) Decision {
	g.log.Error("auth.gate.unexpected",
		"policy", g.policy.String(),
		"method", r.Method,
		"path", r.URL.Path,
		"err", err,
	)

	if g.policy == FailClosed {
		return Decision{
			State:   Rejected,
			Outcome: OutcomeUnexpectedClosed,
			Status:  http.StatusServiceUnavailable,
			Code:    httpx.CodeAuthUnavailable,
			Message: httpx.MsgUnavailable,
		}
	}
	return Decision{State: Anonymous, Outcome: OutcomeUnexpectedOpen}
}

func (g *Gate) observe(outcome string) {
	if g.obs != nil {
		g.obs.ObserveGate(outcome)
	}
}

func rejected(outcome, code, action, msg string) Decision {
	return Decision{
		State:   Rejected,
		Outcome: outcome,
		Status:  http.StatusUnauthorized,
		Code:    code,
		Action:  action,
		Message: msg,
	}
}
