// Package authapi serves the login, signup, refresh, logout and /me endpoints.
//
// Refresh tokens travel on the caller's channel: web clients get an HttpOnly
// cookie and never see the token in a body, mobile clients get it in JSON.
package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"myauth/cmd/identity"
	"myauth/cmd/internal/auth/channel"
	"myauth/cmd/internal/auth/gate"
	"myauth/cmd/internal/auth/session"
	"myauth/cmd/internal/httpx"
	"myauth/cmd/security/password"
)

const (
	maxEmailLen     = 254
	maxNameLen      = 100
	maxUserAgentLen = 512
)

// Client-facing messages.
const (
	msgInvalidCredentials = "Invalid email or password."
	msgInvalidBody        = "Invalid request body."
	msgMissingCredentials = "Email and password are required."
	msgRefreshMissing     = "Refresh token is missing."
	msgRefreshInvalid     = "Invalid refresh token. Please log in again."
	msgRefreshExpired     = "Refresh token has expired. Please log in again."
	msgEmailTaken         = "An account with this email already exists."
	msgInvalidEmail       = "A valid email address is required."
	msgNameTooLong        = "Name is too long."
	msgPayloadTooLarge    = "Request body is too large."
)

// Registrar creates accounts.
type Registrar interface {
	CreateUser(ctx context.Context, in identity.CreateUserInput) (identity.User, error)
}

// PasswordHasher validates and hashes new passwords.
type PasswordHasher interface {
	Validate(plain string) error
	HashPassword(plain string) (string, error)
}

// Observer receives login and refresh outcomes.
type Observer interface {
	ObserveLogin(result string)
	ObserveRefresh(result string)
}

type noopObserver struct{}

func (noopObserver) ObserveLogin(string)   {}
func (noopObserver) ObserveRefresh(string) {}

// Deps groups Handler collaborators. Sessions, Users and Passwords are required.
type Deps struct {
	Sessions   *session.Service
	Users      Registrar
	Passwords  PasswordHasher
	Classifier *channel.Classifier
	Auditor    Auditor
	Failures   FailureLog
	Metrics    Observer
	Logger     *slog.Logger
}

// Handler wires HTTP auth endpoints to the session service.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions   *session.Service
	users      Registrar
	passwords  PasswordHasher
	classifier *channel.Classifier
	auditor    Auditor
	failures   FailureLog
	metrics    Observer
}

// NewHandler constructs an auth Handler.
func NewHandler(cfg Config, d Deps) (*Handler, error) {
	switch {
	case d.Sessions == nil:
		return nil, errors.New("authapi: nil session service")
	case d.Users == nil:
		return nil, errors.New("authapi: nil registrar")
	case d.Passwords == nil:
		return nil, errors.New("authapi: nil password hasher")
	}

	def := DefaultConfig()
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if strings.TrimSpace(cfg.CookieName) == "" {
		cfg.CookieName = def.CookieName
	}
	if strings.TrimSpace(cfg.CookiePath) == "" {
		cfg.CookiePath = def.CookiePath
	}

	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	classifier := d.Classifier
	if classifier == nil {
		classifier = channel.NewClassifier(cfg.MobileSignatures...)
	}
	auditor := d.Auditor
	if auditor == nil {
		auditor = NewLogAuditor(log)
	}
	var obs Observer = noopObserver{}
	if d.Metrics != nil {
		obs = d.Metrics
	}

	return &Handler{
		log:        log,
		cfg:        cfg,
		sessions:   d.Sessions,
		users:      d.Users,
		passwords:  d.Passwords,
		classifier: classifier,
		auditor:    auditor,
		failures:   d.Failures,
		metrics:    obs,
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/signup", h.handleSignup)
	mux.HandleFunc("/login", h.handleLogin)
	mux.HandleFunc("/refresh", h.handleRefresh)
	mux.HandleFunc("/logout", h.handleLogout)
	mux.Handle("/me", gate.RequirePrincipal(http.HandlerFunc(h.handleMe)))
}

// ---- handlers ----

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}

	email := identity.NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	switch {
	case email == "" || len(email) > maxEmailLen || !strings.Contains(email, "@"):
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeInvalidRequest, "", msgInvalidEmail)
		return
	case utf8.RuneCountInString(name) > maxNameLen:
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeInvalidRequest, "", msgNameTooLong)
		return
	}
	if err := h.passwords.Validate(req.Password); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeWeakPassword, "", weakPasswordMessage(err))
		return
	}

	hash, err := h.passwords.HashPassword(req.Password)
	if err != nil {
		h.log.Error("auth.signup.hash.fail", "err", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "", httpx.MsgInternal)
		return
	}

	u, err := h.users.CreateUser(r.Context(), identity.CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Now:          h.sessions.Codec().Now(),
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			httpx.WriteError(w, r, http.StatusConflict, httpx.CodeEmailTaken, "", msgEmailTaken)
		case identity.IsInvalidInput(err):
			httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeInvalidRequest, "", msgInvalidEmail)
		default:
			h.log.Error("auth.signup.create.fail", "err", err)
			httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "", httpx.MsgInternal)
		}
		return
	}

	h.audit(r, h.classifier.ClassifyRequest(r), AuditEvent{Event: EventSignup, UserID: u.ID, Email: u.Email})
	httpx.WriteJSON(w, http.StatusCreated, signupResponse{User: toUserResponse(u)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if !h.decode(w, r, &req) {
		h.metrics.ObserveLogin("invalid_request")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.metrics.ObserveLogin("invalid_request")
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeInvalidRequest, "", msgMissingCredentials)
		return
	}

	ch := h.classifier.ClassifyRequest(r)
	email := identity.NormalizeEmail(req.Email)

	now := h.sessions.Codec().Now()
	blocked, retryAfter, err := h.checkLoginThrottle(r.Context(), clientIP(r, h.cfg.TrustProxy), email, now)
	if err != nil {
		h.metrics.ObserveLogin("error")
		h.log.Error("auth.login.throttle.fail", "err", err)
		httpx.WriteError(w, r, http.StatusServiceUnavailable, httpx.CodeAuthUnavailable, "", httpx.MsgUnavailable)
		return
	}
	if blocked {
		h.metrics.ObserveLogin("throttled")
		h.audit(r, ch, AuditEvent{Event: EventLoginThrottled, Email: email, Detail: retryAfter.Round(time.Second).String()})
		writeTooManyAttempts(w, r, retryAfter)
		return
	}

	res, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeLoginError(w, r, ch, email, err)
		return
	}

	h.metrics.ObserveLogin("success")
	h.audit(r, ch, AuditEvent{Event: EventLoginSuccess, UserID: res.User.ID, Email: res.User.Email})

	body := loginResponse{
		AccessToken:           res.AccessToken,
		RefreshToken:          res.RefreshToken,
		TokenType:             tokenTypeBearer,
		AccessTokenExpiresAt:  res.AccessExpiresAt,
		RefreshTokenExpiresAt: res.RefreshExpiresAt,
		User:                  toUserResponse(res.User),
	}
	if ch == channel.Web {
		h.setRefreshCookie(w, res.RefreshToken)
		body.RefreshToken = ""
	}
	httpx.WriteJSON(w, http.StatusOK, body)
}

func (h *Handler) writeLoginError(w http.ResponseWriter, r *http.Request, ch channel.Channel, email string, err error) {
	if status, ok := session.StatusOf(err); ok {
		code, msg := accountStatusError(status)
		h.metrics.ObserveLogin("account_inactive")
		h.audit(r, ch, AuditEvent{Event: EventLoginFail, Email: email, Detail: string(status)})
		httpx.WriteError(w, r, http.StatusBadRequest, code, "", msg)
		return
	}
	if errors.Is(err, session.ErrInvalidCredentials) {
		h.metrics.ObserveLogin("invalid_credentials")
		h.audit(r, ch, AuditEvent{Event: EventLoginFail, Email: email, Detail: "invalid_credentials"})
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeInvalidCredentials, "", msgInvalidCredentials)
		return
	}
	h.metrics.ObserveLogin("error")
	h.log.Error("auth.login.fail", "channel", ch.String(), "err", err)
	httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "", httpx.MsgInternal)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, r, http.MethodPost)
		return
	}

	ch := h.classifier.ClassifyRequest(r)
	tok, ok := h.refreshTokenFrom(w, r, ch)
	if !ok {
		return
	}
	if tok == "" {
		h.metrics.ObserveRefresh("missing")
		status := http.StatusUnauthorized
		if ch == channel.Mobile {
			status = http.StatusBadRequest
		}
		httpx.WriteError(w, r, status, httpx.CodeNoToken, httpx.ActionLoginRequired, msgRefreshMissing)
		return
	}

	res, err := h.sessions.Refresh(r.Context(), tok)
	if err != nil {
		h.writeRefreshError(w, r, ch, err)
		return
	}

	h.metrics.ObserveRefresh("success")
	h.audit(r, ch, AuditEvent{Event: EventRefreshSuccess, UserID: res.User.ID, Email: res.User.Email})
	httpx.WriteJSON(w, http.StatusOK, refreshResponse{
		AccessToken:          res.AccessToken,
		TokenType:            tokenTypeBearer,
		AccessTokenExpiresAt: res.AccessExpiresAt,
	})
}

func (h *Handler) writeRefreshError(w http.ResponseWriter, r *http.Request, ch channel.Channel, err error) {
	var (
		result string
		code   string
		msg    string
	)
	switch {
	case errors.Is(err, session.ErrRefreshInvalid):
		result, code, msg = "invalid", httpx.CodeInvalidToken, msgRefreshInvalid
	case errors.Is(err, session.ErrRefreshNotFound):
		result, code, msg = "not_found", httpx.CodeInvalidToken, msgRefreshInvalid
	case errors.Is(err, session.ErrRefreshExpired):
		result, code, msg = "expired", httpx.CodeTokenExpired, msgRefreshExpired
	case errors.Is(err, session.ErrAccountInactive):
		result = "account_inactive"
		status, _ := session.StatusOf(err)
		code, msg = accountStatusError(status)
	default:
		h.metrics.ObserveRefresh("error")
		h.log.Error("auth.refresh.fail", "channel", ch.String(), "err", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "", httpx.MsgInternal)
		return
	}

	h.metrics.ObserveRefresh(result)
	h.audit(r, ch, AuditEvent{Event: EventRefreshFail, Detail: result})
	httpx.WriteError(w, r, http.StatusUnauthorized, code, httpx.ActionLoginRequired, msg)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, r, http.MethodPost)
		return
	}

	ch := h.classifier.ClassifyRequest(r)
	tok, ok := h.refreshTokenFrom(w, r, ch)
	if !ok {
		return
	}
	if ch == channel.Web {
		h.expireRefreshCookie(w)
	}

	if tok != "" {
		if err := h.sessions.Revoke(r.Context(), tok); err != nil {
			h.log.Error("auth.logout.revoke.fail", "err", err)
			httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "", httpx.MsgInternal)
			return
		}
		h.audit(r, ch, AuditEvent{Event: EventLogout})
	}

	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, _ := gate.PrincipalFrom(r.Context())
	httpx.WriteJSON(w, http.StatusOK, meResponse{User: userResponse{
		ID:    p.UserID,
		Email: p.Email,
		Name:  p.Name,
		Role:  string(p.Role),
	}})
}

// ---- helpers ----

// refreshTokenFrom reads the refresh token from the channel's carrier.
// An empty token with ok=true means none was presented; ok=false means a response was already written.
// Mobile bodies may carry client fields beside refreshToken, so unknown fields are ignored there.
func (h *Handler) refreshTokenFrom(w http.ResponseWriter, r *http.Request, ch channel.Channel) (string, bool) {
	if ch == channel.Web {
		tok, _ := h.refreshTokenFromCookie(r)
		return tok, true
	}
	var req refreshRequest
	err := httpx.DecodeJSONLoose(w, r, h.cfg.MaxBodyBytes, &req)
	if errors.Is(err, httpx.ErrEmptyBody) {
		return "", true
	}
	if !h.decodeOK(w, r, err) {
		return "", false
	}
	return strings.TrimSpace(req.RefreshToken), true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return h.decodeOK(w, r, httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, dst))
}

func (h *Handler) decodeOK(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return true
	case httpx.IsTooLarge(err):
		httpx.WriteError(w, r, http.StatusRequestEntityTooLarge, httpx.CodePayloadTooLarge, "", msgPayloadTooLarge)
	default:
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeInvalidRequest, "", msgInvalidBody)
	}
	return false
}

func (h *Handler) audit(r *http.Request, ch channel.Channel, ev AuditEvent) {
	ev.Channel = ch.String()
	ev.RemoteAddr = clientIP(r, h.cfg.TrustProxy)
	ev.UserAgent = truncate(strings.TrimSpace(r.UserAgent()), maxUserAgentLen)
	if err := h.auditor.Record(context.WithoutCancel(r.Context()), ev); err != nil {
		h.log.Warn("auth.audit.fail", "event", ev.Event, "err", err)
	}
}

func accountStatusError(status identity.Status) (code, msg string) {
	switch status {
	case identity.StatusSuspended:
		return httpx.CodeAccountSuspended, "This account has been suspended. Please contact support."
	case identity.StatusDeleted:
		return httpx.CodeAccountDeleted, "This account has been deleted."
	case identity.StatusPendingVerification:
		return httpx.CodeAccountPendingVerification, "Please verify your email address before logging in."
	default:
		return httpx.CodeAccountInactive, "This account is inactive. Please contact support."
	}
}

func weakPasswordMessage(err error) string {
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return "Password is too short."
	case errors.Is(err, password.ErrPasswordTooLong):
		return "Password is too long."
	default:
		return "Password is too weak."
	}
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
