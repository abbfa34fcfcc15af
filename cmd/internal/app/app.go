// Package app wires the myauth server runtime: config, logging, storage backends and HTTP routes.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"myauth/cmd/identity"
	authapi "myauth/cmd/internal/auth/api"
	"myauth/cmd/internal/auth/gate"
	"myauth/cmd/internal/auth/session"
	"myauth/cmd/internal/media"
	"myauth/cmd/internal/metrics"
	"myauth/cmd/security/token"
)

// App is the myauth server runtime: it owns storage lifecycles and the HTTP handler chain.
type App struct {
	cfg Config
	log Logger

	backends *backends
	metrics  *metrics.Metrics
	handler  http.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	authCfg := authapi.LoadConfigFromEnv()
	if err := ValidateSecurityConfig(cfg, authCfg); err != nil {
		return nil, err
	}

	policy, err := gate.ParsePolicy(cfg.GatePolicy)
	if err != nil {
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	codec, err := session.NewCodec(sessCfg)
	if err != nil {
		return nil, err
	}

	hasher, err := token.HasherFromEnv(cfg.RequireTokenHMAC)
	if err != nil {
		return nil, err
	}
	passwords, err := identity.PasswordsFromEnv()
	if err != nil {
		return nil, err
	}

	mediaCfg, err := media.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	images, err := media.New(ctx, mediaCfg)
	if err != nil {
		return nil, err
	}

	b, err := openBackends(ctx, cfg, log, codec.Now)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	sessions, err := session.NewService(session.Deps{
		Codec:     codec,
		Store:     b.refresh,
		Users:     b.users,
		Passwords: passwords,
		Hasher:    hasher,
		Logger:    log,
	})
	if err != nil {
		b.Close()
		return nil, err
	}

	auth, err := authapi.NewHandler(authCfg, authapi.Deps{
		Sessions:  sessions,
		Users:     b.users,
		Passwords: passwords,
		Auditor:   b.auditor,
		Failures:  b.failures,
		Metrics:   m,
		Logger:    log,
	})
	if err != nil {
		b.Close()
		return nil, err
	}

	g, err := gate.New(codec, b.users,
		gate.WithPolicy(policy),
		gate.WithLogger(log),
		gate.WithObserver(m),
	)
	if err != nil {
		b.Close()
		return nil, err
	}

	a := &App{cfg: cfg, log: log, backends: b, metrics: m}

	mux := http.NewServeMux()
	registerHTTP(mux, routes{
		log:       log,
		cfg:       cfg,
		backends:  b,
		metrics:   m,
		auth:      auth,
		media:     media.NewHandler(log, images, mediaCfg.MaxBytes),
		mediaDisk: localFiles(images),
	})

	a.handler = WithSecurityHeaders(WithRequestLogging(g.Middleware(mux), log, m))

	log.Info("app.wired",
		"env", cfg.Env,
		"gate_policy", policy.String(),
		"media_backend", string(mediaCfg.Backend),
		"token_hmac", hasher.Keyed(),
	)
	return a, nil
}

// Handler returns the full HTTP handler chain.
func (a *App) Handler() http.Handler { return a.handler }

// Close releases storage resources.
func (a *App) Close() { a.backends.Close() }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"base_url", runtimeBaseURL(a.cfg.HTTPAddr),
		"identity_store", a.backends.userBackend,
		"refresh_store", a.backends.refreshBackend,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.Close()
		return err
	}

	a.Close()
	a.log.Info("server.stopped")
	return nil
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func localFiles(s media.Storage) http.Handler {
	if ls, ok := s.(*media.LocalStorage); ok {
		return ls.Handler()
	}
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
