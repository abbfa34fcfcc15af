package app

import (
	"net/http"

	authapi "myauth/cmd/internal/auth/api"
	"myauth/cmd/internal/httpx"
	"myauth/cmd/internal/media"
	"myauth/cmd/internal/metrics"
)

type routes struct {
	log      Logger
	cfg      Config
	backends *backends
	metrics  *metrics.Metrics
	auth     *authapi.Handler
	media    *media.Handler

	// mediaDisk serves locally stored uploads; nil for remote storage.
	mediaDisk http.Handler
}

func registerHTTP(mux *http.ServeMux, rt routes) {
	live := func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			httpx.MethodNotAllowed(w, r, http.MethodGet, http.MethodHead)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
	mux.HandleFunc("/health", live)
	mux.HandleFunc("/healthz", live)

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if rt.cfg.ReadinessRequireDB && (rt.backends == nil || rt.backends.pool == nil) {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_not_configured"})
			return
		}
		if rt.backends != nil {
			if err := rt.backends.Ready(r.Context()); err != nil {
				rt.log.Info("readyz.not_ready", "err", err)
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	if rt.auth != nil {
		rt.auth.Register(mux)
	}
	if rt.media != nil {
		rt.media.Register(mux)
	}
	if rt.mediaDisk != nil {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads", rt.mediaDisk))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, r, http.StatusNotFound, httpx.CodeNotFound, "", "Resource not found.")
	})
}
