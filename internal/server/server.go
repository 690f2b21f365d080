// Package server exposes the catalog, EPG, resolver and history over a JSON
// HTTP API for local player frontends.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"github.com/iptvdeck/iptvdeck/internal/config"
	"github.com/iptvdeck/iptvdeck/internal/epg"
	"github.com/iptvdeck/iptvdeck/internal/history"
	"github.com/iptvdeck/iptvdeck/internal/log"
	"github.com/iptvdeck/iptvdeck/internal/relay"
	"github.com/iptvdeck/iptvdeck/internal/xtream"
)

// Server ties the API surface together.
type Server struct {
	cfg      *config.Config
	catalog  *Catalog
	resolver *xtream.Resolver
	epg      *epg.Engine
	history  *history.Store
	relay    *relay.Handler
	log      zerolog.Logger
}

// New assembles the server. history and relay may be nil when disabled.
func New(cfg *config.Config, catalog *Catalog, resolver *xtream.Resolver, epgEngine *epg.Engine, hist *history.Store, rly *relay.Handler) *Server {
	return &Server{
		cfg:      cfg,
		catalog:  catalog,
		resolver: resolver,
		epg:      epgEngine,
		history:  hist,
		relay:    rly,
		log:      log.WithComponent("server"),
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/{kind}/categories", s.handleCategories)
		r.Get("/{kind}/streams", s.handleStreams)
		r.Get("/series/info/{seriesID}", s.handleSeriesInfo)
		r.Get("/epg/{channelID}", s.handleEPG)
		r.Get("/resolve", s.handleResolve)

		if s.history != nil {
			r.Route("/history", func(r chi.Router) {
				r.Get("/recent", s.handleRecent)
				r.Put("/progress", s.handleSaveProgress)
				r.Delete("/progress", s.handleDeleteProgress)
				r.Get("/favorites", s.handleFavorites)
				r.Put("/favorites", s.handleAddFavorite)
				r.Delete("/favorites", s.handleRemoveFavorite)
			})
		}
	})

	if s.relay != nil {
		r.Method(http.MethodGet, "/relay", s.relay)
	}
	return r
}

// Run serves until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	if s.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	}

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error string `json:"error"`
}

// writeError maps client errors onto HTTP statuses without leaking provider
// URLs or credentials into responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case xtream.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
	case xtream.IsAuth(err):
		writeJSON(w, http.StatusBadGateway, apiError{Error: "provider rejected credentials"})
	case errors.Is(err, history.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
	default:
		writeJSON(w, http.StatusBadGateway, apiError{Error: "provider unavailable"})
	}
}
