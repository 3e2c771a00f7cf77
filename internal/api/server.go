package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"econcal/internal/api/health"
	"econcal/internal/domain/calendar"
	"econcal/internal/domain/forecast"
	"econcal/internal/metrics"
	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

// ServerConfig contains configuration for HTTP server
type ServerConfig struct {
	Addr        string
	ServiceName string
	Version     string
}

// Readers are the read-only views served over HTTP
type Readers struct {
	Events    calendar.Repository
	Forecasts forecast.Repository
}

// Server wraps HTTP server with lifecycle management
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures HTTP server with all routes
func NewServer(cfg ServerConfig, healthHandler *health.Handler, readers Readers, log *logger.Logger) *Server {
	log = log.With("component", "http")
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/ready", healthHandler.HandleReadiness)
	mux.HandleFunc("/live", healthHandler.HandleLiveness)

	mux.Handle("/metrics", metrics.Handler())

	if readers.Events != nil {
		mux.HandleFunc("/events", eventsHandler(readers.Events, log))
	}
	if readers.Forecasts != nil {
		mux.HandleFunc("/forecasts", forecastsHandler(readers.Forecasts, log))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":"%s","version":"%s","status":"running"}`,
			cfg.ServiceName, cfg.Version)
	})

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		log:        log,
	}
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests
// Blocks until server is stopped or encounters an error
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// eventsHandler serves GET /events?currency=USD&from=2024-01-01&to=2024-02-01&limit=100
// in the events_formatted shape
func eventsHandler(repo calendar.Repository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		rows, err := repo.ListFormatted(r.Context(), filter)
		if err != nil {
			log.Warnw("List events failed", "error", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if rows == nil {
			rows = []calendar.FormattedEvent{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// forecastsHandler serves the live set, or one forecast with ?currency=&event=
func forecastsHandler(repo forecast.Repository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		currency, event := q.Get("currency"), q.Get("event")

		if currency != "" && event != "" {
			f, err := repo.Get(r.Context(), currency, event)
			switch {
			case errors.Is(err, errors.ErrNotFound):
				writeError(w, http.StatusNotFound, err)
			case err != nil:
				log.Warnw("Get forecast failed", "error", err)
				writeError(w, http.StatusInternalServerError, err)
			default:
				writeJSON(w, http.StatusOK, f)
			}
			return
		}

		items, err := repo.List(r.Context())
		if err != nil {
			log.Warnw("List forecasts failed", "error", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if items == nil {
			items = []forecast.LiveForecast{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func parseFilter(r *http.Request) (calendar.Filter, error) {
	q := r.URL.Query()
	f := calendar.Filter{Currency: q.Get("currency")}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(calendar.DateLayout, v)
		if err != nil {
			return f, errors.Wrapf(errors.ErrInvalidInput, "from: %q is not YYYY-MM-DD", v)
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(calendar.DateLayout, v)
		if err != nil {
			return f, errors.Wrapf(errors.ErrInvalidInput, "to: %q is not YYYY-MM-DD", v)
		}
		f.To = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.Wrapf(errors.ErrInvalidInput, "limit: %q", v)
		}
		f.Limit = n
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
