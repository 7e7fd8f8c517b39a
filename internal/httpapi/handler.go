package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"wikicoord/core-go/internal/detail"
	"wikicoord/core-go/internal/metrics"
	"wikicoord/core-go/internal/prefs"
	"wikicoord/core-go/internal/render"
	"wikicoord/core-go/internal/status"
	"wikicoord/core-go/internal/viewport"
)

type ViewportTracker interface {
	Current() viewport.State
	Set(next viewport.State)
}

// FetchControl is the part of the fetch scheduler the API drives.
type FetchControl interface {
	SetPaused(paused bool)
	Paused() bool
	SetZoomThreshold(z int)
	ZoomThreshold() int
}

type LabelVisibility interface {
	Threshold() int
	SetThreshold(t int)
	Refresh(currentZoom int) int
}

type MarkerSource interface {
	Snapshot() []render.MarkerView
}

type DetailResolver interface {
	Resolve(ctx context.Context, id string) (detail.EntityDetail, error)
}

type StatusBoard interface {
	Snapshot() status.Snapshot
	SetMessage(msg string)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the session components served over HTTP. DB may be nil when preferences live in memory.
type Deps struct {
	Viewport   ViewportTracker
	Fetch      FetchControl
	Visibility LabelVisibility
	Markers    MarkerSource
	Details    DetailResolver
	Status     StatusBoard
	Prefs      prefs.Store
	DB         Pinger
	Metrics    *metrics.Metrics
}

type Handler struct {
	log zerolog.Logger
	Deps
}

func NewHandler(log zerolog.Logger, deps Deps) *Handler {
	return &Handler{log: log, Deps: deps}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(h.accessLog)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Get("/viewport", h.handleGetViewport)
			r.Put("/viewport", h.handlePutViewport)
			r.Get("/status", h.handleStatus)
			r.Post("/pause", h.handlePause)
			r.Get("/settings", h.handleGetSettings)
			r.Put("/settings", h.handlePutSettings)
			r.Get("/markers", h.handleListMarkers)
			r.Get("/entities/{id}", h.handleGetEntity)
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		h.Metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB != nil {
		if err := h.DB.Ping(ctx); err != nil {
			h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
