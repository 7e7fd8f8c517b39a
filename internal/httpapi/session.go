package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"

	"wikicoord/core-go/internal/detail"
	"wikicoord/core-go/internal/prefs"
	"wikicoord/core-go/internal/viewport"
)

const maxZoom = 24

type viewportBody struct {
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
	Zoom *int     `json:"zoom"`
}

type viewportResponse struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

func toViewportResponse(s viewport.State) viewportResponse {
	return viewportResponse{Lat: s.Center.Lat(), Lon: s.Center.Lon(), Zoom: s.Zoom}
}

func (h *Handler) handleGetViewport(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, toViewportResponse(h.Viewport.Current()))
}

func (h *Handler) handlePutViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportBody
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	problems := map[string]any{}
	switch {
	case req.Lat == nil:
		problems["lat"] = "required"
	case *req.Lat < -90 || *req.Lat > 90:
		problems["lat"] = "must be within [-90, 90]"
	}
	switch {
	case req.Lon == nil:
		problems["lon"] = "required"
	case *req.Lon < -180 || *req.Lon > 180:
		problems["lon"] = "must be within [-180, 180]"
	}
	switch {
	case req.Zoom == nil:
		problems["zoom"] = "required"
	case *req.Zoom < 0 || *req.Zoom > maxZoom:
		problems["zoom"] = "must be within [0, 24]"
	}
	if len(problems) > 0 {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid viewport", problems)
		return
	}

	h.Viewport.Set(viewport.State{Center: orb.Point{*req.Lon, *req.Lat}, Zoom: *req.Zoom})
	h.writeJSON(w, http.StatusOK, toViewportResponse(h.Viewport.Current()))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Status.Snapshot())
}

type pauseBody struct {
	Paused *bool `json:"paused"`
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	var req pauseBody
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if req.Paused == nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "paused is required", map[string]any{"paused": "required"})
		return
	}

	h.Fetch.SetPaused(*req.Paused)

	if s, err := h.Prefs.Load(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("load preferences for pause failed")
	} else {
		s.Paused = *req.Paused
		if _, err := h.Prefs.Save(r.Context(), s); err != nil {
			h.log.Warn().Err(err).Msg("persist pause failed")
		}
	}

	h.writeJSON(w, http.StatusOK, h.Status.Snapshot())
}

type settingsBody struct {
	ZoomThreshold      *int  `json:"zoom_threshold,omitempty"`
	LabelZoomThreshold *int  `json:"label_zoom_threshold,omitempty"`
	SidebarCollapsed   *bool `json:"sidebar_collapsed,omitempty"`
}

func (h *Handler) currentSettings(s prefs.Settings) prefs.Settings {
	s.ZoomThreshold = h.Fetch.ZoomThreshold()
	s.LabelZoomThreshold = h.Visibility.Threshold()
	s.Paused = h.Fetch.Paused()
	return s
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Prefs.Load(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("load preferences failed")
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "failed to load settings", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, h.currentSettings(s))
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsBody
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	problems := map[string]any{}
	if req.ZoomThreshold != nil && (*req.ZoomThreshold < 1 || *req.ZoomThreshold > maxZoom) {
		problems["zoom_threshold"] = "must be within [1, 24]"
	}
	if req.LabelZoomThreshold != nil && (*req.LabelZoomThreshold < 1 || *req.LabelZoomThreshold > maxZoom) {
		problems["label_zoom_threshold"] = "must be within [1, 24]"
	}
	if len(problems) > 0 {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid settings", problems)
		return
	}

	loaded, err := h.Prefs.Load(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("load preferences failed")
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "failed to load settings", nil)
		return
	}
	next := h.currentSettings(loaded)
	if req.ZoomThreshold != nil {
		next.ZoomThreshold = *req.ZoomThreshold
	}
	if req.LabelZoomThreshold != nil {
		next.LabelZoomThreshold = *req.LabelZoomThreshold
	}
	if req.SidebarCollapsed != nil {
		next.SidebarCollapsed = *req.SidebarCollapsed
	}

	saved, err := h.Prefs.Save(r.Context(), next)
	if err != nil {
		h.log.Error().Err(err).Msg("save preferences failed")
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "failed to save settings", nil)
		return
	}

	if saved.LabelZoomThreshold != h.Visibility.Threshold() {
		h.Visibility.SetThreshold(saved.LabelZoomThreshold)
		h.Visibility.Refresh(h.Viewport.Current().Zoom)
	}
	if saved.ZoomThreshold != h.Fetch.ZoomThreshold() {
		h.Fetch.SetZoomThreshold(saved.ZoomThreshold)
	}

	h.writeJSON(w, http.StatusOK, h.currentSettings(saved))
}

func (h *Handler) handleListMarkers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Markers.Snapshot())
}

func (h *Handler) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	h.Status.SetMessage("loading entity " + id)
	d, err := h.Details.Resolve(r.Context(), id)
	if err != nil {
		if errors.Is(err, detail.ErrInvalidID) {
			h.Status.SetMessage("ready")
			h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid entity id", map[string]any{"id": id})
			return
		}
		h.log.Error().Err(err).Str("entity", id).Msg("entity detail failed")
		h.Status.SetMessage("ready")
		h.writeError(w, http.StatusBadGateway, "upstream_error", "failed to load entity", map[string]any{"error": err.Error()})
		return
	}
	h.Status.SetMessage("ready")

	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(detail.RenderHTML(d)))
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}
