package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upwatch/dispatch/internal/domain"
	apimw "github.com/upwatch/dispatch/internal/httpapi/middleware"
	"github.com/upwatch/dispatch/internal/queue"
	"github.com/upwatch/dispatch/internal/repo"
)

var errInvalidURL = errors.New("invalid url")

// ---- dispatch endpoints ----

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	regionID := chi.URLParam(r, "regionId")
	region, err := s.Regions.RegionByID(r.Context(), regionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Region not found")
			return
		}
		s.Log.Error("create_group_region_lookup", zap.String("region_id", regionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create consumer group")
		return
	}

	if err := s.Queue.CreateGroup(r.Context(), regionID); err != nil && !errors.Is(err, queue.ErrGroupExists) {
		s.Log.Error("create_group_failed", zap.String("region_id", regionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create consumer group")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Consumer group created for region '" + region.Name + "' (" + regionID + ")",
		"regionId":   regionID,
		"regionName": region.Name,
	})
}

func (s *Server) handleTriggerPusher(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RegionID string `json:"regionId"`
	}
	// body is optional; the configured intake region is the fallback
	_ = json.NewDecoder(r.Body).Decode(&body)

	regionID := body.RegionID
	if regionID == "" {
		regionID = s.PushRegionID
	}
	if regionID == "" {
		writeError(w, http.StatusBadRequest, "No intake region configured; set PUSH_REGION_ID or pass regionId")
		return
	}

	rep, err := s.Pusher.Run(r.Context(), apimw.CallerID(r.Context()), regionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Region not found")
			return
		}
		s.Log.Error("trigger_pusher_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to trigger pusher")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleTriggerWorker(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RegionID string `json:"regionId"`
		WorkerID string `json:"workerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RegionID == "" || body.WorkerID == "" {
		writeError(w, http.StatusBadRequest, "Region ID and Worker ID are required")
		return
	}

	rep, err := s.Worker.RunOnce(r.Context(), body.RegionID, body.WorkerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Region not found")
			return
		}
		s.Log.Error("trigger_worker_failed",
			zap.String("region_id", body.RegionID),
			zap.String("worker_id", body.WorkerID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Failed to trigger worker")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ---- catalog endpoints ----

type websiteView struct {
	ID         string            `json:"id"`
	URL        string            `json:"url"`
	CreatedAt  time.Time         `json:"created_at"`
	Status     domain.TickStatus `json:"status"`
	LatestTick *domain.Tick      `json:"latest_tick,omitempty"`
}

func (s *Server) websiteView(r *http.Request, w *domain.Website) websiteView {
	view := websiteView{
		ID:        w.ID,
		URL:       w.URL,
		CreatedAt: w.CreatedAt,
		Status:    domain.StatusUnknown, // no probe data yet
	}
	tick, err := s.Ticks.LatestTick(r.Context(), w.ID)
	switch {
	case err == nil:
		view.Status = tick.Status
		view.LatestTick = tick
	case !errors.Is(err, repo.ErrNotFound):
		// a failing tick store must not masquerade as "never probed"
		s.Log.Error("latest_tick_failed", zap.String("website_id", w.ID), zap.Error(err))
	}
	return view
}

func (s *Server) handleAddWebsite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.URL) == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	normalized, err := normalizeWebsiteURL(body.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid URL format. Please enter a valid domain (e.g., example.com)")
		return
	}

	site := &domain.Website{
		URL:       normalized,
		OwnerID:   apimw.CallerID(r.Context()),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Websites.AddWebsite(r.Context(), site); err != nil {
		if errors.Is(err, repo.ErrDuplicateWebsite) {
			writeError(w, http.StatusConflict, "This website is already being monitored")
			return
		}
		s.Log.Error("add_website_failed", zap.String("url", normalized), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.Log.Info("website_added", zap.String("website_id", site.ID), zap.String("url", site.URL))
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      site.ID,
		"url":     site.URL,
		"message": "Website added successfully and ready for monitoring!",
	})
}

func (s *Server) handleListWebsites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.Websites.WebsitesByOwner(r.Context(), apimw.CallerID(r.Context()))
	if err != nil {
		s.Log.Error("list_websites_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	views := make([]websiteView, 0, len(sites))
	for _, site := range sites {
		views = append(views, s.websiteView(r, site))
	}
	writeJSON(w, http.StatusOK, map[string]any{"websites": views})
}

func (s *Server) handleWebsiteStatus(w http.ResponseWriter, r *http.Request) {
	site, err := s.Websites.WebsiteByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil || site.OwnerID != apimw.CallerID(r.Context()) {
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			s.Log.Error("website_status_failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeError(w, http.StatusNotFound, "Website not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"website": s.websiteView(r, site)})
}

func (s *Server) handleDeleteWebsite(w http.ResponseWriter, r *http.Request) {
	site, err := s.Websites.WebsiteByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Website not found")
			return
		}
		s.Log.Error("delete_website_lookup", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if site.OwnerID != apimw.CallerID(r.Context()) {
		writeError(w, http.StatusForbidden, "Unauthorized to delete this website")
		return
	}
	if err := s.Websites.DeleteWebsite(r.Context(), site.ID); err != nil {
		s.Log.Error("delete_website_failed", zap.String("website_id", site.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddRegion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "Region name is required")
		return
	}

	region := &domain.Region{Name: strings.TrimSpace(body.Name), CreatedAt: time.Now().UTC()}
	if err := s.Regions.AddRegion(r.Context(), region); err != nil {
		if errors.Is(err, repo.ErrDuplicateRegion) {
			writeError(w, http.StatusConflict, "Region with this name already exists")
			return
		}
		s.Log.Error("add_region_failed", zap.String("name", region.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// best-effort: a failed group creation must not fail region creation
	if err := s.Queue.CreateGroup(r.Context(), region.ID); err != nil && !errors.Is(err, queue.ErrGroupExists) {
		s.Log.Warn("region_group_create_failed", zap.String("region_id", region.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Region created successfully",
		"region":  region,
	})
}

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.Regions.Regions(r.Context())
	if err != nil {
		s.Log.Error("list_regions_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": regions})
}

func (s *Server) handleDeleteRegion(w http.ResponseWriter, r *http.Request) {
	err := s.Regions.DeleteRegion(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "Region not found")
	case errors.Is(err, repo.ErrRegionInUse):
		writeError(w, http.StatusConflict, "Region has recorded ticks and cannot be deleted")
	default:
		s.Log.Error("delete_region_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
