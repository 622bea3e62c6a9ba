package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/upwatch/dispatch/internal/dispatch"
	apimw "github.com/upwatch/dispatch/internal/httpapi/middleware"
	"github.com/upwatch/dispatch/internal/queue"
	"github.com/upwatch/dispatch/internal/repo"
)

type Server struct {
	Log      *zap.Logger
	Websites repo.WebsiteStore
	Regions  repo.RegionStore
	Ticks    repo.TickStore
	Queue    queue.Queue
	Pusher   *dispatch.Pusher
	Worker   *dispatch.Worker

	// PushRegionID is the operator-chosen default intake region for
	// /trigger-pusher; a regionId in the request body overrides it.
	PushRegionID string
}

func NewServer(l *zap.Logger, store CatalogStore, q queue.Queue, pusher *dispatch.Pusher, worker *dispatch.Worker, pushRegionID string) *Server {
	return &Server{
		Log:          l,
		Websites:     store,
		Regions:      store,
		Ticks:        store,
		Queue:        q,
		Pusher:       pusher,
		Worker:       worker,
		PushRegionID: pushRegionID,
	}
}

// CatalogStore is the full catalog surface the API needs; both the memory
// and postgres adapters satisfy it.
type CatalogStore interface {
	repo.WebsiteStore
	repo.RegionStore
	repo.TickStore
}

func (s *Server) Router(keys map[string]string, ratePerMin, rateBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(ratePerMin, rateBurst))
		r.Use(apimw.Auth(keys))

		r.Post("/redis/create-group/{regionId}", s.handleCreateGroup)
		r.Post("/trigger-pusher", s.handleTriggerPusher)
		r.Post("/trigger-worker", s.handleTriggerWorker)

		r.Route("/api", func(r chi.Router) {
			r.Post("/websites", s.handleAddWebsite)
			r.Get("/websites", s.handleListWebsites)
			r.Get("/websites/{id}/status", s.handleWebsiteStatus)
			r.Delete("/websites/{id}", s.handleDeleteWebsite)

			r.Post("/regions", s.handleAddRegion)
			r.Get("/regions", s.handleListRegions)
			r.Delete("/regions/{id}", s.handleDeleteRegion)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// normalizeWebsiteURL strips an optional scheme and validates that the rest
// parses as an https host. Stored URLs are always scheme-less.
func normalizeWebsiteURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	if trimmed == "" || strings.ContainsAny(trimmed, " \t") {
		return "", errInvalidURL
	}
	u, err := url.Parse("https://" + trimmed)
	if err != nil || u.Hostname() == "" || !strings.Contains(u.Hostname(), ".") {
		return "", errInvalidURL
	}
	return trimmed, nil
}
