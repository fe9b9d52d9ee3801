package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/leadsync/internal/infra/http/handlers"
	"github.com/xavierca1/leadsync/internal/infra/http/middleware"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Campaigns *handlers.CampaignHandler
	Leads     *handlers.LeadHandler
	Sync      *handlers.SyncHandler
}

func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", h.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/campaigns", func(r chi.Router) {
		r.Get("/", h.Campaigns.HandleList)
		r.Get("/remote", h.Campaigns.HandleListRemote)
		r.Route("/{campaignId}", func(r chi.Router) {
			r.Get("/activities", h.Campaigns.HandleActivities)
			r.Get("/leads/review", h.Leads.HandleNeedingReview)
			r.Get("/stats", h.Campaigns.HandleStats)
			r.Post("/sync", h.Sync.Handle)
			r.Delete("/", h.Campaigns.HandleClear)
		})
	})

	return r
}
