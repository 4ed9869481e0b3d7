// Package handler implements the HTTP handlers for the crew console API.
// All handlers are methods on Server; Routes wires them into a chi router.
// Methods are split into resource files (health.go, tour.go, etc.) but share
// the same Server struct so they can reach its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crewdesk/console/internal/domain"
)

// Provisioner creates a tour and its scheduling graph from a submitted form.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type Provisioner interface {
	ProvisionTour(ctx context.Context, form *domain.TourForm) (domain.Tour, error)
}

// Catalog serves the read-only views.
type Catalog interface {
	ListTours(ctx context.Context) ([]domain.Tour, error)
	GetTour(ctx context.Context, id uuid.UUID) (domain.TourDetail, error)
	ListJobs(ctx context.Context) ([]domain.Job, error)
	ListLocations(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Location], error)
}

// NotificationFeed exposes the most recent user notifications.
type NotificationFeed interface {
	Recent(limit int) []domain.Notification
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies of every HTTP handler.
type Server struct {
	provisioner   Provisioner
	catalog       Catalog
	notifications NotificationFeed
	db            Pinger
	apiDoc        []byte
	log           *slog.Logger
}

// Deps groups the constructor arguments of NewServer.
// DB and APIDoc are optional: without DB the health check only reports that
// the process is up, and without APIDoc GET /openapi.yaml is not routed.
type Deps struct {
	Provisioner   Provisioner
	Catalog       Catalog
	Notifications NotificationFeed
	DB            Pinger
	APIDoc        []byte
	Logger        *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		provisioner:   d.Provisioner,
		catalog:       d.Catalog,
		notifications: d.Notifications,
		db:            d.DB,
		apiDoc:        d.APIDoc,
		log:           log,
	}
}

// Routes returns a chi router with every API endpoint registered.
// Cross-cutting middleware is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeValidation, "method not allowed")
	})

	r.Get("/healthz", s.GetHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if len(s.apiDoc) > 0 {
		r.Get("/openapi.yaml", s.GetAPIDoc)
	}

	r.Route("/tours", func(r chi.Router) {
		r.Get("/", s.ListTours)
		r.Post("/provision", s.ProvisionTour)
		r.Get("/{id}", s.GetTour)
	})
	r.Get("/jobs", s.ListJobs)
	r.Get("/locations", s.ListLocations)
	r.Get("/notifications", s.ListNotifications)
	return r
}

// GetAPIDoc handles GET /openapi.yaml.
func (s *Server) GetAPIDoc(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(s.apiDoc)
}
