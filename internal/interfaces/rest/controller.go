package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	app_service "ens-identity-graph/internal/application/service"
	"ens-identity-graph/internal/domain/entity"
	domain_service "ens-identity-graph/internal/domain/service"
	"ens-identity-graph/internal/infrastructure/logger"
	"ens-identity-graph/internal/infrastructure/metrics"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// EdgeStore is the edge view the handlers read and mutate
type EdgeStore interface {
	ListEdges(ctx context.Context) []entity.Edge
	AddEdge(ctx context.Context, source, target string) (entity.Edge, error)
	DeleteEdge(ctx context.Context, id string) error
	Mode() app_service.StoreMode
}

// ProfileService resolves ENS profiles and avatars
type ProfileService interface {
	Resolve(ctx context.Context, name string) (*entity.Profile, error)
	Avatar(ctx context.Context, name string) (string, error)
}

// SearchService completes partial names
type SearchService interface {
	Search(ctx context.Context, query string) []string
}

// Controller serves the JSON API
type Controller struct {
	Edges    EdgeStore
	Activity domain_service.ActivityService
	Profiles ProfileService
	Search   SearchService
	Metrics  bool
	logger   *logger.Logger
}

// NewController returns a new controller.
func NewController(
	edges EdgeStore,
	activity domain_service.ActivityService,
	profiles ProfileService,
	search SearchService,
	logger *logger.Logger,
) *Controller {
	return &Controller{
		Edges:    edges,
		Activity: activity,
		Profiles: profiles,
		Search:   search,
		logger:   logger.WithComponent("rest"),
	}
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodDelete+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter returns a new router with all the API routes.
func (c *Controller) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(c.withRequestLog)

	r.HandleFunc("/health", c.HandleHealth).Methods(http.MethodGet)
	if c.Metrics {
		r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(WithCORS)

	api.HandleFunc("/edges", c.HandleEdgesList).Methods(http.MethodGet)
	api.HandleFunc("/edges", c.HandleEdgeCreate).Methods(http.MethodPost)
	api.HandleFunc("/edges", c.HandleEdgeDelete).Methods(http.MethodDelete)
	api.HandleFunc("/edges/{id}", c.HandleEdgeDelete).Methods(http.MethodDelete)

	api.HandleFunc("/activity", c.HandleActivity).Methods(http.MethodGet)
	api.HandleFunc("/activity/{address}", c.HandleActivity).Methods(http.MethodGet)

	api.HandleFunc("/avatar", c.HandleAvatar).Methods(http.MethodGet)
	api.HandleFunc("/profile/{name}", c.HandleProfile).Methods(http.MethodGet)
	api.HandleFunc("/search", c.HandleSearch).Methods(http.MethodGet)

	// Preflight for every API path
	api.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	return r
}

// HandleHealth reports liveness and the edge store mode
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"edge_mode": c.Edges.Mode().String(),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (c *Controller) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(started)))
	})
}

// writeJSON writes a JSON response
func (c *Controller) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (c *Controller) writeError(w http.ResponseWriter, statusCode int, message string) {
	c.writeJSON(w, statusCode, map[string]string{"error": message})
}

// param returns a path variable, falling back to the query string
func param(r *http.Request, name string) string {
	if v := mux.Vars(r)[name]; v != "" {
		return v
	}
	return r.URL.Query().Get(name)
}
