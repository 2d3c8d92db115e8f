package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"polymath-backend/application/services"
	"polymath-backend/infrastructure/config"
	"polymath-backend/interfaces/http/rest/handlers"
	"polymath-backend/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router.
type Router struct {
	cfg         *config.Config
	connections *services.ConnectionService
	edges       *services.EdgeService
	serendipity *services.SerendipityService
	logger      *zap.Logger
}

// NewRouter creates a new router instance.
func NewRouter(
	cfg *config.Config,
	connections *services.ConnectionService,
	edges *services.EdgeService,
	serendipity *services.SerendipityService,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:         cfg,
		connections: connections,
		edges:       edges,
		serendipity: serendipity,
		logger:      logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.polymath.app"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.cfg, rt.logger))

		connectionHandler := handlers.NewConnectionHandler(rt.edges, rt.connections, rt.logger)
		r.Route("/items/{itemType}/{itemID}", func(r chi.Router) {
			r.Get("/connections", connectionHandler.ListConnections)
			r.Post("/connections/recompute", connectionHandler.Recompute)
		})

		edgeHandler := handlers.NewEdgeHandler(rt.edges, rt.logger)
		r.Route("/edges", func(r chi.Router) {
			r.Post("/", edgeHandler.CreateEdge)
			r.Delete("/{edgeKey}", edgeHandler.DeleteEdge)
		})

		serendipityHandler := handlers.NewSerendipityHandler(rt.serendipity, rt.logger)
		r.Post("/serendipity", serendipityHandler.Suggest)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
