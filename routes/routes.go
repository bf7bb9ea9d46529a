package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Kazutech1/cucker-sub000/config"
	"github.com/Kazutech1/cucker-sub000/middleware"
	"github.com/Kazutech1/cucker-sub000/services"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Config  *config.Config
	Tasks   *services.TaskService
	Catalog *services.CatalogService
	Users   *services.UserService
}

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func InitRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()
	// route templates are only known inside the router
	r.Use(middleware.MetricsMiddleware)

	r.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"service":   "task-platform",
		})
	})).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.Use(handlers.CORS(
		handlers.AllowedOrigins(deps.Config.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
		handlers.AllowCredentials(),
	))

	api := r.PathPrefix("/api").Subrouter()

	// catch-all OPTIONS for CORS preflight
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	UsersRoutes(api, deps)
	SetAdminRoutes(api, deps)

	return r
}
