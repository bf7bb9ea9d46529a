package routes

import (
	"net/http"
	"time"

	"github.com/Kazutech1/cucker-sub000/controllers/auth"
	"github.com/Kazutech1/cucker-sub000/controllers/users"
	"github.com/Kazutech1/cucker-sub000/middleware"

	"github.com/gorilla/mux"
)

// UsersRoutes registers the end-user routes on api.
func UsersRoutes(api *mux.Router, deps Dependencies) {
	// Login: 60 per IP per 5 minutes
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute, deps.Config.Server.TrustedProxies)

	tasks := users.NewTaskController(deps.Tasks, deps.Users)

	api.Handle("/login", loginLimiter.Middleware(http.HandlerFunc(auth.LoginHandler))).Methods(http.MethodPost)

	userRouter := api.PathPrefix("/users").Subrouter()
	userRouter.Use(middleware.AuthMiddleware)

	userRouter.HandleFunc("/logout", auth.LogoutHandler).Methods(http.MethodPost)
	userRouter.HandleFunc("/profile", tasks.Profile).Methods(http.MethodGet)
	userRouter.HandleFunc("/tasks", tasks.List).Methods(http.MethodGet)
	userRouter.HandleFunc("/tasks/{id:[0-9]+}/complete", tasks.Complete).Methods(http.MethodPost)
}
