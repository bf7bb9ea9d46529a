package routes

import (
	"net/http"
	"time"

	"github.com/Kazutech1/cucker-sub000/controllers/admins"
	"github.com/Kazutech1/cucker-sub000/controllers/auth"
	"github.com/Kazutech1/cucker-sub000/middleware"

	"github.com/gorilla/mux"
)

func SetAdminRoutes(api *mux.Router, deps Dependencies) {
	// Admin login: 5 attempts per IP per minute
	adminLoginLimiter := middleware.NewIPRateLimiter(5, time.Minute, deps.Config.Server.TrustedProxies)

	tasks := admins.NewTaskController(deps.Tasks)
	templates := admins.NewTemplateController(deps.Catalog)
	users := admins.NewUserController(deps.Users)

	// Public admin routes
	api.Handle("/admin/login", adminLoginLimiter.Middleware(http.HandlerFunc(admins.Login))).Methods(http.MethodPost)

	// Protected admin routes
	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AdminAuthMiddleware)

	adminRouter.HandleFunc("/logout", auth.LogoutHandler).Methods(http.MethodPost)
	adminRouter.HandleFunc("/profile", admins.GetAdminProfile).Methods(http.MethodGet)
	adminRouter.HandleFunc("/password", admins.UpdateAdminPassword).Methods(http.MethodPut)
	adminRouter.HandleFunc("/dashboard", tasks.Dashboard).Methods(http.MethodGet)

	// Task assignment and review
	adminRouter.HandleFunc("/assign", tasks.Assign).Methods(http.MethodPost)
	adminRouter.HandleFunc("/tasks", tasks.List).Methods(http.MethodGet)
	adminRouter.HandleFunc("/forced", tasks.SetForced).Methods(http.MethodPost)
	adminRouter.HandleFunc("/user-tasks/custom", tasks.CreateCustom).Methods(http.MethodPost)
	adminRouter.HandleFunc("/user-tasks/{id:[0-9]+}", tasks.Get).Methods(http.MethodGet)
	adminRouter.HandleFunc("/user-tasks/{id:[0-9]+}/verify", tasks.Verify).Methods(http.MethodPost)

	// Task templates
	adminRouter.HandleFunc("/templates", templates.List).Methods(http.MethodGet)
	adminRouter.HandleFunc("/templates", templates.Create).Methods(http.MethodPost)
	adminRouter.HandleFunc("/templates/{id:[0-9]+}", templates.Get).Methods(http.MethodGet)
	adminRouter.HandleFunc("/templates/{id:[0-9]+}", templates.Update).Methods(http.MethodPut)
	adminRouter.HandleFunc("/templates/{id:[0-9]+}", templates.Delete).Methods(http.MethodDelete)
	adminRouter.HandleFunc("/templates/{id:[0-9]+}/toggle", templates.Toggle).Methods(http.MethodPatch)

	// User management
	adminRouter.HandleFunc("/users", users.List).Methods(http.MethodGet)
	adminRouter.HandleFunc("/users", users.Create).Methods(http.MethodPost)
	adminRouter.HandleFunc("/users/{id:[0-9]+}", users.Get).Methods(http.MethodGet)
	adminRouter.HandleFunc("/users/{id:[0-9]+}", users.Update).Methods(http.MethodPut)
	adminRouter.HandleFunc("/users/{id:[0-9]+}/ledger", users.Ledger).Methods(http.MethodGet)
	adminRouter.HandleFunc("/users/balance/{id:[0-9]+}", users.UpdateBalance).Methods(http.MethodPut)

	// Bare task id routes go last so named paths win
	adminRouter.HandleFunc("/{taskId:[0-9]+}", tasks.Edit).Methods(http.MethodPut)
	adminRouter.HandleFunc("/{taskId:[0-9]+}", tasks.Delete).Methods(http.MethodDelete)
}
