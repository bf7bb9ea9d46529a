package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Kazutech1/cucker-sub000/config"
	"github.com/Kazutech1/cucker-sub000/database"
	"github.com/Kazutech1/cucker-sub000/models"
	"github.com/Kazutech1/cucker-sub000/services"
	"github.com/Kazutech1/cucker-sub000/testutil"
	"github.com/Kazutech1/cucker-sub000/utils"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Data       json.RawMessage      `json:"data"`
	Pagination *services.Pagination `json:"pagination"`
}

type testServer struct {
	t      *testing.T
	router *mux.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.MustDB(t)
	database.DB = db
	utils.ConfigureJWT(config.AuthConfig{JWTSecret: "test-secret"})
	t.Cleanup(func() { database.DB = nil })

	_, err := database.EnsureAdmin(db, "root", "rootpass")
	require.NoError(t, err)

	cfg := &config.Config{Server: config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}}}
	ledger := services.NewLedger()
	r := InitRouter(Dependencies{
		Config:  cfg,
		Tasks:   services.NewTaskService(db, ledger, 1.0),
		Catalog: services.NewCatalogService(db),
		Users:   services.NewUserService(db, ledger),
	})
	return &testServer{t: t, router: r}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func (s *testServer) login(path string, body interface{}) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, path, "", body)
	require.Equal(s.t, http.StatusOK, code, env.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/admin/assign", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(http.MethodGet, "/api/admin/tasks", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	code, env := s.do(http.MethodPost, "/api/admin/login", "", map[string]string{"username": "root", "password": "wrongpass"})
	require.Equal(t, http.StatusUnauthorized, code)
	require.False(t, env.Success)
}

func TestAssignVerifyFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("/api/admin/login", map[string]string{"username": "root", "password": "rootpass"})

	code, env := s.do(http.MethodPost, "/api/admin/users", admin, map[string]interface{}{
		"name": "Ada", "number": "08123", "password": "secret1", "taskLimit": 5,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var user models.User
	require.NoError(t, json.Unmarshal(env.Data, &user))

	code, env = s.do(http.MethodPut, fmt.Sprintf("/api/admin/users/balance/%d", user.ID), admin, map[string]interface{}{
		"amount": 100, "type": "add", "account": "profit_balance",
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = s.do(http.MethodPost, "/api/admin/templates", admin, map[string]interface{}{"appName": "Shop", "profit": 1})
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(http.MethodPost, "/api/admin/templates", admin, map[string]interface{}{"appName": "Combo", "profit": 1, "depositAmount": 50})
	require.Equal(t, http.StatusCreated, code)

	code, env = s.do(http.MethodPost, "/api/admin/assign", admin, map[string]interface{}{
		"userId":      user.ID,
		"taskCount":   3,
		"totalProfit": 30,
		"forcedTasks": []map[string]interface{}{{"taskNumber": 2, "depositAmount": 50, "customProfit": 15}},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var tasks []models.UserTask
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	require.Len(t, tasks, 3)

	var forced, normal models.UserTask
	for _, task := range tasks {
		if task.IsForced {
			forced = task
		} else if task.TaskNumber == 1 {
			normal = task
		}
	}
	require.Equal(t, 2, forced.TaskNumber)
	require.Equal(t, 15.0, forced.ProfitAmount)
	require.Equal(t, 15.0, normal.ProfitAmount)

	code, env = s.do(http.MethodGet, "/api/admin/tasks?isForced=true&status=pending", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	require.NotNil(t, env.Pagination)
	require.Equal(t, int64(1), env.Pagination.Total)

	verifyPath := fmt.Sprintf("/api/admin/user-tasks/%d/verify", forced.ID)
	code, env = s.do(http.MethodPost, verifyPath, admin, map[string]bool{"approve": true})
	require.Equal(t, http.StatusOK, code, env.Message)
	code, _ = s.do(http.MethodPost, verifyPath, admin, map[string]bool{"approve": false})
	require.Equal(t, http.StatusConflict, code)

	code, env = s.do(http.MethodPost, verifyPath, admin, map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, env.Message, "approve")

	code, env = s.do(http.MethodGet, fmt.Sprintf("/api/admin/users/%d", user.ID), admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &user))
	require.Equal(t, 115.0, user.ProfitBalance)

	// the user sees and completes a normal task
	token := s.login("/api/login", map[string]string{"number": "08123", "password": "secret1"})
	code, env = s.do(http.MethodGet, "/api/users/tasks", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(3), env.Pagination.Total)

	code, env = s.do(http.MethodPost, fmt.Sprintf("/api/users/tasks/%d/complete", normal.ID), token, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	code, _ = s.do(http.MethodPost, fmt.Sprintf("/api/users/tasks/%d/complete", forced.ID), token, nil)
	require.Equal(t, http.StatusConflict, code)

	code, env = s.do(http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &user))
	require.Equal(t, 130.0, user.ProfitBalance)

	// user tokens cannot reach admin routes
	code, _ = s.do(http.MethodGet, "/api/admin/tasks", token, nil)
	require.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodGet, fmt.Sprintf("/api/admin/users/%d/ledger", user.ID), admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(3), env.Pagination.Total)
}

func TestEditAndDeleteByTaskID(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("/api/admin/login", map[string]string{"username": "root", "password": "rootpass"})
	user := testutil.SeedUser(t, database.DB, "0900", 0)
	testutil.SeedTemplate(t, database.DB, "Shop", nil)

	code, env := s.do(http.MethodPost, "/api/admin/assign", admin, map[string]interface{}{
		"userId": user.ID, "taskCount": 2, "totalProfit": 10,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var tasks []models.UserTask
	require.NoError(t, json.Unmarshal(env.Data, &tasks))

	code, env = s.do(http.MethodPut, fmt.Sprintf("/api/admin/%d", tasks[0].ID), admin, map[string]interface{}{"profitAmount": 7.5})
	require.Equal(t, http.StatusOK, code, env.Message)
	var edited models.UserTask
	require.NoError(t, json.Unmarshal(env.Data, &edited))
	require.Equal(t, 7.5, edited.ProfitAmount)

	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/%d", tasks[1].ID), admin, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, fmt.Sprintf("/api/admin/user-tasks/%d", tasks[1].ID), admin, nil)
	require.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodPut, "/api/admin/999999", admin, map[string]interface{}{"profitAmount": 1})
	require.Equal(t, http.StatusNotFound, code)
}

func TestAdminLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("/api/admin/login", map[string]string{"username": "root", "password": "rootpass"})

	code, _ := s.do(http.MethodGet, "/api/admin/profile", admin, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodPost, "/api/admin/logout", admin, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, "/api/admin/profile", admin, nil)
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminPasswordAndDashboard(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("/api/admin/login", map[string]string{"username": "root", "password": "rootpass"})

	code, env := s.do(http.MethodGet, "/api/admin/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var stats services.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.Zero(t, stats.TotalUsers)

	code, env = s.do(http.MethodPut, "/api/admin/password", admin, map[string]string{
		"currentPassword": "rootpass", "newPassword": "newpass123", "confirmationPassword": "other",
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, env.Message, "does not match")

	code, _ = s.do(http.MethodPut, "/api/admin/password", admin, map[string]string{
		"currentPassword": "rootpass", "newPassword": "newpass123", "confirmationPassword": "newpass123",
	})
	require.Equal(t, http.StatusOK, code)
	s.login("/api/admin/login", map[string]string{"username": "root", "password": "newpass123"})
}
