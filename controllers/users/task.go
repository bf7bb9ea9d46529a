package users

import (
	"net/http"
	"strconv"

	"github.com/Kazutech1/cucker-sub000/services"
	"github.com/Kazutech1/cucker-sub000/utils"

	"github.com/gorilla/mux"
)

// TaskController serves a user's own tasks.
type TaskController struct {
	Tasks *services.TaskService
	Users *services.UserService
}

func NewTaskController(tasks *services.TaskService, users *services.UserService) *TaskController {
	return &TaskController{Tasks: tasks, Users: users}
}

// GET /api/users/tasks
func (c *TaskController) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	filter, err := services.ParseListFilter(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	filter.UserID = &uid
	filter.CurrentBatch = true
	if r.URL.Query().Get("sortBy") == "" {
		filter.SortBy = "taskNumber"
		filter.SortOrder = "asc"
	}

	tasks, page, err := c.Tasks.List(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: tasks, Pagination: &page})
}

// POST /api/users/tasks/{id}/complete
func (c *TaskController) Complete(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil || id == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}

	task, err := c.Tasks.CompleteOwnTask(r.Context(), uid, uint(id))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task completed", Data: task})
}

// GET /api/users/profile
func (c *TaskController) Profile(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	user, err := c.Users.Get(r.Context(), uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: user})
}
