package admins

import (
	"net/http"
	"strconv"

	"github.com/Kazutech1/cucker-sub000/middleware"
	"github.com/Kazutech1/cucker-sub000/services"
	"github.com/Kazutech1/cucker-sub000/utils"

	"github.com/gorilla/mux"
)

// TaskController serves the admin user-task endpoints.
type TaskController struct {
	Tasks *services.TaskService
}

func NewTaskController(tasks *services.TaskService) *TaskController {
	return &TaskController{Tasks: tasks}
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[key], 10, 32)
	if err != nil || id == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid " + key})
		return 0, false
	}
	return uint(id), true
}

type forcedTaskRequest struct {
	TaskNumber    int     `json:"taskNumber" validate:"min=1"`
	DepositAmount float64 `json:"depositAmount" validate:"gt=0"`
	CustomProfit  float64 `json:"customProfit" validate:"gte=0"`
}

type assignRequest struct {
	UserID      uint                `json:"userId" validate:"required"`
	TaskCount   int                 `json:"taskCount" validate:"min=1"`
	TotalProfit float64             `json:"totalProfit" validate:"gte=0"`
	ForcedTasks []forcedTaskRequest `json:"forcedTasks" validate:"omitempty,dive"`
	TemplateIDs []uint              `json:"templateIds"`
	ProductIDs  []uint              `json:"productIds"`
}

// POST /api/admin/assign
func (c *TaskController) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	in := services.AssignInput{
		UserID:      req.UserID,
		TaskCount:   req.TaskCount,
		TotalProfit: req.TotalProfit,
		TemplateIDs: req.TemplateIDs,
	}
	if len(in.TemplateIDs) == 0 {
		in.TemplateIDs = req.ProductIDs
	}
	for _, f := range req.ForcedTasks {
		in.ForcedTasks = append(in.ForcedTasks, services.ForcedTask{
			TaskNumber:    f.TaskNumber,
			DepositAmount: f.DepositAmount,
			CustomProfit:  f.CustomProfit,
		})
	}

	tasks, err := c.Tasks.Assign(r.Context(), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Tasks assigned",
		Data:    tasks,
	})
}

type editTaskRequest struct {
	Status        *string  `json:"status"`
	ProfitAmount  *float64 `json:"profitAmount"`
	MakeForced    *bool    `json:"makeForced"`
	IsForced      *bool    `json:"isForced"`
	DepositAmount *float64 `json:"depositAmount"`
	CustomProfit  *float64 `json:"customProfit"`
}

// PUT /api/admin/{taskId}
func (c *TaskController) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "taskId")
	if !ok {
		return
	}
	var req editTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	makeForced := req.MakeForced
	if makeForced == nil {
		makeForced = req.IsForced
	}

	task, err := c.Tasks.EditUserTask(r.Context(), id, services.EditInput{
		Status:        req.Status,
		ProfitAmount:  req.ProfitAmount,
		MakeForced:    makeForced,
		DepositAmount: req.DepositAmount,
		CustomProfit:  req.CustomProfit,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task updated", Data: task})
}

// DELETE /api/admin/{taskId}
func (c *TaskController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "taskId")
	if !ok {
		return
	}
	if err := c.Tasks.DeleteUserTask(r.Context(), id); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task deleted"})
}

type forcedRequest struct {
	UserID        uint    `json:"userId" validate:"required"`
	TaskNumber    int     `json:"taskNumber" validate:"min=1"`
	DepositAmount float64 `json:"depositAmount" validate:"gt=0"`
	CustomProfit  float64 `json:"customProfit" validate:"gte=0"`
}

// POST /api/admin/forced
func (c *TaskController) SetForced(w http.ResponseWriter, r *http.Request) {
	var req forcedRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	task, err := c.Tasks.SetForced(r.Context(), services.ForcedInput{
		UserID:        req.UserID,
		TaskNumber:    req.TaskNumber,
		DepositAmount: req.DepositAmount,
		CustomProfit:  req.CustomProfit,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Combo task set", Data: task})
}

type customTaskRequest struct {
	UserID        uint     `json:"userId" validate:"required"`
	TemplateID    *uint    `json:"templateId"`
	ProductID     *uint    `json:"productId"`
	ProfitAmount  float64  `json:"profitAmount" validate:"gte=0"`
	IsForced      bool     `json:"isForced"`
	DepositAmount *float64 `json:"depositAmount"`
	CustomProfit  *float64 `json:"customProfit"`
}

// POST /api/admin/user-tasks/custom
func (c *TaskController) CreateCustom(w http.ResponseWriter, r *http.Request) {
	var req customTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	templateID := req.TemplateID
	if templateID == nil {
		templateID = req.ProductID
	}

	task, err := c.Tasks.CreateCustomTask(r.Context(), services.CustomTaskInput{
		UserID:        req.UserID,
		TemplateID:    templateID,
		ProfitAmount:  req.ProfitAmount,
		IsForced:      req.IsForced,
		DepositAmount: req.DepositAmount,
		CustomProfit:  req.CustomProfit,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Task assigned", Data: task})
}

type verifyRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

// POST /api/admin/user-tasks/{id}/verify
func (c *TaskController) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req verifyRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	task, err := c.Tasks.Verify(r.Context(), id, *req.Approve)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	msg := "Task rejected"
	if *req.Approve {
		msg = "Task approved"
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: msg, Data: task})
}

// GET /api/admin/tasks
func (c *TaskController) List(w http.ResponseWriter, r *http.Request) {
	filter, err := services.ParseListFilter(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	tasks, page, err := c.Tasks.List(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success:    true,
		Message:    "Successfully",
		Data:       tasks,
		Pagination: &page,
	})
}

// GET /api/admin/user-tasks/{id}
func (c *TaskController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := c.Tasks.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: task})
}
