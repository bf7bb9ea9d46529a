package admins

import (
	"net/http"
	"strconv"

	"github.com/Kazutech1/cucker-sub000/middleware"
	"github.com/Kazutech1/cucker-sub000/services"
	"github.com/Kazutech1/cucker-sub000/utils"
)

type UserController struct {
	Users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{Users: users}
}

// GET /api/admin/users
func (c *UserController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	users, p, err := c.Users.List(r.Context(), services.UserFilter{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: users, Pagination: &p})
}

// GET /api/admin/users/{id}
func (c *UserController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := c.Users.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: user})
}

type createUserRequest struct {
	Name      string `json:"name" validate:"required,not_empty,max=100"`
	Number    string `json:"number" validate:"required,not_empty,max=20"`
	Password  string `json:"password" validate:"required,min=6"`
	TaskLimit int    `json:"taskLimit" validate:"gte=0"`
}

// POST /api/admin/users
func (c *UserController) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	user, err := c.Users.Create(r.Context(), services.NewUserInput{
		Name:      req.Name,
		Number:    req.Number,
		Password:  req.Password,
		TaskLimit: req.TaskLimit,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "User created", Data: user})
}

type updateUserRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=100"`
	Status    *string `json:"status"`
	TaskLimit *int    `json:"taskLimit" validate:"omitempty,gte=0"`
}

// PUT /api/admin/users/{id}
func (c *UserController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	user, err := c.Users.Update(r.Context(), id, services.UserUpdate{
		Name:      req.Name,
		Status:    req.Status,
		TaskLimit: req.TaskLimit,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "User updated", Data: user})
}

type updateBalanceRequest struct {
	Amount  float64 `json:"amount" validate:"gt=0"`
	Type    string  `json:"type" validate:"required,oneof=add less"`
	Account string  `json:"account" validate:"omitempty,oneof=balance profit_balance"`
	Message string  `json:"message" validate:"max=255"`
}

// PUT /api/admin/users/balance/{id}
func (c *UserController) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateBalanceRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	entry, err := c.Users.AdjustBalance(r.Context(), services.BalanceInput{
		UserID:  id,
		Amount:  req.Amount,
		Type:    req.Type,
		Account: req.Account,
		Message: req.Message,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Balance updated", Data: entry})
}

// GET /api/admin/users/{id}/ledger
func (c *UserController) Ledger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, p, err := c.Users.LedgerEntries(r.Context(), id, page, limit)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: entries, Pagination: &p})
}
