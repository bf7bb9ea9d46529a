package admins

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Kazutech1/cucker-sub000/database"
	"github.com/Kazutech1/cucker-sub000/middleware"
	"github.com/Kazutech1/cucker-sub000/models"
	"github.com/Kazutech1/cucker-sub000/utils"

	"gorm.io/gorm"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required,not_empty,max=100"`
	Password string `json:"password" validate:"required,min=6"`
}

// POST /api/admin/login
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	account := "admin:" + strings.ToLower(strings.TrimSpace(req.Username))

	if locked, retry := middleware.IsAccountLocked(r.Context(), account); locked {
		utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
			Success: false,
			Message: "Too many login attempts, try again later",
			Data:    map[string]int{"retryAfterSeconds": int(retry.Seconds())},
		})
		return
	}

	admin, err := models.GetAdminByUsername(database.DB.WithContext(r.Context()), strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, r, err)
		return
	}
	if err != nil || !admin.ValidatePassword(req.Password) {
		middleware.RecordFailedLogin(r.Context(), account)
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
			Success: false,
			Message: "Invalid username or password",
		})
		return
	}
	middleware.ResetFailedLogin(r.Context(), account)

	token, err := utils.GenerateJWT(uint(admin.ID), admin.Username, utils.RoleAdmin)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Logged in",
		Data: map[string]interface{}{
			"token": token,
			"admin": admin,
		},
	})
}
