package auth

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
	Number   string `json:"number" validate:"required,not_empty,max=20"`
	Password string `json:"password" validate:"required,min=6"`
}

// POST /api/login
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	number := strings.TrimSpace(req.Number)
	account := "user:" + number

	if locked, retry := middleware.IsAccountLocked(r.Context(), account); locked {
		utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
			Success: false,
			Message: "Too many login attempts, try again later",
			Data:    map[string]int{"retryAfterSeconds": int(retry.Seconds())},
		})
		return
	}

	var user models.User
	err := database.DB.WithContext(r.Context()).Where("number = ?", number).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, r, err)
		return
	}
	if err != nil || !user.ValidatePassword(req.Password) {
		middleware.RecordFailedLogin(r.Context(), account)
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid number or password"})
		return
	}

	// only Active users can log in
	if !strings.EqualFold(user.Status, "active") {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Your account is not active, please contact an admin"})
		return
	}
	middleware.ResetFailedLogin(r.Context(), account)

	token, err := utils.GenerateJWT(user.ID, user.Number, utils.RoleUser)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Logged in",
		Data: map[string]interface{}{
			"token": token,
			"user":  user,
		},
	})
}
