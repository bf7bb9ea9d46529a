package admins

import (
	"net/http"

	"github.com/Kazutech1/cucker-sub000/database"
	"github.com/Kazutech1/cucker-sub000/middleware"
	"github.com/Kazutech1/cucker-sub000/models"
	"github.com/Kazutech1/cucker-sub000/utils"
)

func currentAdmin(w http.ResponseWriter, r *http.Request) (*models.Admin, bool) {
	adminID, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return nil, false
	}
	var admin models.Admin
	if err := database.DB.WithContext(r.Context()).First(&admin, adminID).Error; err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Admin not found"})
		return nil, false
	}
	return &admin, true
}

// GET /api/admin/profile
func GetAdminProfile(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: admin})
}

type updateAdminPasswordRequest struct {
	CurrentPassword      string `json:"currentPassword" validate:"required"`
	NewPassword          string `json:"newPassword" validate:"required,min=8"`
	ConfirmationPassword string `json:"confirmationPassword" validate:"required,eqfield=NewPassword"`
}

// PUT /api/admin/password
func UpdateAdminPassword(w http.ResponseWriter, r *http.Request) {
	var req updateAdminPasswordRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	admin, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	if !admin.ValidatePassword(req.CurrentPassword) {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Current password is incorrect"})
		return
	}

	admin.Password = req.NewPassword
	if err := admin.HashPassword(); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := database.DB.WithContext(r.Context()).Model(admin).Update("password", admin.Password).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Password updated"})
}
