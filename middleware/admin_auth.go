package middleware

import (
	"net/http"

	"github.com/Kazutech1/cucker-sub000/database"
	"github.com/Kazutech1/cucker-sub000/models"
	"github.com/Kazutech1/cucker-sub000/utils"
)

// AdminAuthMiddleware verifies that the request is from an authenticated admin
func AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := authenticate(w, r)
		if !ok {
			return
		}
		if ident.Role != utils.RoleAdmin {
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{
				Success: false,
				Message: "Forbidden: Admin access required",
			})
			return
		}

		// Verify admin exists and is active
		var admin models.Admin
		if err := database.DB.WithContext(r.Context()).First(&admin, ident.ID).Error; err != nil {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
				Success: false,
				Message: "Unauthorized: Admin not found",
			})
			return
		}
		if !admin.IsActive {
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{
				Success: false,
				Message: "Forbidden",
			})
			return
		}

		next.ServeHTTP(w, withIdentity(r, ident))
	})
}
