package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kazutech1/cucker-sub000/database"
	"github.com/Kazutech1/cucker-sub000/models"
	"github.com/Kazutech1/cucker-sub000/utils"

	"github.com/golang-jwt/jwt/v5"
)

func withIdentity(r *http.Request, ident *utils.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), utils.UserIDKey, ident.ID)
	ctx = context.WithValue(ctx, utils.UserRoleKey, ident.Role)
	ctx = context.WithValue(ctx, utils.TokenIDKey, ident.TokenID)
	ctx = context.WithValue(ctx, utils.TokenExpKey, ident.ExpiresAt)
	return r.WithContext(ctx)
}

// authenticate validates the bearer token and writes the 401 itself on failure.
func authenticate(w http.ResponseWriter, r *http.Request) (*utils.Identity, bool) {
	tokenStr, ok := utils.BearerToken(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized: No token provided"})
		return nil, false
	}
	ident, err := utils.ValidateAccessToken(r.Context(), tokenStr)
	if err != nil {
		msg := "Unauthorized: Invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "Session expired, please log in again"
		}
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: msg})
		return nil, false
	}
	return ident, true
}

// AuthMiddleware admits end users. Admin tokens are refused on user routes.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := authenticate(w, r)
		if !ok {
			return
		}
		if ident.Role != utils.RoleUser {
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Access denied"})
			return
		}

		var user models.User
		if err := database.DB.WithContext(r.Context()).Select("id", "status").First(&user, ident.ID).Error; err != nil {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized: User not found"})
			return
		}
		if user.Status != "Active" {
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Account is not active"})
			return
		}
		next.ServeHTTP(w, withIdentity(r, ident))
	})
}
