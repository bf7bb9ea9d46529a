package auth

import (
	"net/http"

	"github.com/Kazutech1/cucker-sub000/utils"
)

// LogoutHandler revokes the access token that authenticated the request.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	jti, exp, ok := utils.GetTokenID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Logged out"})
		return
	}
	if err := utils.RevokeJTI(r.Context(), jti, exp); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Logged out"})
}
