package admins

import (
	"net/http"

	"github.com/Kazutech1/cucker-sub000/utils"
)

// GET /api/admin/dashboard
func (c *TaskController) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Tasks.Stats(r.Context())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: stats})
}
