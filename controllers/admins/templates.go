package admins

import (
	"net/http"
	"strconv"

	"github.com/Kazutech1/cucker-sub000/middleware"
	"github.com/Kazutech1/cucker-sub000/services"
	"github.com/Kazutech1/cucker-sub000/utils"
)

// TemplateController serves the task catalog.
type TemplateController struct {
	Catalog *services.CatalogService
}

func NewTemplateController(catalog *services.CatalogService) *TemplateController {
	return &TemplateController{Catalog: catalog}
}

type templateRequest struct {
	AppName       string   `json:"appName" validate:"required,not_empty,max=100"`
	ReviewText    string   `json:"reviewText"`
	AppReview     string   `json:"appReview"`
	Profit        float64  `json:"profit" validate:"gte=0"`
	DepositAmount *float64 `json:"depositAmount" validate:"omitempty,gt=0"`
	AppImage      string   `json:"appImage" validate:"max=500"`
	IsActive      *bool    `json:"isActive"`
}

func (req templateRequest) input() services.TemplateInput {
	review := req.ReviewText
	if review == "" {
		review = req.AppReview
	}
	return services.TemplateInput{
		AppName:       req.AppName,
		ReviewText:    review,
		Profit:        req.Profit,
		DepositAmount: req.DepositAmount,
		AppImage:      req.AppImage,
		IsActive:      req.IsActive,
	}
}

func optionalBool(w http.ResponseWriter, r *http.Request, key string) (*bool, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid " + key})
		return nil, false
	}
	return &b, true
}

// GET /api/admin/templates
func (c *TemplateController) List(w http.ResponseWriter, r *http.Request) {
	active, ok := optionalBool(w, r, "active")
	if !ok {
		return
	}
	combo, ok := optionalBool(w, r, "combo")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	templates, p, err := c.Catalog.List(r.Context(), services.TemplateFilter{
		Active: active,
		Combo:  combo,
		Search: r.URL.Query().Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: templates, Pagination: &p})
}

// GET /api/admin/templates/{id}
func (c *TemplateController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tpl, err := c.Catalog.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: tpl})
}

// POST /api/admin/templates
func (c *TemplateController) Create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	tpl, err := c.Catalog.Create(r.Context(), req.input())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Template created", Data: tpl})
}

// PUT /api/admin/templates/{id}
func (c *TemplateController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req templateRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	tpl, err := c.Catalog.Update(r.Context(), id, req.input())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Template updated", Data: tpl})
}

// PATCH /api/admin/templates/{id}/toggle
func (c *TemplateController) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tpl, err := c.Catalog.Toggle(r.Context(), id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Template updated", Data: tpl})
}

// DELETE /api/admin/templates/{id}
func (c *TemplateController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.Catalog.Delete(r.Context(), id); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Template deleted"})
}
