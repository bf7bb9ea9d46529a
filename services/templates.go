package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Kazutech1/cucker-sub000/models"

	"gorm.io/gorm"
)

// CatalogService manages task templates.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// TemplateInput is the writable part of a template. A nil IsActive keeps
// the current value (true on create).
type TemplateInput struct {
	AppName       string
	ReviewText    string
	Profit        float64
	DepositAmount *float64
	AppImage      string
	IsActive      *bool
}

func (in TemplateInput) validate() error {
	if strings.TrimSpace(in.AppName) == "" {
		return validationf("appName is required")
	}
	if in.Profit < 0 {
		return validationf("profit must not be negative")
	}
	if in.DepositAmount != nil && *in.DepositAmount <= 0 {
		return validationf("depositAmount must be positive or omitted")
	}
	return nil
}

// TemplateFilter narrows the catalog listing.
type TemplateFilter struct {
	Active *bool
	Combo  *bool
	Search string
	Page   int
	Limit  int
}

func (c *CatalogService) List(ctx context.Context, f TemplateFilter) ([]models.TaskTemplate, Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > maxPageSize {
		f.Limit = defaultPageSize
	}

	query := c.db.WithContext(ctx).Model(&models.TaskTemplate{})
	if f.Active != nil {
		query = query.Where("is_active = ?", *f.Active)
	}
	if f.Combo != nil {
		if *f.Combo {
			query = query.Where("deposit_amount IS NOT NULL")
		} else {
			query = query.Where("deposit_amount IS NULL")
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		query = query.Where("LOWER(app_name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	query = query.Session(&gorm.Session{})

	page := Pagination{Page: f.Page, Limit: f.Limit}
	if err := query.Count(&page.Total).Error; err != nil {
		return nil, page, err
	}
	templates := make([]models.TaskTemplate, 0, f.Limit)
	err := query.Order("id DESC").Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&templates).Error
	return templates, page, err
}

func (c *CatalogService) Get(ctx context.Context, id uint) (*models.TaskTemplate, error) {
	var tpl models.TaskTemplate
	err := c.db.WithContext(ctx).First(&tpl, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("template %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (c *CatalogService) Create(ctx context.Context, in TemplateInput) (*models.TaskTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	tpl := models.TaskTemplate{
		AppName:       strings.TrimSpace(in.AppName),
		ReviewText:    in.ReviewText,
		Profit:        toFloat(money(in.Profit)),
		DepositAmount: roundedPtr(in.DepositAmount),
		AppImage:      in.AppImage,
		IsActive:      in.IsActive == nil || *in.IsActive,
	}
	if err := c.db.WithContext(ctx).Create(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (c *CatalogService) Update(ctx context.Context, id uint, in TemplateInput) (*models.TaskTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	tpl, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl.AppName = strings.TrimSpace(in.AppName)
	tpl.ReviewText = in.ReviewText
	tpl.Profit = toFloat(money(in.Profit))
	tpl.DepositAmount = roundedPtr(in.DepositAmount)
	tpl.AppImage = in.AppImage
	if in.IsActive != nil {
		tpl.IsActive = *in.IsActive
	}
	if err := c.db.WithContext(ctx).Save(tpl).Error; err != nil {
		return nil, err
	}
	return tpl, nil
}

// Toggle flips IsActive. Inactive templates are skipped by assignment.
func (c *CatalogService) Toggle(ctx context.Context, id uint) (*models.TaskTemplate, error) {
	tpl, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl.IsActive = !tpl.IsActive
	if err := c.db.WithContext(ctx).Model(tpl).Update("is_active", tpl.IsActive).Error; err != nil {
		return nil, err
	}
	return tpl, nil
}

// Delete removes a template. Tasks already assigned from it keep their
// amounts and lose the template reference.
func (c *CatalogService) Delete(ctx context.Context, id uint) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.TaskTemplate{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFoundf("template %d", id)
		}
		return tx.Model(&models.UserTask{}).Unscoped().
			Where("template_id = ?", id).
			Update("template_id", nil).Error
	})
}

func roundedPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return floatPtr(money(*v))
}
