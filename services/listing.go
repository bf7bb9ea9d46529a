package services

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Kazutech1/cucker-sub000/models"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// sortColumns is the allow-list of sortable fields.
var sortColumns = map[string]string{
	"taskNumber":    "task_number",
	"depositAmount": "deposit_amount",
	"profitAmount":  "profit_amount",
	"createdAt":     "created_at",
}

// ListFilter selects user tasks. Nil fields do not filter.
type ListFilter struct {
	UserID     *uint
	Status     *models.TaskStatus
	IsForced   *bool
	TemplateID *uint
	DateFrom   *time.Time
	// DateTo is exclusive.
	DateTo *time.Time
	// CurrentBatch keeps only the user's latest batch. Needs UserID.
	CurrentBatch bool
	Page         int
	Limit        int
	SortBy       string
	SortOrder    string
}

// Pagination is the paging block of list responses.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// ParseListFilter reads the filter from query parameters. Dates accept
// YYYY-MM-DD (dateTo then covers the whole day) or RFC3339.
func ParseListFilter(q url.Values) (ListFilter, error) {
	f := ListFilter{Page: 1, Limit: defaultPageSize, SortBy: "createdAt", SortOrder: "desc"}

	if v := q.Get("userId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return f, validationf("invalid userId %q", v)
		}
		uid := uint(id)
		f.UserID = &uid
	}
	if v := q.Get("status"); v != "" {
		st, ok := models.ParseTaskStatus(v)
		if !ok {
			return f, validationf("unknown status %q", v)
		}
		f.Status = &st
	}
	if v := q.Get("isForced"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, validationf("invalid isForced %q", v)
		}
		f.IsForced = &b
	}
	if v := q.Get("productId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return f, validationf("invalid productId %q", v)
		}
		tid := uint(id)
		f.TemplateID = &tid
	}
	if v := q.Get("dateFrom"); v != "" {
		t, _, err := parseDate(v)
		if err != nil {
			return f, validationf("invalid dateFrom %q", v)
		}
		f.DateFrom = &t
	}
	if v := q.Get("dateTo"); v != "" {
		t, dayOnly, err := parseDate(v)
		if err != nil {
			return f, validationf("invalid dateTo %q", v)
		}
		if dayOnly {
			t = t.AddDate(0, 0, 1)
		} else {
			t = t.Add(time.Nanosecond)
		}
		f.DateTo = &t
	}
	if v := q.Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			return f, validationf("invalid page %q", v)
		}
		f.Page = p
	}
	if v := q.Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return f, validationf("invalid limit %q", v)
		}
		if l > maxPageSize {
			l = maxPageSize
		}
		f.Limit = l
	}
	if v := q.Get("sortBy"); v != "" {
		if _, ok := sortColumns[v]; !ok {
			return f, validationf("cannot sort by %q", v)
		}
		f.SortBy = v
	}
	if v := q.Get("sortOrder"); v != "" {
		switch strings.ToLower(v) {
		case "asc", "desc":
			f.SortOrder = strings.ToLower(v)
		default:
			return f, validationf("sortOrder must be asc or desc")
		}
	}
	return f, nil
}

func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	return t, false, err
}

// List returns one page of matching tasks and the total match count.
func (s *TaskService) List(ctx context.Context, f ListFilter) ([]models.UserTask, Pagination, error) {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		return nil, Pagination{}, validationf("cannot sort by %q", f.SortBy)
	}
	order := "DESC"
	if f.SortOrder == "asc" {
		order = "ASC"
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > maxPageSize {
		f.Limit = defaultPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.UserTask{})
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
		if f.CurrentBatch {
			latest := s.db.Model(&models.UserTask{}).
				Select("COALESCE(MAX(batch), 0)").
				Where("user_id = ?", *f.UserID)
			query = query.Where("batch = (?)", latest)
		}
	}
	if f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}
	if f.IsForced != nil {
		query = query.Where("is_forced = ?", *f.IsForced)
	}
	if f.TemplateID != nil {
		query = query.Where("template_id = ?", *f.TemplateID)
	}
	if f.DateFrom != nil {
		query = query.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		query = query.Where("created_at < ?", *f.DateTo)
	}

	// shareable between the count and the page query
	query = query.Session(&gorm.Session{})

	page := Pagination{Page: f.Page, Limit: f.Limit}
	if err := query.Count(&page.Total).Error; err != nil {
		return nil, page, err
	}

	tasks := make([]models.UserTask, 0, f.Limit)
	err := query.
		Preload("Template").
		Order(column + " " + order).
		Order("id " + order).
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&tasks).Error
	if err != nil {
		return nil, page, err
	}
	return tasks, page, nil
}
