package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskTemplate is the catalog entry user tasks are assigned from. A non-nil
// DepositAmount marks a combo template.
type TaskTemplate struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AppName       string    `gorm:"column:app_name;size:100;not null" json:"appName"`
	ReviewText    string    `gorm:"column:review_text;type:text" json:"reviewText"`
	Profit        float64   `gorm:"type:decimal(15,2);not null;default:0" json:"profit"`
	DepositAmount *float64  `gorm:"column:deposit_amount;type:decimal(15,2)" json:"depositAmount"`
	AppImage      string    `gorm:"column:app_image;size:500" json:"appImage"`
	IsActive      bool      `gorm:"column:is_active;not null" json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (TaskTemplate) TableName() string {
	return "task_templates"
}

func (t TaskTemplate) IsCombo() bool {
	return t.DepositAmount != nil
}

// UserTask is one assigned task slot of a user's batch. TaskNumber is unique
// per (UserID, Batch); each bulk assignment opens a new batch.
type UserTask struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index:idx_user_tasks_user_number" json:"userId"`
	TemplateID    *uint          `gorm:"column:template_id;index" json:"productId"`
	Batch         int            `gorm:"not null;default:1;index:idx_user_tasks_user_number" json:"batch"`
	TaskNumber    int            `gorm:"column:task_number;not null;index:idx_user_tasks_user_number" json:"taskNumber"`
	Status        TaskStatus     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	IsForced      bool           `gorm:"column:is_forced;not null;default:false" json:"isForced"`
	DepositAmount *float64       `gorm:"column:deposit_amount;type:decimal(15,2)" json:"depositAmount"`
	CustomProfit  *float64       `gorm:"column:custom_profit;type:decimal(15,2)" json:"customProfit"`
	ProfitAmount  float64        `gorm:"column:profit_amount;type:decimal(15,2);not null;default:0" json:"profitAmount"`
	CreatedAt     time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	CompletedAt   *time.Time     `gorm:"column:completed_at" json:"completedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Template *TaskTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
}

func (UserTask) TableName() string {
	return "user_tasks"
}
