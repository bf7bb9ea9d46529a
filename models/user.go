package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Name                string     `gorm:"size:100;not null" json:"name"`
	Number              string     `gorm:"size:20;uniqueIndex;not null" json:"number"`
	Password            string     `gorm:"size:255;not null" json:"-"`
	Balance             float64    `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	ProfitBalance       float64    `gorm:"column:profit_balance;type:decimal(15,2);not null;default:0" json:"profitBalance"`
	TaskLimit           int        `gorm:"column:task_limit;not null;default:0" json:"taskLimit"`
	DailyTasksCompleted int        `gorm:"column:daily_tasks_completed;not null;default:0" json:"dailyTasksCompleted"`
	LastTaskReset       *time.Time `gorm:"column:last_task_reset" json:"lastTaskReset,omitempty"`
	Status              string     `gorm:"size:20;not null;default:'Active'" json:"status"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// SetPassword stores a bcrypt hash of the given password.
func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// ValidatePassword checks if the provided password matches the hashed password
func (u *User) ValidatePassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}
