package models

import "time"

// Ledger accounts on the user row.
const (
	AccountBalance       = "balance"
	AccountProfitBalance = "profit_balance"
)

// Ledger entry reasons.
const (
	ReasonAdminCredit = "admin_credit"
	ReasonAdminDebit  = "admin_debit"
	ReasonTaskProfit  = "task_profit"
	ReasonTaskPenalty = "task_penalty"
)

// LedgerEntry is an append-only record of one signed balance adjustment.
type LedgerEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"userId"`
	Account      string    `gorm:"size:20;not null" json:"account"`
	Amount       float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	BalanceAfter float64   `gorm:"column:balance_after;type:decimal(15,2);not null" json:"balanceAfter"`
	Reason       string    `gorm:"size:30;not null;index" json:"reason"`
	UserTaskID   *uint     `gorm:"column:user_task_id;index" json:"userTaskId,omitempty"`
	Reference    string    `gorm:"size:64;not null;uniqueIndex" json:"reference"`
	Message      *string   `gorm:"type:text" json:"message,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
