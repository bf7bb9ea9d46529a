package services

import (
	"errors"

	"github.com/Kazutech1/cucker-sub000/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Adjustment is one signed change to a user's balance account.
type Adjustment struct {
	UserID     uint
	Account    string
	Amount     decimal.Decimal
	Reason     string
	UserTaskID *uint
	Message    string
}

// Ledger applies balance adjustments as atomic in-database increments and
// records every applied adjustment as an append-only entry.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

func accountColumn(account string) (string, bool) {
	switch account {
	case models.AccountBalance:
		return "balance", true
	case models.AccountProfitBalance:
		return "profit_balance", true
	}
	return "", false
}

// Apply must run inside tx. The increment is guarded so the account never
// goes negative; a guarded miss returns ErrInsufficientBalance and nothing
// is written. A zero amount is a no-op and returns a nil entry.
func (l *Ledger) Apply(tx *gorm.DB, adj Adjustment) (*models.LedgerEntry, error) {
	column, ok := accountColumn(adj.Account)
	if !ok {
		return nil, validationf("unknown account %q", adj.Account)
	}
	amount := adj.Amount.Round(2)
	if amount.IsZero() {
		return nil, nil
	}
	delta := amount.InexactFloat64()

	// REAL columns (SQLite) drift off the cent; compare and store rounded.
	next := "ROUND(CAST(" + column + " + ? AS DECIMAL(15,2)), 2)"
	res := tx.Model(&models.User{}).
		Where("id = ?", adj.UserID).
		Where(next+" >= 0", delta).
		Update(column, gorm.Expr(next, delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", adj.UserID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, notFoundf("user %d", adj.UserID)
		}
		return nil, ErrInsufficientBalance
	}

	var user models.User
	if err := tx.Select("id", "balance", "profit_balance").First(&user, adj.UserID).Error; err != nil {
		return nil, err
	}
	after := toFloat(money(user.Balance))
	if column == "profit_balance" {
		after = toFloat(money(user.ProfitBalance))
	}

	entry := models.LedgerEntry{
		UserID:       adj.UserID,
		Account:      adj.Account,
		Amount:       delta,
		BalanceAfter: after,
		Reason:       adj.Reason,
		UserTaskID:   adj.UserTaskID,
		Reference:    generateReference(adj.UserID),
	}
	if adj.Message != "" {
		msg := adj.Message
		entry.Message = &msg
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// lockUser loads the user row FOR UPDATE (a no-op lock on SQLite).
func lockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("user %d", userID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
