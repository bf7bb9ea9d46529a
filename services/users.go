package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Kazutech1/cucker-sub000/logger"
	"github.com/Kazutech1/cucker-sub000/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// User statuses accepted by UpdateUser.
var userStatuses = map[string]string{
	"active":   "Active",
	"inactive": "Inactive",
	"suspend":  "Suspend",
}

// UserService is the admin view of users and their balances.
type UserService struct {
	db     *gorm.DB
	ledger *Ledger
	log    *logger.Logger
}

func NewUserService(db *gorm.DB, ledger *Ledger) *UserService {
	return &UserService{db: db, ledger: ledger, log: logger.L.Named("users")}
}

type UserFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

func (s *UserService) List(ctx context.Context, f UserFilter) ([]models.User, Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > maxPageSize {
		f.Limit = defaultPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR number LIKE ?", like, like)
	}
	query = query.Session(&gorm.Session{})

	page := Pagination{Page: f.Page, Limit: f.Limit}
	if err := query.Count(&page.Total).Error; err != nil {
		return nil, page, err
	}
	users := make([]models.User, 0, f.Limit)
	err := query.Order("id DESC").Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&users).Error
	return users, page, err
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("user %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// NewUserInput registers a user on the admin's behalf.
type NewUserInput struct {
	Name      string
	Number    string
	Password  string
	TaskLimit int
}

func (s *UserService) Create(ctx context.Context, in NewUserInput) (*models.User, error) {
	name, number := strings.TrimSpace(in.Name), strings.TrimSpace(in.Number)
	if name == "" || number == "" {
		return nil, validationf("name and number are required")
	}
	if len(in.Password) < 6 {
		return nil, validationf("password must be at least 6 characters")
	}
	if in.TaskLimit < 0 {
		return nil, validationf("taskLimit must not be negative")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("number = ?", number).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, conflictf("number %s is already registered", number)
	}

	user := models.User{Name: name, Number: number, TaskLimit: in.TaskLimit, Status: "Active"}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UserUpdate holds the admin-editable user fields. Nil means unchanged.
type UserUpdate struct {
	Name      *string
	Status    *string
	TaskLimit *int
}

func (s *UserService) Update(ctx context.Context, id uint, in UserUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validationf("name must not be empty")
		}
		updates["name"] = name
	}
	if in.Status != nil {
		st, ok := userStatuses[strings.ToLower(strings.TrimSpace(*in.Status))]
		if !ok {
			return nil, validationf("status must be Active, Inactive or Suspend")
		}
		updates["status"] = st
	}
	if in.TaskLimit != nil {
		if *in.TaskLimit < 0 {
			return nil, validationf("taskLimit must not be negative")
		}
		updates["task_limit"] = *in.TaskLimit
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// BalanceInput is an admin credit ("add") or debit ("less").
type BalanceInput struct {
	UserID  uint
	Amount  float64
	Type    string
	Account string
	Message string
}

// AdjustBalance applies an admin credit or debit through the ledger. A debit
// larger than the account balance fails with ErrInsufficientBalance.
func (s *UserService) AdjustBalance(ctx context.Context, in BalanceInput) (*models.LedgerEntry, error) {
	amount := money(in.Amount)
	if !amount.IsPositive() {
		return nil, validationf("amount must be greater than 0")
	}
	account := in.Account
	if account == "" {
		account = models.AccountBalance
	}
	if _, ok := accountColumn(account); !ok {
		return nil, validationf("account must be balance or profit_balance")
	}

	adj := Adjustment{UserID: in.UserID, Account: account, Message: in.Message}
	switch strings.ToLower(in.Type) {
	case "add":
		adj.Amount = amount
		adj.Reason = models.ReasonAdminCredit
	case "less":
		adj.Amount = amount.Neg()
		adj.Reason = models.ReasonAdminDebit
	default:
		return nil, validationf("type must be add or less")
	}

	var entry *models.LedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUser(tx, in.UserID); err != nil {
			return err
		}
		e, err := s.ledger.Apply(tx, adj)
		entry = e
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("balance adjusted",
		zap.Uint("user_id", in.UserID),
		zap.String("account", account),
		zap.String("reason", adj.Reason),
		zap.String("amount", adj.Amount.String()),
		zap.String("reference", entry.Reference),
	)
	return entry, nil
}

// LedgerEntries pages through a user's ledger, newest first.
func (s *UserService) LedgerEntries(ctx context.Context, userID uint, page, limit int) ([]models.LedgerEntry, Pagination, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, Pagination{}, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	query := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	p := Pagination{Page: page, Limit: limit}
	if err := query.Count(&p.Total).Error; err != nil {
		return nil, p, err
	}
	entries := make([]models.LedgerEntry, 0, limit)
	err := query.Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&entries).Error
	return entries, p, err
}
