package services

import (
	"context"
	"errors"
	"time"

	"github.com/Kazutech1/cucker-sub000/logger"
	"github.com/Kazutech1/cucker-sub000/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Settlement sources, used for metrics and logs.
const (
	sourceVerify   = "verify"
	sourceEdit     = "edit"
	sourceSelf     = "self"
	sourceDelete   = "delete"
	sourceReassign = "reassign"
)

// TaskService owns the user task lifecycle: assignment, edits, verification
// of combo tasks and self-completion of normal ones.
type TaskService struct {
	db          *gorm.DB
	ledger      *Ledger
	penaltyRate decimal.Decimal
	log         *logger.Logger
	now         func() time.Time
}

// NewTaskService builds the service. penaltyRate is the share of a combo
// task's profit deducted from profitBalance when it is rejected.
func NewTaskService(db *gorm.DB, ledger *Ledger, penaltyRate float64) *TaskService {
	return &TaskService{
		db:          db,
		ledger:      ledger,
		penaltyRate: decimal.NewFromFloat(penaltyRate),
		log:         logger.L.Named("tasks"),
		now:         time.Now,
	}
}

// RejectPenalty is the amount deducted when a task with the given profit is
// rejected, before clamping to the user's available profit balance.
func (s *TaskService) RejectPenalty(profitAmount float64) float64 {
	return toFloat(money(profitAmount).Mul(s.penaltyRate))
}

// loadTaskLocked locks the owning user first and then the task, so every
// writer takes locks in the same order.
func (s *TaskService) loadTaskLocked(tx *gorm.DB, taskID uint) (*models.UserTask, *models.User, error) {
	var probe models.UserTask
	err := tx.Select("id", "user_id").First(&probe, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, notFoundf("user task %d", taskID)
	}
	if err != nil {
		return nil, nil, err
	}

	user, err := lockUser(tx, probe.UserID)
	if err != nil {
		return nil, nil, err
	}

	var task models.UserTask
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFoundf("user task %d", taskID)
		}
		return nil, nil, err
	}
	return &task, user, nil
}

// settle moves a pending task into a terminal status and applies its balance
// effect. The status write is conditional on the row still being pending, so
// a repeated call affects no row and returns ErrConflict without touching
// any balance.
func (s *TaskService) settle(tx *gorm.DB, task *models.UserTask, user *models.User, next models.TaskStatus) error {
	if !task.Status.CanTransition(next) {
		return conflictf("task %d is %s and cannot become %s", task.ID, task.Status, next)
	}

	updates := map[string]interface{}{"status": next}
	var completedAt *time.Time
	if next == models.TaskCompleted {
		now := s.now()
		completedAt = &now
		updates["completed_at"] = now
	}
	res := tx.Model(&models.UserTask{}).
		Where("id = ? AND status = ?", task.ID, models.TaskPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflictf("task %d is no longer pending", task.ID)
	}
	task.Status = next
	task.CompletedAt = completedAt

	taskID := task.ID
	switch next {
	case models.TaskCompleted:
		_, err := s.ledger.Apply(tx, Adjustment{
			UserID:     task.UserID,
			Account:    models.AccountProfitBalance,
			Amount:     money(task.ProfitAmount),
			Reason:     models.ReasonTaskProfit,
			UserTaskID: &taskID,
			Message:    "task profit",
		})
		return err
	case models.TaskRejected:
		penalty := money(s.RejectPenalty(task.ProfitAmount))
		if available := money(user.ProfitBalance); penalty.GreaterThan(available) {
			penalty = available
		}
		_, err := s.ledger.Apply(tx, Adjustment{
			UserID:     task.UserID,
			Account:    models.AccountProfitBalance,
			Amount:     penalty.Neg(),
			Reason:     models.ReasonTaskPenalty,
			UserTaskID: &taskID,
			Message:    "combo task rejected",
		})
		return err
	}
	return nil
}

// Verify approves or rejects a pending combo task.
func (s *TaskService) Verify(ctx context.Context, taskID uint, approve bool) (*models.UserTask, error) {
	next := models.TaskRejected
	if approve {
		next = models.TaskCompleted
	}

	var task *models.UserTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, user, err := s.loadTaskLocked(tx, taskID)
		if err != nil {
			return err
		}
		if !t.IsForced {
			return validationf("task %d is a normal task and needs no verification", taskID)
		}
		task = t
		return s.settle(tx, t, user, next)
	})
	if err != nil {
		return nil, err
	}

	taskSettlements.WithLabelValues(string(next), sourceVerify).Inc()
	s.log.Info("combo task verified",
		zap.Uint("task_id", task.ID),
		zap.Uint("user_id", task.UserID),
		zap.String("status", string(task.Status)),
	)
	return s.reload(ctx, task.ID)
}

// CompleteOwnTask lets a user finish one of their normal pending tasks.
// It enforces the user's daily task limit (0 means unlimited).
func (s *TaskService) CompleteOwnTask(ctx context.Context, userID, taskID uint) (*models.UserTask, error) {
	var task *models.UserTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, user, err := s.loadTaskLocked(tx, taskID)
		if err != nil {
			return err
		}
		if t.UserID != userID {
			return notFoundf("user task %d", taskID)
		}
		if t.IsForced {
			return conflictf("task %d requires deposit verification", taskID)
		}
		if t.Status != models.TaskPending {
			return conflictf("task %d is already %s", taskID, t.Status)
		}

		now := s.now()
		done := user.DailyTasksCompleted
		if user.LastTaskReset == nil || !sameDay(*user.LastTaskReset, now) {
			done = 0
		}
		if user.TaskLimit > 0 && done >= user.TaskLimit {
			return conflictf("daily task limit of %d reached", user.TaskLimit)
		}

		if err := s.settle(tx, t, user, models.TaskCompleted); err != nil {
			return err
		}
		task = t
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"daily_tasks_completed": done + 1,
			"last_task_reset":       now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	taskSettlements.WithLabelValues(string(models.TaskCompleted), sourceSelf).Inc()
	return s.reload(ctx, task.ID)
}

// EditInput carries the optional fields of a task edit. Nil means unchanged.
type EditInput struct {
	Status        *string
	ProfitAmount  *float64
	MakeForced    *bool
	DepositAmount *float64
	CustomProfit  *float64
}

// EditUserTask is the single operation that rewrites a task's profit,
// converts it between normal and combo, or changes its status. Terminal
// tasks are immutable.
func (s *TaskService) EditUserTask(ctx context.Context, taskID uint, in EditInput) (*models.UserTask, error) {
	var next models.TaskStatus
	if in.Status != nil {
		st, ok := models.ParseTaskStatus(*in.Status)
		if !ok {
			return nil, validationf("unknown status %q", *in.Status)
		}
		next = st
	}
	if in.ProfitAmount != nil && *in.ProfitAmount < 0 {
		return nil, validationf("profitAmount must not be negative")
	}

	var settled bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, user, err := s.loadTaskLocked(tx, taskID)
		if err != nil {
			return err
		}
		if task.Status.IsTerminal() {
			return conflictf("task %d is %s and can no longer be edited", taskID, task.Status)
		}

		updates, err := editUpdates(task, in)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(task).Updates(updates).Error; err != nil {
				return err
			}
			applyEdit(task, updates)
		}

		if next != "" && next != models.TaskPending {
			settled = true
			return s.settle(tx, task, user, next)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if settled {
		taskSettlements.WithLabelValues(string(next), sourceEdit).Inc()
	}
	return s.reload(ctx, taskID)
}

// editUpdates validates in against task and returns the column updates.
// Converting to combo requires depositAmount and customProfit together, and
// customProfit becomes the task's profitAmount.
func editUpdates(task *models.UserTask, in EditInput) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	forced := task.IsForced
	if in.MakeForced != nil {
		forced = *in.MakeForced
	}

	switch {
	case in.MakeForced != nil && *in.MakeForced:
		if in.DepositAmount == nil || in.CustomProfit == nil {
			return nil, validationf("depositAmount and customProfit are required for a combo task")
		}
	case in.MakeForced != nil && !*in.MakeForced:
		if in.DepositAmount != nil || in.CustomProfit != nil {
			return nil, validationf("depositAmount and customProfit are only allowed on combo tasks")
		}
		updates["is_forced"] = false
		updates["deposit_amount"] = nil
		updates["custom_profit"] = nil
	default:
		if !forced && (in.DepositAmount != nil || in.CustomProfit != nil) {
			return nil, validationf("set makeForced to convert a normal task into a combo task")
		}
	}

	if forced {
		updates["is_forced"] = true
		if in.DepositAmount != nil {
			if *in.DepositAmount <= 0 {
				return nil, validationf("depositAmount must be positive")
			}
			updates["deposit_amount"] = toFloat(money(*in.DepositAmount))
		}
		if in.CustomProfit != nil {
			if *in.CustomProfit < 0 {
				return nil, validationf("customProfit must not be negative")
			}
			p := toFloat(money(*in.CustomProfit))
			updates["custom_profit"] = p
			updates["profit_amount"] = p
		} else if in.ProfitAmount != nil {
			p := toFloat(money(*in.ProfitAmount))
			updates["custom_profit"] = p
			updates["profit_amount"] = p
		}
		if !task.IsForced {
			return updates, nil
		}
		if _, ok := updates["deposit_amount"]; !ok && task.DepositAmount == nil {
			return nil, validationf("combo task %d has no depositAmount", task.ID)
		}
		return updates, nil
	}

	if in.ProfitAmount != nil {
		updates["profit_amount"] = toFloat(money(*in.ProfitAmount))
	}
	return updates, nil
}

func applyEdit(task *models.UserTask, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "is_forced":
			task.IsForced = v.(bool)
		case "profit_amount":
			task.ProfitAmount = v.(float64)
		case "deposit_amount":
			if f, ok := v.(float64); ok {
				task.DepositAmount = &f
			} else {
				task.DepositAmount = nil
			}
		case "custom_profit":
			if f, ok := v.(float64); ok {
				task.CustomProfit = &f
			} else {
				task.CustomProfit = nil
			}
		}
	}
}

// DeleteUserTask soft-deletes a task. A pending task is cancelled first;
// settled tasks keep their status.
func (s *TaskService) DeleteUserTask(ctx context.Context, taskID uint) error {
	var cancelled bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, user, err := s.loadTaskLocked(tx, taskID)
		if err != nil {
			return err
		}
		if task.Status == models.TaskPending {
			if err := s.settle(tx, task, user, models.TaskCancelled); err != nil {
				return err
			}
			cancelled = true
		}
		return tx.Delete(&models.UserTask{}, task.ID).Error
	})
	if err != nil {
		return err
	}
	if cancelled {
		taskSettlements.WithLabelValues(string(models.TaskCancelled), sourceDelete).Inc()
	}
	return nil
}

// Get returns a task with its template.
func (s *TaskService) Get(ctx context.Context, taskID uint) (*models.UserTask, error) {
	return s.reload(ctx, taskID)
}

func (s *TaskService) reload(ctx context.Context, taskID uint) (*models.UserTask, error) {
	var task models.UserTask
	err := s.db.WithContext(ctx).Preload("Template").First(&task, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("user task %d", taskID)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// sameDay compares calendar days in the server's local time zone, whatever
// location the driver returned the stored time in.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(time.Local).Date()
	by, bm, bd := b.In(time.Local).Date()
	return ay == by && am == bm && ad == bd
}
