package services

import (
	"context"
	"errors"
	"sort"

	"github.com/Kazutech1/cucker-sub000/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxBatchSize caps the number of tasks one assignment may create.
const MaxBatchSize = 500

// ForcedTask overrides one slot of a batch with a combo task.
type ForcedTask struct {
	TaskNumber    int
	DepositAmount float64
	CustomProfit  float64
}

// AssignInput describes a bulk assignment. TotalProfit is split evenly, to
// the cent, across the slots that are not forced.
type AssignInput struct {
	UserID      uint
	TaskCount   int
	TotalProfit float64
	ForcedTasks []ForcedTask
	TemplateIDs []uint
}

func (in AssignInput) validate() error {
	if in.TaskCount < 1 {
		return validationf("taskCount must be at least 1")
	}
	if in.TaskCount > MaxBatchSize {
		return validationf("taskCount must be at most %d", MaxBatchSize)
	}
	if in.TotalProfit < 0 {
		return validationf("totalProfit must not be negative")
	}
	seen := make(map[int]bool, len(in.ForcedTasks))
	for _, f := range in.ForcedTasks {
		if f.TaskNumber < 1 || f.TaskNumber > in.TaskCount {
			return validationf("forced taskNumber %d is outside 1..%d", f.TaskNumber, in.TaskCount)
		}
		if seen[f.TaskNumber] {
			return validationf("forced taskNumber %d is duplicated", f.TaskNumber)
		}
		seen[f.TaskNumber] = true
		if f.DepositAmount <= 0 {
			return validationf("forced task %d needs a positive depositAmount", f.TaskNumber)
		}
		if f.CustomProfit < 0 {
			return validationf("forced task %d has a negative customProfit", f.TaskNumber)
		}
	}
	if len(in.ForcedTasks) == in.TaskCount && money(in.TotalProfit).IsPositive() {
		return validationf("totalProfit cannot be distributed: every slot is forced")
	}
	return nil
}

// Assign creates a new batch of TaskCount tasks for the user. Pending tasks
// of earlier batches are cancelled. Either the whole batch is written or
// nothing is.
func (s *TaskService) Assign(ctx context.Context, in AssignInput) ([]models.UserTask, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	forced := make(map[int]ForcedTask, len(in.ForcedTasks))
	for _, f := range in.ForcedTasks {
		forced[f.TaskNumber] = f
	}
	shares := splitEvenly(money(in.TotalProfit), in.TaskCount-len(forced))

	var (
		rows       []models.UserTask
		superseded int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUser(tx, in.UserID); err != nil {
			return err
		}

		picker, err := newTemplatePicker(tx, in.TemplateIDs)
		if err != nil {
			return err
		}

		batch, err := currentBatch(tx, in.UserID)
		if err != nil {
			return err
		}

		res := tx.Model(&models.UserTask{}).
			Where("user_id = ? AND status = ?", in.UserID, models.TaskPending).
			Update("status", models.TaskCancelled)
		if res.Error != nil {
			return res.Error
		}
		superseded = res.RowsAffected

		rows = make([]models.UserTask, 0, in.TaskCount)
		share := 0
		for n := 1; n <= in.TaskCount; n++ {
			row := models.UserTask{
				UserID:     in.UserID,
				Batch:      batch + 1,
				TaskNumber: n,
				Status:     models.TaskPending,
			}
			if f, ok := forced[n]; ok {
				row.IsForced = true
				row.DepositAmount = floatPtr(money(f.DepositAmount))
				row.CustomProfit = floatPtr(money(f.CustomProfit))
				row.ProfitAmount = toFloat(money(f.CustomProfit))
				row.TemplateID = picker.next(true)
			} else {
				row.ProfitAmount = toFloat(shares[share])
				share++
				row.TemplateID = picker.next(false)
			}
			rows = append(rows, row)
		}
		return tx.CreateInBatches(&rows, 100).Error
	})
	if err != nil {
		return nil, err
	}

	tasksAssigned.WithLabelValues("normal").Add(float64(in.TaskCount - len(forced)))
	tasksAssigned.WithLabelValues("combo").Add(float64(len(forced)))
	if superseded > 0 {
		taskSettlements.WithLabelValues(string(models.TaskCancelled), sourceReassign).Add(float64(superseded))
	}
	s.log.Info("tasks assigned",
		zap.Uint("user_id", in.UserID),
		zap.Int("count", in.TaskCount),
		zap.Int("forced", len(forced)),
		zap.Int64("superseded", superseded),
		zap.String("profit_total", distributionTotal(rows).String()),
	)
	return rows, nil
}

// CustomTaskInput creates one ad-hoc task in the user's current batch.
type CustomTaskInput struct {
	UserID        uint
	TemplateID    *uint
	ProfitAmount  float64
	IsForced      bool
	DepositAmount *float64
	CustomProfit  *float64
}

// CreateCustomTask appends a task numbered after the highest task number in
// the user's current batch.
func (s *TaskService) CreateCustomTask(ctx context.Context, in CustomTaskInput) (*models.UserTask, error) {
	row := models.UserTask{UserID: in.UserID, Status: models.TaskPending, TemplateID: in.TemplateID}
	if in.IsForced {
		if in.DepositAmount == nil || in.CustomProfit == nil {
			return nil, validationf("depositAmount and customProfit are required for a combo task")
		}
		if *in.DepositAmount <= 0 {
			return nil, validationf("depositAmount must be positive")
		}
		if *in.CustomProfit < 0 {
			return nil, validationf("customProfit must not be negative")
		}
		row.IsForced = true
		row.DepositAmount = floatPtr(money(*in.DepositAmount))
		row.CustomProfit = floatPtr(money(*in.CustomProfit))
		row.ProfitAmount = toFloat(money(*in.CustomProfit))
	} else {
		if in.DepositAmount != nil || in.CustomProfit != nil {
			return nil, validationf("depositAmount and customProfit are only allowed on combo tasks")
		}
		if in.ProfitAmount < 0 {
			return nil, validationf("profitAmount must not be negative")
		}
		row.ProfitAmount = toFloat(money(in.ProfitAmount))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUser(tx, in.UserID); err != nil {
			return err
		}
		if in.TemplateID != nil {
			var count int64
			if err := tx.Model(&models.TaskTemplate{}).Where("id = ?", *in.TemplateID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return notFoundf("template %d", *in.TemplateID)
			}
		}

		batch, err := currentBatch(tx, in.UserID)
		if err != nil {
			return err
		}
		if batch == 0 {
			batch = 1
		}
		var maxNumber int
		if err := tx.Model(&models.UserTask{}).
			Where("user_id = ? AND batch = ?", in.UserID, batch).
			Select("COALESCE(MAX(task_number), 0)").
			Scan(&maxNumber).Error; err != nil {
			return err
		}
		row.Batch = batch
		row.TaskNumber = maxNumber + 1
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}

	kind := "normal"
	if row.IsForced {
		kind = "combo"
	}
	tasksAssigned.WithLabelValues(kind).Inc()
	return s.reload(ctx, row.ID)
}

// ForcedInput sets the combo override of a task number in the user's
// current batch.
type ForcedInput struct {
	UserID        uint
	TaskNumber    int
	DepositAmount float64
	CustomProfit  float64
}

// SetForced resolves the task by number and applies the override through
// EditUserTask.
func (s *TaskService) SetForced(ctx context.Context, in ForcedInput) (*models.UserTask, error) {
	if in.TaskNumber < 1 {
		return nil, validationf("taskNumber must be at least 1")
	}

	db := s.db.WithContext(ctx)
	batch, err := currentBatch(db, in.UserID)
	if err != nil {
		return nil, err
	}
	var task models.UserTask
	err = db.Where("user_id = ? AND batch = ? AND task_number = ?", in.UserID, batch, in.TaskNumber).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("task number %d for user %d", in.TaskNumber, in.UserID)
	}
	if err != nil {
		return nil, err
	}

	makeForced := true
	return s.EditUserTask(ctx, task.ID, EditInput{
		MakeForced:    &makeForced,
		DepositAmount: &in.DepositAmount,
		CustomProfit:  &in.CustomProfit,
	})
}

// currentBatch returns the highest batch number of the user's live tasks, or 0.
func currentBatch(tx *gorm.DB, userID uint) (int, error) {
	var batch int
	err := tx.Model(&models.UserTask{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(batch), 0)").
		Scan(&batch).Error
	return batch, err
}

// templatePicker hands out template ids round-robin by ascending id. Combo
// slots draw from combo templates when there are any.
type templatePicker struct {
	normal, combo []uint
	ni, ci        int
}

func newTemplatePicker(tx *gorm.DB, ids []uint) (*templatePicker, error) {
	var templates []models.TaskTemplate
	q := tx.Model(&models.TaskTemplate{})
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	} else {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("id ASC").Find(&templates).Error; err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		found := make(map[uint]bool, len(templates))
		for _, t := range templates {
			found[t.ID] = true
		}
		missing := make([]int, 0)
		for _, id := range ids {
			if !found[id] {
				missing = append(missing, int(id))
			}
		}
		if len(missing) > 0 {
			sort.Ints(missing)
			return nil, notFoundf("templates %v", missing)
		}
	}

	p := &templatePicker{}
	for _, t := range templates {
		if t.IsCombo() {
			p.combo = append(p.combo, t.ID)
		} else {
			p.normal = append(p.normal, t.ID)
		}
	}
	return p, nil
}

func (p *templatePicker) next(combo bool) *uint {
	pool, idx := p.normal, &p.ni
	if combo && len(p.combo) > 0 {
		pool, idx = p.combo, &p.ci
	} else if len(pool) == 0 {
		pool, idx = p.combo, &p.ci
	}
	if len(pool) == 0 {
		return nil
	}
	id := pool[*idx%len(pool)]
	*idx++
	return &id
}

// distributionTotal sums profit across a batch.
func distributionTotal(rows []models.UserTask) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(money(r.ProfitAmount))
	}
	return total
}
