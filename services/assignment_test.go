package services

import (
	"context"
	"testing"

	"github.com/Kazutech1/cucker-sub000/models"
	"github.com/Kazutech1/cucker-sub000/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*TaskService, *gorm.DB) {
	t.Helper()
	db := testutil.MustDB(t)
	return NewTaskService(db, NewLedger(), 1.0), db
}

func countTasks(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.UserTask{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestAssign_FiveTasksWithOneForced(t *testing.T) {
	svc, db := newTestService(t)
	user := testutil.SeedUser(t, db, "0811", 100)
	testutil.SeedTemplate(t, db, "Shopee", nil)
	deposit := 50.0
	combo := testutil.SeedTemplate(t, db, "Lazada", &deposit)

	rows, err := svc.Assign(context.Background(), AssignInput{
		UserID:      user.ID,
		TaskCount:   5,
		TotalProfit: 50,
		ForcedTasks: []ForcedTask{{TaskNumber: 3, DepositAmount: 20, CustomProfit: 15}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	require.Equal(t, int64(5), countTasks(t, db, user.ID))

	for i, r := range rows {
		require.Equal(t, i+1, r.TaskNumber)
		require.Equal(t, 1, r.Batch)
		require.Equal(t, models.TaskPending, r.Status)
		if r.TaskNumber == 3 {
			require.True(t, r.IsForced)
			require.NotNil(t, r.DepositAmount)
			require.Equal(t, 20.0, *r.DepositAmount)
			require.Equal(t, 15.0, r.ProfitAmount)
			require.Equal(t, combo.ID, *r.TemplateID)
			continue
		}
		require.False(t, r.IsForced)
		require.Nil(t, r.DepositAmount)
		require.Equal(t, 12.5, r.ProfitAmount)
	}
	require.Equal(t, "65", distributionTotal(rows).String())
}

func TestAssign_ConservesProfitWithRemainder(t *testing.T) {
	svc, db := newTestService(t)
	user := testutil.SeedUser(t, db, "0812", 0)

	rows, err := svc.Assign(context.Background(), AssignInput{
		UserID:      user.ID,
		TaskCount:   7,
		TotalProfit: 100,
		ForcedTasks: []ForcedTask{
			{TaskNumber: 2, DepositAmount: 10, CustomProfit: 3.33},
			{TaskNumber: 7, DepositAmount: 10, CustomProfit: 1.01},
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 7)
	require.Equal(t, "104.34", distributionTotal(rows).String())

	var stored []models.UserTask
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&stored).Error)
	require.Equal(t, "104.34", distributionTotal(stored).String())
}

func TestAssign_DuplicateForcedNumberWritesNothing(t *testing.T) {
	svc, db := newTestService(t)
	user := testutil.SeedUser(t, db, "0813", 0)

	_, err := svc.Assign(context.Background(), AssignInput{
		UserID:      user.ID,
		TaskCount:   5,
		TotalProfit: 50,
		ForcedTasks: []ForcedTask{
			{TaskNumber: 2, DepositAmount: 10, CustomProfit: 1},
			{TaskNumber: 2, DepositAmount: 20, CustomProfit: 2},
		},
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, countTasks(t, db, user.ID))
}

func TestAssign_ValidationErrors(t *testing.T) {
	svc, db := newTestService(t)
	user := testutil.SeedUser(t, db, "0814", 0)

	cases := map[string]AssignInput{
		"zero count":       {UserID: user.ID, TaskCount: 0},
		"too many":         {UserID: user.ID, TaskCount: MaxBatchSize + 1},
		"negative profit":  {UserID: user.ID, TaskCount: 2, TotalProfit: -1},
		"forced too high":  {UserID: user.ID, TaskCount: 2, ForcedTasks: []ForcedTask{{TaskNumber: 3, DepositAmount: 1}}},
		"forced zero":      {UserID: user.ID, TaskCount: 2, ForcedTasks: []ForcedTask{{TaskNumber: 0, DepositAmount: 1}}},
		"no deposit":       {UserID: user.ID, TaskCount: 2, ForcedTasks: []ForcedTask{{TaskNumber: 1}}},
		"all forced+split": {UserID: user.ID, TaskCount: 1, TotalProfit: 5, ForcedTasks: []ForcedTask{{TaskNumber: 1, DepositAmount: 1}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Assign(context.Background(), in)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
	require.Zero(t, countTasks(t, db, user.ID))
}

func TestAssign_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Assign(context.Background(), AssignInput{UserID: 999, TaskCount: 1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAssign_UnknownTemplateWritesNothing(t *testing.T) {
	svc, db := newTestService(t)
	user := testutil.SeedUser(t, db, "0815", 0)
	tpl := testutil.SeedTemplate(t, db, "Tokopedia", nil)

	_, err := svc.Assign(context.Background(), AssignInput{UserID: user.ID, TaskCount: 2, TemplateIDs: []uint{tpl.ID, 4242}})
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, countTasks(t, db, user.ID))
}

func TestAssign_NewBatchCancelsPendingTasks(t *testing.T) {
	svc, db := newTestService(t)
	user := testutil.SeedUser(t, db, "0816", 0)
	ctx := context.Background()

	first, err := svc.Assign(ctx, AssignInput{UserID: user.ID, TaskCount: 2, TotalProfit: 10})
	require.NoError(t, err)
	_, err = svc.CompleteOwnTask(ctx, user.ID, first[0].ID)
	require.NoError(t, err)

	second, err := svc.Assign(ctx, AssignInput{UserID: user.ID, TaskCount: 3, TotalProfit: 9})
	require.NoError(t, err)
	require.Equal(t, 2, second[0].Batch)
	require.Equal(t, 1, second[0].TaskNumber)

	var old []models.UserTask
	require.NoError(t, db.Where("user_id = ? AND batch = 1", user.ID).Order("task_number").Find(&old).Error)
	require.Equal(t, models.TaskCompleted, old[0].Status)
	require.Equal(t, models.TaskCancelled, old[1].Status)
}

func TestAssign_TemplatesRoundRobin(t *testing.T) {
	svc, db := newTestService(t)
	user := testutil.SeedUser(t, db, "0817", 0)
	a := testutil.SeedTemplate(t, db, "A", nil)
	b := testutil.SeedTemplate(t, db, "B", nil)
	inactive := testutil.SeedTemplate(t, db, "C", nil)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	rows, err := svc.Assign(context.Background(), AssignInput{UserID: user.ID, TaskCount: 3, TotalProfit: 3})
	require.NoError(t, err)
	require.Equal(t, a.ID, *rows[0].TemplateID)
	require.Equal(t, b.ID, *rows[1].TemplateID)
	require.Equal(t, a.ID, *rows[2].TemplateID)
}

func TestCreateCustomTask_AppendsToCurrentBatch(t *testing.T) {
	svc, db := newTestService(t)
	user := testutil.SeedUser(t, db, "0818", 0)
	ctx := context.Background()

	_, err := svc.Assign(ctx, AssignInput{UserID: user.ID, TaskCount: 3, TotalProfit: 3})
	require.NoError(t, err)

	deposit, profit := 40.0, 6.0
	task, err := svc.CreateCustomTask(ctx, CustomTaskInput{
		UserID:        user.ID,
		IsForced:      true,
		DepositAmount: &deposit,
		CustomProfit:  &profit,
	})
	require.NoError(t, err)
	require.Equal(t, 4, task.TaskNumber)
	require.Equal(t, 1, task.Batch)
	require.True(t, task.IsForced)
	require.Equal(t, 6.0, task.ProfitAmount)
}

func TestCreateCustomTask_FirstTaskAndValidation(t *testing.T) {
	svc, db := newTestService(t)
	user := testutil.SeedUser(t, db, "0819", 0)
	ctx := context.Background()

	task, err := svc.CreateCustomTask(ctx, CustomTaskInput{UserID: user.ID, ProfitAmount: 2.345})
	require.NoError(t, err)
	require.Equal(t, 1, task.TaskNumber)
	require.Equal(t, 1, task.Batch)
	require.Equal(t, 2.35, task.ProfitAmount)

	_, err = svc.CreateCustomTask(ctx, CustomTaskInput{UserID: user.ID, IsForced: true})
	require.ErrorIs(t, err, ErrValidation)

	deposit := 5.0
	_, err = svc.CreateCustomTask(ctx, CustomTaskInput{UserID: user.ID, DepositAmount: &deposit})
	require.ErrorIs(t, err, ErrValidation)

	missing := uint(77)
	_, err = svc.CreateCustomTask(ctx, CustomTaskInput{UserID: user.ID, TemplateID: &missing})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetForced_ByTaskNumber(t *testing.T) {
	svc, db := newTestService(t)
	user := testutil.SeedUser(t, db, "0820", 0)
	ctx := context.Background()

	_, err := svc.Assign(ctx, AssignInput{UserID: user.ID, TaskCount: 3, TotalProfit: 9})
	require.NoError(t, err)

	task, err := svc.SetForced(ctx, ForcedInput{UserID: user.ID, TaskNumber: 2, DepositAmount: 30, CustomProfit: 9.5})
	require.NoError(t, err)
	require.Equal(t, 2, task.TaskNumber)
	require.True(t, task.IsForced)
	require.Equal(t, 30.0, *task.DepositAmount)
	require.Equal(t, 9.5, *task.CustomProfit)
	require.Equal(t, 9.5, task.ProfitAmount)

	_, err = svc.SetForced(ctx, ForcedInput{UserID: user.ID, TaskNumber: 9, DepositAmount: 1})
	require.ErrorIs(t, err, ErrNotFound)
}
