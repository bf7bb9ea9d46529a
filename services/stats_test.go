package services

import (
	"context"
	"testing"

	"github.com/Kazutech1/cucker-sub000/models"
	"github.com/Kazutech1/cucker-sub000/testutil"

	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	empty, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, empty.TotalUsers)
	require.Equal(t, int64(0), empty.TasksByStatus[string(models.TaskPending)])

	a := testutil.SeedUser(t, db, "0831", 100)
	b := testutil.SeedUser(t, db, "0832", 100)
	comboA := assignCombo(t, svc, a.ID)[2]
	comboB := assignCombo(t, svc, b.ID)[2]

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.PendingCombo)

	_, err = svc.Verify(ctx, comboA.ID, true)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, comboB.ID, false)
	require.NoError(t, err)
	require.NoError(t, db.Model(b).Update("status", "Inactive").Error)

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalUsers)
	require.Equal(t, int64(1), stats.ActiveUsers)
	require.Equal(t, int64(8), stats.TasksByStatus[string(models.TaskPending)])
	require.Equal(t, int64(1), stats.TasksByStatus[string(models.TaskCompleted)])
	require.Equal(t, int64(1), stats.TasksByStatus[string(models.TaskRejected)])
	require.Zero(t, stats.PendingCombo)
	require.Equal(t, 15.0, stats.ProfitCredited)
	require.Equal(t, 15.0, stats.PenaltiesApplied)
	require.Equal(t, 200.0, stats.TotalProfit)
	require.Zero(t, stats.TotalBalance)
}
