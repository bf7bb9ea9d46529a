package services

import (
	"context"
	"testing"

	"github.com/Kazutech1/cucker-sub000/models"
	"github.com/Kazutech1/cucker-sub000/testutil"

	"github.com/stretchr/testify/require"
)

func TestAdjustBalance_AddAndLess(t *testing.T) {
	db := testutil.MustDB(t)
	svc := NewUserService(db, NewLedger())
	user := testutil.SeedUser(t, db, "0870", 0)
	ctx := context.Background()

	entry, err := svc.AdjustBalance(ctx, BalanceInput{UserID: user.ID, Amount: 100, Type: "add"})
	require.NoError(t, err)
	require.Equal(t, models.ReasonAdminCredit, entry.Reason)
	require.Equal(t, 100.0, entry.BalanceAfter)

	_, err = svc.AdjustBalance(ctx, BalanceInput{UserID: user.ID, Amount: 150, Type: "less"})
	require.ErrorIs(t, err, ErrInsufficientBalance)

	entry, err = svc.AdjustBalance(ctx, BalanceInput{UserID: user.ID, Amount: 40, Type: "less"})
	require.NoError(t, err)
	require.Equal(t, -40.0, entry.Amount)
	require.Equal(t, 60.0, entry.BalanceAfter)

	entry, err = svc.AdjustBalance(ctx, BalanceInput{UserID: user.ID, Amount: 5, Type: "add", Account: models.AccountProfitBalance})
	require.NoError(t, err)
	require.Equal(t, 5.0, entry.BalanceAfter)

	entries, page, err := svc.LedgerEntries(ctx, user.ID, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), page.Total)
	require.Len(t, entries, 2)
	require.Equal(t, models.AccountProfitBalance, entries[0].Account)
}

func TestAdjustBalance_Validation(t *testing.T) {
	db := testutil.MustDB(t)
	svc := NewUserService(db, NewLedger())
	user := testutil.SeedUser(t, db, "0871", 0)
	ctx := context.Background()

	bad := []BalanceInput{
		{UserID: user.ID, Amount: 0, Type: "add"},
		{UserID: user.ID, Amount: -5, Type: "add"},
		{UserID: user.ID, Amount: 5, Type: "steal"},
		{UserID: user.ID, Amount: 5, Type: "add", Account: "bonus"},
	}
	for _, in := range bad {
		_, err := svc.AdjustBalance(ctx, in)
		require.ErrorIs(t, err, ErrValidation)
	}

	_, err := svc.AdjustBalance(ctx, BalanceInput{UserID: 404, Amount: 5, Type: "add"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_ListAndUpdate(t *testing.T) {
	db := testutil.MustDB(t)
	svc := NewUserService(db, NewLedger())
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "0872", 0)
	testutil.SeedUser(t, db, "0873", 0)

	users, page, err := svc.List(ctx, UserFilter{Search: "0872"})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	require.Equal(t, a.ID, users[0].ID)

	limit, status := 3, "suspend"
	updated, err := svc.Update(ctx, a.ID, UserUpdate{TaskLimit: &limit, Status: &status})
	require.NoError(t, err)
	require.Equal(t, 3, updated.TaskLimit)
	require.Equal(t, "Suspend", updated.Status)

	_, page, err = svc.List(ctx, UserFilter{Status: "Active"})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)

	negative := -1
	_, err = svc.Update(ctx, a.ID, UserUpdate{TaskLimit: &negative})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(ctx, 999, UserUpdate{TaskLimit: &limit})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_Create(t *testing.T) {
	db := testutil.MustDB(t)
	svc := NewUserService(db, NewLedger())
	ctx := context.Background()

	user, err := svc.Create(ctx, NewUserInput{Name: " Ada ", Number: "0890", Password: "secret1", TaskLimit: 4})
	require.NoError(t, err)
	require.Equal(t, "Ada", user.Name)
	require.Equal(t, "Active", user.Status)
	require.True(t, user.ValidatePassword("secret1"))
	require.NotEqual(t, "secret1", user.Password)

	_, err = svc.Create(ctx, NewUserInput{Name: "Bob", Number: "0890", Password: "secret1"})
	require.ErrorIs(t, err, ErrConflict)
	_, err = svc.Create(ctx, NewUserInput{Name: "Bob", Number: "0891", Password: "123"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, NewUserInput{Name: "", Number: "0892", Password: "secret1"})
	require.ErrorIs(t, err, ErrValidation)
}
