package services

import (
	"context"
	"testing"

	"github.com/Kazutech1/cucker-sub000/models"
	"github.com/Kazutech1/cucker-sub000/testutil"

	"github.com/stretchr/testify/require"
)

func TestCatalog_CreateValidates(t *testing.T) {
	c := NewCatalogService(testutil.MustDB(t))
	ctx := context.Background()

	zero := 0.0
	bad := []TemplateInput{
		{AppName: " ", Profit: 1},
		{AppName: "X", Profit: -1},
		{AppName: "X", Profit: 1, DepositAmount: &zero},
	}
	for _, in := range bad {
		_, err := c.Create(ctx, in)
		require.ErrorIs(t, err, ErrValidation)
	}

	deposit := 120.456
	tpl, err := c.Create(ctx, TemplateInput{AppName: " Grab ", ReviewText: "nice", Profit: 2.5, DepositAmount: &deposit})
	require.NoError(t, err)
	require.Equal(t, "Grab", tpl.AppName)
	require.True(t, tpl.IsActive)
	require.True(t, tpl.IsCombo())
	require.Equal(t, 120.46, *tpl.DepositAmount)

	off := false
	tpl, err = c.Create(ctx, TemplateInput{AppName: "Gojek", IsActive: &off})
	require.NoError(t, err)
	require.False(t, tpl.IsActive)
}

func TestCatalog_ListFiltersAndToggle(t *testing.T) {
	db := testutil.MustDB(t)
	c := NewCatalogService(db)
	ctx := context.Background()

	deposit := 10.0
	normal := testutil.SeedTemplate(t, db, "Netflix", nil)
	testutil.SeedTemplate(t, db, "Spotify", &deposit)

	combo := true
	list, page, err := c.List(ctx, TemplateFilter{Combo: &combo})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	require.Equal(t, "Spotify", list[0].AppName)

	toggled, err := c.Toggle(ctx, normal.ID)
	require.NoError(t, err)
	require.False(t, toggled.IsActive)

	active := true
	_, page, err = c.List(ctx, TemplateFilter{Active: &active})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)

	list, _, err = c.List(ctx, TemplateFilter{Search: "flix"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, normal.ID, list[0].ID)

	_, err = c.Toggle(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_UpdateAndDelete(t *testing.T) {
	db := testutil.MustDB(t)
	c := NewCatalogService(db)
	svc := NewTaskService(db, NewLedger(), 1)
	ctx := context.Background()

	tpl := testutil.SeedTemplate(t, db, "Uber", nil)
	user := testutil.SeedUser(t, db, "0860", 0)
	rows, err := svc.Assign(ctx, AssignInput{UserID: user.ID, TaskCount: 2, TotalProfit: 4})
	require.NoError(t, err)
	require.Equal(t, tpl.ID, *rows[0].TemplateID)

	updated, err := c.Update(ctx, tpl.ID, TemplateInput{AppName: "Uber Eats", Profit: 3})
	require.NoError(t, err)
	require.Equal(t, "Uber Eats", updated.AppName)
	require.True(t, updated.IsActive)

	require.NoError(t, c.Delete(ctx, tpl.ID))
	require.ErrorIs(t, c.Delete(ctx, tpl.ID), ErrNotFound)

	var task models.UserTask
	require.NoError(t, db.First(&task, rows[0].ID).Error)
	require.Nil(t, task.TemplateID)
	require.Equal(t, 2.0, task.ProfitAmount)
}
