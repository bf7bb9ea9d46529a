package testutil

import (
	"testing"

	"github.com/Kazutech1/cucker-sub000/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
// The pool is pinned to one connection because every ":memory:" connection
// is a separate database.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, err
	}
	return db, nil
}

// MustDB is NewInMemoryDB for tests.
func MustDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewInMemoryDB()
	require.NoError(t, err)
	return db
}

// SeedUser inserts a user with the given profit balance.
func SeedUser(t *testing.T, db *gorm.DB, number string, profitBalance float64) *models.User {
	t.Helper()
	u := models.User{Name: "user " + number, Number: number, Password: "x", ProfitBalance: profitBalance, Status: "Active"}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

// SeedTemplate inserts an active task template.
func SeedTemplate(t *testing.T, db *gorm.DB, name string, deposit *float64) *models.TaskTemplate {
	t.Helper()
	tpl := models.TaskTemplate{AppName: name, ReviewText: "review " + name, Profit: 1, DepositAmount: deposit, IsActive: true}
	require.NoError(t, db.Create(&tpl).Error)
	return &tpl
}
