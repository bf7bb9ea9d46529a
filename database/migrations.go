package database

import (
	"github.com/Kazutech1/cucker-sub000/models"

	"gorm.io/gorm"
)

// RunMigrations auto-migrates every model inside a single transaction.
// Callers should only run it where schema changes are expected.
func RunMigrations(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(models.All()...)
	})
}

// EnsureAdmin creates the bootstrap admin when no admin exists yet.
// It returns true when an admin was created.
func EnsureAdmin(db *gorm.DB, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	var count int64
	if err := db.Model(&models.Admin{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	admin := models.Admin{Username: username, Password: password, Name: username, IsActive: true}
	if err := admin.HashPassword(); err != nil {
		return false, err
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, err
	}
	return true, nil
}
