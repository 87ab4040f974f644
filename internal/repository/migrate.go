package repository

import (
	"gorm.io/gorm"

	"charzing/internal/domain"
)

// Migrate creates or updates every table this service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userModel{},
		&reservationModel{},
		&domain.Payment{},
	)
}
