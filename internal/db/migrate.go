package db

import (
	"dealflow/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Deal{},
		&models.PropertyAttributes{},
		&models.LeaseTerms{},
		&models.Enrichment{},
		&models.Scores{},
		&models.Financials{},
		&models.Memo{},
	)
}
