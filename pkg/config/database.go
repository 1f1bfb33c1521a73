package config

import (
	"fmt"
	"time"

	"roundsettle/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewDB opens the database connection
func NewDB(settings Settings) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(settings.PostgresDSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetMaxOpenConns(200)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// AutoMigrate creates tables straight from the models; meant for local development.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
