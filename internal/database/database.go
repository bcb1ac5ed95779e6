package database

import (
	"fmt"
	"strings"

	"campusoul/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Initialize(databaseURL string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(databaseURL), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logrus.Info("Database connected and migrated")
	return db, nil
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Interest{},
		&models.UserInterest{},
		&models.Image{},
		&models.Like{},
		&models.Match{},
		&models.Message{},
	)
}

// SeedInterests inserts the reference interest list, skipping names that
// already exist. Names are stored lowercase.
func SeedInterests(db *gorm.DB) error {
	names := []string{
		"music", "movies", "sports", "fitness", "travel",
		"photography", "cooking", "reading", "gaming", "dancing",
		"art", "technology", "nature", "fashion", "coffee",
		"hiking", "yoga", "volunteering", "languages", "science",
	}

	for _, name := range names {
		interest := models.Interest{Name: strings.ToLower(name)}
		if err := db.FirstOrCreate(&interest, models.Interest{Name: interest.Name}).Error; err != nil {
			return fmt.Errorf("failed to seed interest %s: %w", name, err)
		}
	}

	logrus.Info("Interests seeded")
	return nil
}
