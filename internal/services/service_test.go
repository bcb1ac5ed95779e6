package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"campusoul/internal/database"
	"campusoul/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:servicetest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string, age int, lat, lon float64) *models.User {
	t.Helper()

	user := models.User{
		Email:        email,
		PasswordHash: "x",
		Name:         email,
		Birthdate:    time.Now().AddDate(-age, 0, -1),
		Latitude:     &lat,
		Longitude:    &lon,
		LastActive:   time.Now(),
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}
