package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxInterestsPerUser caps the number of interests a profile can carry.
const MaxInterestsPerUser = 5

type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string         `json:"-" gorm:"not null"`
	Name         string         `json:"name"`
	Birthdate    time.Time      `json:"birthdate"`
	Bio          *string        `json:"bio,omitempty"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
	IsAdmin      bool           `json:"is_admin" gorm:"default:false"`
	DeviceToken  *string        `json:"-"`
	LastActive   time.Time      `json:"last_active"`
	Interests    []Interest     `json:"interests,omitempty" gorm:"many2many:user_interests;"`
	Images       []Image        `json:"images,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// Age in full years at the given instant.
func (u *User) Age(now time.Time) int {
	years := now.Year() - u.Birthdate.Year()
	if now.YearDay() < u.Birthdate.YearDay() {
		years--
	}
	return years
}

// HasCoordinates reports whether the profile carries a geographic point.
func (u *User) HasCoordinates() bool {
	return u.Latitude != nil && u.Longitude != nil
}

type Interest struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type UserInterest struct {
	UserID     uint      `json:"user_id" gorm:"primaryKey"`
	InterestID uint      `json:"interest_id" gorm:"primaryKey"`
	CreatedAt  time.Time `json:"created_at"`
}

type Image struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"not null"`
	URL       string         `json:"url" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
