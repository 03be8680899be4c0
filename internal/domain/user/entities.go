package user

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("user profile not found")
	ErrAlreadyExists = errors.New("user already exists")
	// Returned for a wrong password; never says whether the email exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is a stub-backend customer account.
type User struct {
	ID            uint64  `gorm:"primaryKey;column:id"`
	UserID        string  `gorm:"size:64;uniqueIndex:ux_users_user_id"`
	Email         string  `gorm:"size:255;uniqueIndex:ux_users_email"`
	PasswordHash  string  `gorm:"size:255"`
	FullName      string  `gorm:"size:255"`
	Phone         string  `gorm:"size:16"`
	MonthlyIncome float64 `gorm:"type:decimal(18,2)"`
	ExistingEMI   float64 `gorm:"type:decimal(18,2)"`
	CreditScore   int
	Segment       string         `gorm:"size:64"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string { return "users" }
