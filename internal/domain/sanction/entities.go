package sanction

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("sanction not found")

// ValidityDays is how long an issued sanction letter stays valid.
const ValidityDays = 7

// Sanction is the approval record backing a sanction letter.
type Sanction struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Public identifier (32-char lowercase hex)
	SanctionID string `gorm:"column:sanction_id;size:32;not null;uniqueIndex:ux_sanctions_sanction_id"`
	// FK to loans.id (numeric)
	LoanID       uint64         `gorm:"column:loan_id;not null;uniqueIndex:ux_sanctions_loan"`
	SanctionedAt time.Time      `gorm:"column:sanctioned_at;not null"`
	ValidUntil   time.Time      `gorm:"column:valid_until;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Sanction) TableName() string { return "sanctions" }
