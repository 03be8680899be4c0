package loan

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("loan application not found")
	ErrNotSanctionable = errors.New("sanction letter only available for approved loans")
)

type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
	DecisionAdjust   Decision = "ADJUST"
)

// Sanctionable reports whether a sanction letter may be issued for d.
func (d Decision) Sanctionable() bool { return d == DecisionApproved || d == DecisionAdjust }

type RiskBand string

const (
	RiskA RiskBand = "A"
	RiskB RiskBand = "B"
	RiskC RiskBand = "C"
)

type Loan struct {
	ID                    uint64         `gorm:"primaryKey;column:id" json:"-"`
	LoanID                string         `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	UserID                string         `gorm:"size:64;index:idx_loans_user" json:"user_id"`
	FullName              string         `gorm:"size:255" json:"full_name"`
	RequestedAmount       float64        `gorm:"type:decimal(18,2)" json:"requested_amount"`
	RequestedTenureMonths int            `json:"requested_tenure_months"`
	ApprovedAmount        float64        `gorm:"type:decimal(18,2)" json:"approved_amount"`
	TenureMonths          int            `json:"tenure_months"`
	EMI                   float64        `gorm:"type:decimal(18,2)" json:"emi"`
	InterestRate          float64        `gorm:"type:decimal(6,2)" json:"interest_rate"`
	CreditScore           int            `json:"credit_score"`
	FOIR                  float64        `gorm:"type:decimal(6,4)" json:"foir"`
	Decision              Decision       `gorm:"size:16;index:idx_loans_decision" json:"decision"`
	RiskBand              RiskBand       `gorm:"size:1;index:idx_loans_risk_band" json:"risk_band"`
	Explanation           string         `gorm:"type:text" json:"explanation"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }
