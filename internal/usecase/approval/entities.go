package approval

import (
	"time"

	"finagent/internal/domain/loan"
)

// RecordInput is an underwriting outcome ready to be persisted.
type RecordInput struct {
	UserID          string
	FullName        string
	RequestedAmount float64
	RequestedTenure int
	ApprovedAmount  float64
	TenureMonths    int
	InterestRate    float64
	CreditScore     int
	MonthlyIncome   float64
	ExistingEMI     float64
	Decision        loan.Decision
	RiskBand        loan.RiskBand
	Explanation     string
}

type DecisionDTO struct {
	LoanID       string        `json:"loan_id"`
	Decision     loan.Decision `json:"decision"`
	EMI          float64       `json:"emi"`
	FOIR         float64       `json:"foir"`
	SanctionID   string        `json:"sanction_id,omitempty"`
	SanctionedAt *time.Time    `json:"sanctioned_at,omitempty"`
	ValidUntil   *time.Time    `json:"valid_until,omitempty"`
}

type SanctionDTO struct {
	SanctionID   string    `json:"sanction_id"`
	LoanID       string    `json:"loan_id"`
	FullName     string    `json:"full_name"`
	Amount       float64   `json:"amount"`
	TenureMonths int       `json:"tenure_months"`
	InterestRate float64   `json:"interest_rate"`
	EMI          float64   `json:"emi"`
	RiskBand     string    `json:"risk_band"`
	SanctionedAt time.Time `json:"sanctioned_at"`
	ValidUntil   time.Time `json:"valid_until"`
}
