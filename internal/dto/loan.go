package dto

import "time"

type LoanSummary struct {
	LoanID          string    `json:"loan_id"`
	UserID          string    `json:"user_id"`
	FullName        string    `json:"full_name"`
	RequestedAmount float64   `json:"requested_amount"`
	ApprovedAmount  float64   `json:"approved_amount"`
	TenureMonths    int       `json:"tenure_months"`
	EMI             float64   `json:"emi"`
	InterestRate    float64   `json:"interest_rate"`
	CreditScore     int       `json:"credit_score"`
	Decision        string    `json:"decision"`
	RiskBand        string    `json:"risk_band"`
	Explanation     string    `json:"explanation,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	SanctionPDFURL  string    `json:"sanction_pdf_url,omitempty"`
}

type AdminMetrics struct {
	TotalApplications int            `json:"total_applications"`
	ApprovedCount     int            `json:"approved_count"`
	RejectedCount     int            `json:"rejected_count"`
	AdjustCount       int            `json:"adjust_count"`
	AvgLoanAmount     float64        `json:"avg_loan_amount"`
	AvgEMI            float64        `json:"avg_emi"`
	AvgCreditScore    float64        `json:"avg_credit_score"`
	TodayApplications int            `json:"today_applications"`
	RiskDistribution  map[string]int `json:"risk_distribution"`
}

type LoanListItem struct {
	LoanID          string    `json:"loan_id"`
	UserID          string    `json:"user_id"`
	FullName        string    `json:"full_name"`
	RequestedAmount float64   `json:"requested_amount"`
	ApprovedAmount  float64   `json:"approved_amount"`
	Decision        string    `json:"decision"`
	RiskBand        string    `json:"risk_band"`
	CreatedAt       time.Time `json:"created_at"`
}

type AdminLoansResponse struct {
	Loans    []LoanListItem `json:"loans"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// LoanFilter is the query of GET /admin/loans.
type LoanFilter struct {
	Page     int    `query:"page"      validate:"gte=1"`
	PageSize int    `query:"page_size" validate:"gte=1,lte=100"`
	Decision string `query:"decision"  validate:"omitempty,oneof=APPROVED REJECTED ADJUST"`
	RiskBand string `query:"risk_band" validate:"omitempty,oneof=A B C"`
}
