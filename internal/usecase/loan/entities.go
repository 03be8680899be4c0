package loan

import (
	"finagent/internal/domain/loan"
	"finagent/internal/dto"
)

const (
	DefaultUserLoansLimit = 10
	DefaultPageSize       = 20
	MaxPageSize           = 100
)

func toSummary(l *loan.Loan) dto.LoanSummary {
	s := dto.LoanSummary{
		LoanID:          l.LoanID,
		UserID:          l.UserID,
		FullName:        l.FullName,
		RequestedAmount: l.RequestedAmount,
		ApprovedAmount:  l.ApprovedAmount,
		TenureMonths:    l.TenureMonths,
		EMI:             l.EMI,
		InterestRate:    l.InterestRate,
		CreditScore:     l.CreditScore,
		Decision:        string(l.Decision),
		RiskBand:        string(l.RiskBand),
		Explanation:     l.Explanation,
		CreatedAt:       l.CreatedAt,
	}
	if s.FullName == "" {
		s.FullName = "User"
	}
	if l.Decision.Sanctionable() {
		s.SanctionPDFURL = "/loan/" + l.LoanID + "/sanction-pdf"
	}
	return s
}

func toListItem(l *loan.Loan) dto.LoanListItem {
	name := l.FullName
	if name == "" {
		name = "User"
	}
	return dto.LoanListItem{
		LoanID:          l.LoanID,
		UserID:          l.UserID,
		FullName:        name,
		RequestedAmount: l.RequestedAmount,
		ApprovedAmount:  l.ApprovedAmount,
		Decision:        string(l.Decision),
		RiskBand:        string(l.RiskBand),
		CreatedAt:       l.CreatedAt,
	}
}
