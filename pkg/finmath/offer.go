package finmath

import "fmt"

// LoanOffer is the repayment breakdown shown next to an approved amount.
type LoanOffer struct {
	Terms         LoanTerms
	EMI           float64
	TotalPayable  float64
	TotalInterest float64
}

func NewOffer(terms LoanTerms, rounding Rounding) LoanOffer {
	e := terms.EMI(rounding)
	total := rounding.apply(e * float64(terms.tenureMonths))
	interest := rounding.apply(total - terms.principal)
	if interest < 0 {
		// whole-rupee rounding of a zero-rate EMI can undershoot the principal
		interest = 0
	}
	return LoanOffer{Terms: terms, EMI: e, TotalPayable: total, TotalInterest: interest}
}

// Lines renders the offer the way the chat transcript prints it.
func (o LoanOffer) Lines() []string {
	return []string{
		"Loan amount: " + FormatCurrency(o.Terms.principal),
		fmt.Sprintf("Interest rate: %.2f%% p.a.", o.Terms.annualRatePercent),
		fmt.Sprintf("Tenure: %d months", o.Terms.tenureMonths),
		"Monthly EMI: " + FormatCurrency(o.EMI),
		"Total payable: " + FormatCurrency(o.TotalPayable),
		"Total interest: " + FormatCurrency(o.TotalInterest),
	}
}
