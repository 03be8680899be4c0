package finmath

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument is returned for inputs the annuity formula cannot price.
var ErrInvalidArgument = errors.New("invalid argument")

// Rounding selects how a computed amount is rounded before it is returned.
type Rounding int

const (
	// RoundNone keeps the raw floating point value.
	RoundNone Rounding = iota
	// RoundWhole rounds to whole rupees; canonical for offers shown to users.
	RoundWhole
	// RoundPaise rounds to two decimals, as the backend stores amounts.
	RoundPaise
)

func (r Rounding) apply(v float64) float64 {
	switch r {
	case RoundWhole:
		return math.Round(v)
	case RoundPaise:
		return math.Round(v*100) / 100
	default:
		return v
	}
}

// Loan bounds enforced by the backend.
const (
	DefaultAnnualRatePercent = 12.0
	MinLoanAmount            = 50_000.0
	MaxLoanAmount            = 5_000_000.0
	MinTenureMonths          = 6
	MaxTenureMonths          = 60
)

// CalculateEMI returns the equated monthly installment for the given terms.
//
// The monthly rate is annualRatePercent/12/100. A zero rate degrades to a
// straight-line split of the principal.
func CalculateEMI(principal, annualRatePercent float64, tenureMonths int, rounding Rounding) (float64, error) {
	if err := checkTerms(principal, annualRatePercent, tenureMonths); err != nil {
		return 0, err
	}
	return rounding.apply(emi(principal, annualRatePercent, tenureMonths)), nil
}

func emi(principal, annualRatePercent float64, tenureMonths int) float64 {
	n := float64(tenureMonths)
	r := annualRatePercent / 12 / 100
	if r == 0 {
		return principal / n
	}
	f := math.Pow(1+r, n)
	if f == 1 {
		// rate too small to register in float64
		return principal / n
	}
	return principal * r * f / (f - 1)
}

func checkTerms(principal, annualRatePercent float64, tenureMonths int) error {
	if tenureMonths <= 0 {
		return fmt.Errorf("%w: tenure must be a positive number of months, got %d", ErrInvalidArgument, tenureMonths)
	}
	if math.IsNaN(principal) || math.IsInf(principal, 0) || principal <= 0 {
		return fmt.Errorf("%w: principal must be positive, got %v", ErrInvalidArgument, principal)
	}
	if math.IsNaN(annualRatePercent) || math.IsInf(annualRatePercent, 0) || annualRatePercent < 0 {
		return fmt.Errorf("%w: annual rate must be non-negative, got %v", ErrInvalidArgument, annualRatePercent)
	}
	return nil
}

// LoanTerms is an immutable, validated set of pricing inputs.
type LoanTerms struct {
	principal         float64
	annualRatePercent float64
	tenureMonths      int
}

func NewLoanTerms(principal, annualRatePercent float64, tenureMonths int) (LoanTerms, error) {
	if err := checkTerms(principal, annualRatePercent, tenureMonths); err != nil {
		return LoanTerms{}, err
	}
	return LoanTerms{principal: principal, annualRatePercent: annualRatePercent, tenureMonths: tenureMonths}, nil
}

func (t LoanTerms) Principal() float64         { return t.principal }
func (t LoanTerms) AnnualRatePercent() float64 { return t.annualRatePercent }
func (t LoanTerms) TenureMonths() int          { return t.tenureMonths }

// EMI prices terms that were already validated by NewLoanTerms.
func (t LoanTerms) EMI(rounding Rounding) float64 {
	return rounding.apply(emi(t.principal, t.annualRatePercent, t.tenureMonths))
}

// ValidateLoanRequest checks a requested amount and tenure against the
// backend's accepted range so the user gets feedback before a round trip.
func ValidateLoanRequest(amount float64, tenureMonths int) error {
	if math.IsNaN(amount) || amount < MinLoanAmount || amount > MaxLoanAmount {
		return fmt.Errorf("%w: amount must be between %s and %s", ErrInvalidArgument,
			FormatCurrency(MinLoanAmount), FormatCurrency(MaxLoanAmount))
	}
	if tenureMonths < MinTenureMonths || tenureMonths > MaxTenureMonths {
		return fmt.Errorf("%w: tenure must be between %d and %d months", ErrInvalidArgument,
			MinTenureMonths, MaxTenureMonths)
	}
	return nil
}
