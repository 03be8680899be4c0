package sanction

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"finagent/internal/apperr"
	"finagent/internal/dto"
	"finagent/pkg/finmath"
)

// ValidityDays matches the validity the server prints on its own letters.
const ValidityDays = 7

type LoanSource interface {
	GetLoan(ctx context.Context, loanID string) (*dto.LoanSummary, error)
}

// Facsimile renders an HTML stand-in for the letter from the loan record.
type Facsimile struct {
	api LoanSource
	now func() time.Time
}

func NewFacsimile(api LoanSource, now func() time.Time) *Facsimile {
	if now == nil {
		now = time.Now
	}
	return &Facsimile{api: api, now: now}
}

func (Facsimile) Name() string { return "html-facsimile" }

func (f *Facsimile) Fetch(ctx context.Context, loanID string) (*Document, error) {
	l, err := f.api.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if l.Decision != "APPROVED" && l.Decision != "ADJUST" {
		return nil, apperr.New(apperr.KindDocument, "sanction letter only available for approved loans")
	}

	amount := l.ApprovedAmount
	if amount <= 0 {
		amount = l.RequestedAmount
	}
	rate := l.InterestRate
	if rate <= 0 {
		rate = finmath.DefaultAnnualRatePercent
	}
	terms, err := finmath.NewLoanTerms(amount, rate, l.TenureMonths)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDocument, "loan record is incomplete", err)
	}
	offer := finmath.NewOffer(terms, finmath.RoundWhole)

	issued := f.now()
	data := letterData{
		LoanID:        l.LoanID,
		Name:          l.FullName,
		Decision:      l.Decision,
		Amount:        finmath.FormatCurrency(amount),
		Rate:          rate,
		Tenure:        l.TenureMonths,
		EMI:           finmath.FormatCurrency(offer.EMI),
		TotalPayable:  finmath.FormatCurrency(offer.TotalPayable),
		TotalInterest: finmath.FormatCurrency(offer.TotalInterest),
		RiskBand:      l.RiskBand,
		IssuedOn:      finmath.FormatTime(issued),
		ValidUntil:    finmath.FormatTime(issued.AddDate(0, 0, ValidityDays)),
	}
	if data.Name == "" {
		data.Name = "Valued Customer"
	}

	var buf bytes.Buffer
	if err := letterTmpl.Execute(&buf, data); err != nil {
		return nil, apperr.Wrap(apperr.KindDocument, "could not render sanction letter", err)
	}
	return &Document{
		LoanID:      loanID,
		Filename:    "sanction_letter_" + loanID + ".html",
		ContentType: "text/html; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

type letterData struct {
	LoanID        string
	Name          string
	Decision      string
	Amount        string
	Rate          float64
	Tenure        int
	EMI           string
	TotalPayable  string
	TotalInterest string
	RiskBand      string
	IssuedOn      string
	ValidUntil    string
}

var letterTmpl = template.Must(template.New("letter").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sanction Letter {{.LoanID}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; max-width: 720px; margin: 40px auto; color: #222; }
h1 { font-size: 22px; border-bottom: 2px solid #1a4d8f; padding-bottom: 8px; }
table { border-collapse: collapse; width: 100%; margin: 16px 0; }
td { border: 1px solid #ccc; padding: 8px; }
td:first-child { background: #f4f6fa; width: 40%; }
.note { font-size: 12px; color: #666; }
</style>
</head>
<body>
<h1>Loan Sanction Letter</h1>
<p>Date: {{.IssuedOn}}</p>
<p>Dear {{.Name}},</p>
<p>We are pleased to inform you that your personal loan application has been
{{if eq .Decision "ADJUST"}}approved with adjusted terms{{else}}approved{{end}}.</p>
<table>
<tr><td>Loan ID</td><td>{{.LoanID}}</td></tr>
<tr><td>Sanctioned amount</td><td>{{.Amount}}</td></tr>
<tr><td>Interest rate</td><td>{{printf "%.2f" .Rate}}% p.a.</td></tr>
<tr><td>Tenure</td><td>{{.Tenure}} months</td></tr>
<tr><td>Monthly EMI</td><td>{{.EMI}}</td></tr>
<tr><td>Total payable</td><td>{{.TotalPayable}}</td></tr>
<tr><td>Total interest</td><td>{{.TotalInterest}}</td></tr>
{{if .RiskBand}}<tr><td>Risk band</td><td>{{.RiskBand}}</td></tr>{{end}}
</table>
<p>This sanction is valid until {{.ValidUntil}}. Disbursement is subject to
verification of documents and execution of the loan agreement.</p>
<p class="note">This copy was generated on your device because the original
document could not be downloaded. It is not a signed document.</p>
</body>
</html>
`))
