package http

import (
	"bytes"
	"fmt"
	"strings"

	"finagent/internal/usecase/approval"
	"finagent/pkg/finmath"
)

// pdfEscaper escapes the characters that end or break a PDF literal string.
var pdfEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

// renderSanctionPDF lays out a one-page letter in the built-in Helvetica
// font. Helvetica has no rupee glyph, so amounts are written as "Rs.".
func renderSanctionPDF(s *approval.SanctionDTO) []byte {
	name := s.FullName
	if name == "" {
		name = "Valued Customer"
	}
	lines := []string{
		"Sanction ID: " + s.SanctionID,
		"Loan ID: " + s.LoanID,
		"Date: " + finmath.FormatTime(s.SanctionedAt),
		"",
		"Dear " + name + ",",
		"",
		"We are pleased to inform you that your personal loan has been sanctioned",
		"on the following terms:",
		"",
		"Sanctioned amount: " + pdfAmount(s.Amount),
		fmt.Sprintf("Tenure: %d months", s.TenureMonths),
		fmt.Sprintf("Interest rate: %.2f%% p.a.", s.InterestRate),
		"Monthly EMI: " + pdfAmount(s.EMI),
		"Risk band: " + s.RiskBand,
		"",
		"This sanction is valid until " + finmath.FormatTime(s.ValidUntil) + ".",
	}

	var content bytes.Buffer
	content.WriteString("BT\n/F1 18 Tf\n72 770 Td\n(SANCTION LETTER) Tj\n/F1 11 Tf\n16 TL\nT*\nT*\n")
	for _, l := range lines {
		fmt.Fprintf(&content, "(%s) Tj\nT*\n", pdfEscaper.Replace(toASCII(l)))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] " +
			"/Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return out.Bytes()
}

func pdfAmount(v float64) string {
	return strings.Replace(finmath.FormatCurrency(v), "₹", "Rs. ", 1)
}

// toASCII drops anything Helvetica cannot show without an embedded font.
func toASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, s)
}
