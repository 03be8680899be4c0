package http

import (
	"fmt"
	"net/http"
	"strconv"

	"finagent/internal/usecase/approval"
	"finagent/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type LoanHandler struct {
	base
	loans     *loan.Usecase
	approvals *approval.Usecase
}

func NewLoanHandler(loans *loan.Usecase, approvals *approval.Usecase, log *zap.Logger) *LoanHandler {
	return &LoanHandler{base: newBase(log), loans: loans, approvals: approvals}
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	out, err := h.loans.Get(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return h.failDomain(c, err, "Failed to load loan")
	}
	return ok(c, http.StatusOK, out)
}

func (h *LoanHandler) UserLoans(c echo.Context) error {
	userID, allowed := ownUser(c)
	if !allowed {
		return fail(c, http.StatusForbidden, "Not allowed to list these loans")
	}
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > loan.MaxPageSize {
			return fail(c, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", loan.MaxPageSize))
		}
		limit = n
	}
	out, err := h.loans.ListByUser(c.Request().Context(), userID, limit)
	if err != nil {
		return h.failDomain(c, err, "Failed to list loans")
	}
	return ok(c, http.StatusOK, out)
}

// SanctionPDF issues the sanction on first request and streams the letter.
func (h *LoanHandler) SanctionPDF(c echo.Context) error {
	s, err := h.approvals.Sanction(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return h.failDomain(c, err, "Failed to generate sanction letter")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="sanction_letter_%s.pdf"`, s.LoanID))
	return c.Blob(http.StatusOK, "application/pdf", renderSanctionPDF(s))
}

func (h *LoanHandler) SanctionInfo(c echo.Context) error {
	s, err := h.approvals.Sanction(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return h.failDomain(c, err, "Failed to load sanction")
	}
	return ok(c, http.StatusOK, s)
}
