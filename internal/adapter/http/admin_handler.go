package http

import (
	"net/http"

	"finagent/internal/dto"
	"finagent/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AdminHandler struct {
	base
	loans *loan.Usecase
}

func NewAdminHandler(loans *loan.Usecase, log *zap.Logger) *AdminHandler {
	return &AdminHandler{base: newBase(log), loans: loans}
}

func (h *AdminHandler) Metrics(c echo.Context) error {
	out, err := h.loans.AdminMetrics(c.Request().Context())
	if err != nil {
		return h.failDomain(c, err, "Failed to compute metrics")
	}
	return ok(c, http.StatusOK, out)
}

func (h *AdminHandler) Loans(c echo.Context) error {
	f := dto.LoanFilter{Page: 1, PageSize: loan.DefaultPageSize}
	if ok, err := bindValid(c, &f); !ok {
		return err
	}
	out, err := h.loans.AdminLoans(c.Request().Context(), f)
	if err != nil {
		return h.failDomain(c, err, "Failed to list loans")
	}
	return ok(c, http.StatusOK, out)
}
