package http

import (
	"errors"
	"net/http"
	"strings"

	"finagent/internal/domain/loan"
	"finagent/internal/domain/user"
	"finagent/internal/dto"
	"finagent/internal/usecase/assistant"
	"finagent/pkg/finmath"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorResponse is the failed form of the envelope. Details is set for
// validation failures only.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

func ok[T any](c echo.Context, code int, data T) error {
	return c.JSON(code, dto.OK(data))
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, ErrorResponse{Error: msg})
}

func failValidation(c echo.Context, err error) error {
	details := ToFieldErrors(err)
	msgs := make([]string, 0, len(details))
	for _, d := range details {
		msgs = append(msgs, d.Field+" "+d.Message)
	}
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "Validation failed: " + strings.Join(msgs, "; "),
		Details: details,
	})
}

// bindValid binds the request into v and validates it. It writes the error
// response itself and reports whether the handler should continue.
func bindValid(c echo.Context, v any) (bool, error) {
	if err := c.Bind(v); err != nil {
		return false, fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(v); err != nil {
		return false, failValidation(c, err)
	}
	return true, nil
}

// base carries what every handler needs besides its usecase.
type base struct{ log *zap.Logger }

func newBase(log *zap.Logger) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{log: log}
}

// Map domain errors → HTTP codes
func (b base) failDomain(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, loan.ErrNotFound):
		return fail(c, http.StatusNotFound, "Loan application not found")
	case errors.Is(err, loan.ErrNotSanctionable):
		return fail(c, http.StatusBadRequest, "Sanction letter only available for approved loans")
	case errors.Is(err, user.ErrNotFound):
		return fail(c, http.StatusNotFound, "User profile not found")
	case errors.Is(err, user.ErrAlreadyExists):
		return fail(c, http.StatusBadRequest, "User already exists")
	case errors.Is(err, user.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, assistant.ErrSessionNotFound):
		return fail(c, http.StatusNotFound, "Session not found")
	case errors.Is(err, assistant.ErrInvalidMessage):
		return fail(c, http.StatusUnprocessableEntity, "Message must be between 1 and 2000 characters")
	case errors.Is(err, finmath.ErrInvalidArgument):
		return fail(c, http.StatusUnprocessableEntity, err.Error())
	}
	b.log.Error(fallback, zap.String("path", c.Path()), zap.Error(err))
	return fail(c, http.StatusInternalServerError, fallback)
}

// errorHandler renders errors that escape handlers (unknown routes, bad
// methods, panics caught by Recover) in the same envelope.
func (b base) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := http.StatusInternalServerError, "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, isStr := he.Message.(string); isStr {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	} else {
		b.log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = fail(c, code, msg)
}
