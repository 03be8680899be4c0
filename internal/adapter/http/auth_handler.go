package http

import (
	"net/http"

	"finagent/internal/adapter/middleware"
	"finagent/internal/dto"
	"finagent/internal/usecase/account"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AuthHandler struct {
	base
	uc *account.Usecase
}

func NewAuthHandler(uc *account.Usecase, log *zap.Logger) *AuthHandler {
	return &AuthHandler{base: newBase(log), uc: uc}
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	out, err := h.uc.Login(c.Request().Context(), req)
	if err != nil {
		return h.failDomain(c, err, "Login failed")
	}
	return ok(c, http.StatusOK, out)
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	out, err := h.uc.Register(c.Request().Context(), req)
	if err != nil {
		return h.failDomain(c, err, "Registration failed")
	}
	return ok(c, http.StatusCreated, out)
}

// Logout only acknowledges; tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(c echo.Context) error {
	return ok(c, http.StatusOK, dto.MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) VerifyToken(c echo.Context) error {
	return ok(c, http.StatusOK, map[string]string{
		"message": "Token valid",
		"user_id": middleware.UserID(c),
	})
}

func (h *AuthHandler) Profile(c echo.Context) error {
	userID, allowed := ownUser(c)
	if !allowed {
		return fail(c, http.StatusForbidden, "Not allowed to access this profile")
	}
	out, err := h.uc.Profile(c.Request().Context(), userID)
	if err != nil {
		return h.failDomain(c, err, "Failed to load profile")
	}
	return ok(c, http.StatusOK, out)
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, allowed := ownUser(c)
	if !allowed {
		return fail(c, http.StatusForbidden, "Not allowed to access this profile")
	}
	var req dto.ProfileUpdate
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	out, err := h.uc.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return h.failDomain(c, err, "Failed to update profile")
	}
	return ok(c, http.StatusOK, out)
}

// ownUser reads the :user_id path parameter and reports whether it is the
// authenticated caller.
func ownUser(c echo.Context) (string, bool) {
	userID := c.Param("user_id")
	return userID, userID != "" && userID == middleware.UserID(c)
}
