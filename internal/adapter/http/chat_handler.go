package http

import (
	"net/http"

	"finagent/internal/adapter/middleware"
	"finagent/internal/dto"
	"finagent/internal/usecase/assistant"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ChatHandler struct {
	base
	svc *assistant.Service
}

func NewChatHandler(svc *assistant.Service, log *zap.Logger) *ChatHandler {
	return &ChatHandler{base: newBase(log), svc: svc}
}

func (h *ChatHandler) Send(c echo.Context) error {
	var req dto.ChatRequest
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if req.UserID != middleware.UserID(c) {
		return fail(c, http.StatusBadRequest, "user_id does not match the signed-in user")
	}
	out, err := h.svc.Send(c.Request().Context(), req.UserID, req.SessionID, req.Message)
	if err != nil {
		return h.failDomain(c, err, "Failed to process message")
	}
	return ok(c, http.StatusOK, out)
}

func (h *ChatHandler) History(c echo.Context) error {
	out, err := h.svc.History(c.Request().Context(), middleware.UserID(c), c.Param("session_id"))
	if err != nil {
		return h.failDomain(c, err, "Failed to load history")
	}
	return ok(c, http.StatusOK, out)
}

func (h *ChatHandler) Info(c echo.Context) error {
	out, err := h.svc.Info(c.Request().Context(), middleware.UserID(c), c.Param("session_id"))
	if err != nil {
		return h.failDomain(c, err, "Failed to load session")
	}
	return ok(c, http.StatusOK, out)
}

func (h *ChatHandler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), middleware.UserID(c), c.Param("session_id")); err != nil {
		return h.failDomain(c, err, "Failed to delete session")
	}
	return ok(c, http.StatusOK, dto.MessageResponse{Message: "Session deleted successfully"})
}
