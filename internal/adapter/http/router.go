package http

import (
	"time"

	"finagent/internal/adapter/middleware"
	"finagent/internal/usecase/account"
	"finagent/internal/usecase/approval"
	"finagent/internal/usecase/assistant"
	"finagent/internal/usecase/loan"
	"finagent/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps is everything the route table needs. Redis and Metrics may be nil.
type Deps struct {
	Accounts  *account.Usecase
	Loans     *loan.Usecase
	Approvals *approval.Usecase
	Assistant *assistant.Service
	Tokens    middleware.TokenVerifier

	Redis    redis.UniversalClient
	IdempTTL time.Duration
	Metrics  *metrics.Collector
	Checks   map[string]Pinger
	Logger   *zap.Logger
}

// Register installs the validator and every route of the loan API on e.
func Register(e *echo.Echo, d Deps) {
	e.Validator = NewValidator()
	e.HTTPErrorHandler = newBase(d.Logger).errorHandler

	e.GET("/health", NewHandler(d.Checks).Health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	authed := middleware.BearerAuth(d.Tokens)

	ah := NewAuthHandler(d.Accounts, d.Logger)
	auth := e.Group("/auth")
	auth.POST("/login", ah.Login)
	auth.POST("/register", ah.Register)
	auth.POST("/logout", ah.Logout)
	auth.GET("/verify-token", ah.VerifyToken, authed)
	auth.GET("/profile/:user_id", ah.Profile, authed)
	auth.PUT("/profile/:user_id", ah.UpdateProfile, authed)

	ch := NewChatHandler(d.Assistant, d.Logger)
	chat := e.Group("/chat", authed)
	send := []echo.MiddlewareFunc{}
	if d.Redis != nil {
		send = append(send, middleware.Idempotency(d.Redis, d.IdempTTL, d.Logger))
	}
	chat.POST("/", ch.Send, send...)
	chat.GET("/history/:session_id", ch.History)
	chat.GET("/session/:session_id/info", ch.Info)
	chat.DELETE("/session/:session_id", ch.Delete)

	lh := NewLoanHandler(d.Loans, d.Approvals, d.Logger)
	loans := e.Group("/loan", authed)
	loans.GET("/user/:user_id/loans", lh.UserLoans)
	loans.GET("/:loan_id", lh.GetLoan)
	loans.GET("/:loan_id/sanction-pdf", lh.SanctionPDF)
	loans.GET("/:loan_id/sanction-info", lh.SanctionInfo)

	adh := NewAdminHandler(d.Loans, d.Logger)
	admin := e.Group("/admin", authed)
	admin.GET("/metrics", adh.Metrics)
	admin.GET("/loans", adh.Loans)
}
