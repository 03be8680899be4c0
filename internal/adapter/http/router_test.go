package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finagent/internal/adapter/repository/mysql"
	"finagent/internal/domain/loan"
	"finagent/internal/dto"
	"finagent/internal/infrastructure/db"
	"finagent/internal/infrastructure/jwtauth"
	"finagent/internal/usecase/account"
	"finagent/internal/usecase/approval"
	"finagent/internal/usecase/assistant"
	loanuc "finagent/internal/usecase/loan"
	"finagent/pkg/metrics"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	e         *echo.Echo
	approvals *approval.Usecase
}

func newTestServer(t *testing.T, rdb redis.UniversalClient) *testServer {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(mysql.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	users := mysql.NewUserRepository(gdb)
	issuer := jwtauth.NewIssuer("router-test-secret", time.Hour)
	approvals := approval.NewUsecase(mysql.NewUnitOfWork(gdb))

	e := echo.New()
	Register(e, Deps{
		Accounts:  account.NewUsecase(users, issuer, account.WithHashCost(bcrypt.MinCost)),
		Loans:     loanuc.NewUsecase(mysql.NewLoanRepository(gdb)),
		Approvals: approvals,
		Assistant: assistant.NewService(users, approvals),
		Tokens:    issuer,
		Redis:     rdb,
		IdempTTL:  time.Minute,
		Metrics:   metrics.NewCollector(),
	})
	return &testServer{e: e, approvals: approvals}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env dto.Envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.True(t, env.Success, rec.Body.String())
	require.NotNil(t, env.Data)
	return *env.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.False(t, env.Success)
	return env.Error
}

func (s *testServer) register(t *testing.T, email string) dto.LoginResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/register", "", dto.RegisterRequest{
		Email: email, Password: "secret123", FullName: "Asha Rao", MonthlyIncome: 90000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[dto.LoginResponse](t, rec)
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	acct := s.register(t, "asha@example.com")
	assert.Equal(t, "bearer", acct.TokenType)
	assert.NotEmpty(t, acct.AccessToken)

	t.Run("duplicate register", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/register", "", dto.RegisterRequest{
			Email: "ASHA@example.com", Password: "secret123", FullName: "Other", MonthlyIncome: 1,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "User already exists", decodeError(t, rec))
	})

	t.Run("login wrong password", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: "asha@example.com", Password: "wrong-pass"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decodeError(t, rec))
	})

	t.Run("login ok", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: "asha@example.com", Password: "secret123"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, acct.UserID, decodeData[dto.LoginResponse](t, rec).UserID)
	})

	t.Run("login validation", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: "nope", Password: "x"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeError(t, rec), "Validation failed")
	})

	t.Run("profile round trip", func(t *testing.T) {
		path := "/auth/profile/" + acct.UserID
		rec := s.do(t, http.MethodGet, path, acct.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		p := decodeData[dto.UserProfile](t, rec)
		assert.Equal(t, 90000.0, p.MonthlyIncome)

		phone := "9876543210"
		rec = s.do(t, http.MethodPut, path, acct.AccessToken, dto.ProfileUpdate{Phone: &phone})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, phone, decodeData[dto.UserProfile](t, rec).Phone)

		bad := "12345"
		rec = s.do(t, http.MethodPut, path, acct.AccessToken, dto.ProfileUpdate{Phone: &bad})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("profile of someone else", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/auth/profile/other-user", acct.AccessToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing and bad token", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/auth/profile/"+acct.UserID, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		rec = s.do(t, http.MethodGet, "/auth/profile/"+acct.UserID, "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid or expired token", decodeError(t, rec))
	})

	t.Run("verify and logout", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/auth/verify-token", acct.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, acct.UserID, decodeData[map[string]string](t, rec)["user_id"])

		rec = s.do(t, http.MethodPost, "/auth/logout", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Logged out successfully", decodeData[dto.MessageResponse](t, rec).Message)
	})
}

func TestChatToSanctionFlow(t *testing.T) {
	s := newTestServer(t, nil)
	acct := s.register(t, "ravi@example.com")
	tok := acct.AccessToken

	send := func(sessionID *string, msg string) dto.ChatResponse {
		rec := s.do(t, http.MethodPost, "/chat/", tok, dto.ChatRequest{SessionID: sessionID, UserID: acct.UserID, Message: msg})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decodeData[dto.ChatResponse](t, rec)
	}

	first := send(nil, "I need 5 lakh for 36 months")
	require.NotEmpty(t, first.SessionID)
	assert.Contains(t, first.Reply, "Shall I proceed")

	done := send(&first.SessionID, "yes, go ahead")
	assert.Equal(t, first.SessionID, done.SessionID)
	assert.Equal(t, string(loan.DecisionApproved), done.Decision)
	require.NotEmpty(t, done.LoanID)
	assert.Equal(t, "/loan/"+done.LoanID+"/sanction-pdf", done.Meta["sanction_pdf_url"])

	rec := s.do(t, http.MethodGet, "/chat/history/"+first.SessionID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decodeData[dto.HistoryResponse](t, rec).Count)

	rec = s.do(t, http.MethodGet, "/chat/session/"+first.SessionID+"/info", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SANCTION_GENERATED", decodeData[dto.SessionInfo](t, rec).CurrentStep)

	rec = s.do(t, http.MethodGet, "/loan/"+done.LoanID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeData[dto.LoanSummary](t, rec)
	assert.Equal(t, 500000.0, summary.ApprovedAmount)
	assert.Equal(t, "Asha Rao", summary.FullName)

	rec = s.do(t, http.MethodGet, "/loan/user/"+acct.UserID+"/loans", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]dto.LoanSummary](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/loan/"+done.LoanID+"/sanction-pdf", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "sanction_letter_"+done.LoanID+".pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = s.do(t, http.MethodGet, "/admin/metrics", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decodeData[dto.AdminMetrics](t, rec)
	assert.Equal(t, 1, m.TotalApplications)
	assert.Equal(t, 1, m.ApprovedCount)

	rec = s.do(t, http.MethodGet, "/admin/loans?decision=APPROVED&page_size=5", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decodeData[dto.AdminLoansResponse](t, rec)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 5, page.PageSize)

	rec = s.do(t, http.MethodDelete, "/chat/session/"+first.SessionID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/chat/history/"+first.SessionID, tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Session not found", decodeError(t, rec))
}

func TestChatRoutes_Errors(t *testing.T) {
	s := newTestServer(t, nil)
	acct := s.register(t, "meera@example.com")

	rec := s.do(t, http.MethodPost, "/chat/", acct.AccessToken, dto.ChatRequest{UserID: "someone-else", Message: "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/chat/", acct.AccessToken, dto.ChatRequest{UserID: acct.UserID})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/chat/session/nope/info", acct.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// unknown session ids start a new conversation
	stale := "stale-session"
	rec = s.do(t, http.MethodPost, "/chat/", acct.AccessToken, dto.ChatRequest{SessionID: &stale, UserID: acct.UserID, Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, stale, decodeData[dto.ChatResponse](t, rec).SessionID)
}

func TestChatRoutes_Idempotent(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	s := newTestServer(t, redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	acct := s.register(t, "kiran@example.com")

	body := dto.ChatRequest{UserID: acct.UserID, Message: "hello"}
	const reqID = "3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88"
	first := s.do(t, http.MethodPost, "/chat/", acct.AccessToken, body, "X-Request-Id", reqID)
	require.Equal(t, http.StatusOK, first.Code)
	again := s.do(t, http.MethodPost, "/chat/", acct.AccessToken, body, "X-Request-Id", reqID)
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "true", again.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, first.Body.String(), again.Body.String())
}

func TestLoanRoutes_Errors(t *testing.T) {
	s := newTestServer(t, nil)
	acct := s.register(t, "dev@example.com")
	tok := acct.AccessToken

	rec := s.do(t, http.MethodGet, "/loan/LN-MISSING", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Loan application not found", decodeError(t, rec))

	rec = s.do(t, http.MethodGet, "/loan/LN-MISSING/sanction-pdf", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rejected, err := s.approvals.Record(t.Context(), approval.RecordInput{
		UserID: acct.UserID, RequestedAmount: 300000, RequestedTenure: 24,
		TenureMonths: 24, InterestRate: 12, CreditScore: 600,
		Decision: loan.DecisionRejected, RiskBand: loan.RiskC,
	})
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/loan/"+rejected.LoanID+"/sanction-pdf", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Sanction letter only available for approved loans", decodeError(t, rec))

	rec = s.do(t, http.MethodGet, "/loan/user/"+acct.UserID+"/loans?limit=abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/loan/user/other/loans", tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/loans?risk_band=Z", tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = s.do(t, http.MethodGet, "/admin/loans?page=x", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/nowhere", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	decodeError(t, rec)
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/health", "", nil)
	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
