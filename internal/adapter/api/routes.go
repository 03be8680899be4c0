package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"finagent/internal/apperr"
	"finagent/internal/dto"
)

func (c *Client) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	err := c.call(ctx, request{
		method: http.MethodPost, route: "/auth/login", path: "/auth/login",
		body:      dto.LoginRequest{Email: email, Password: password},
		anonymous: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, in dto.RegisterRequest) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	err := c.call(ctx, request{
		method: http.MethodPost, route: "/auth/register", path: "/auth/register",
		body:      in,
		anonymous: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout is best-effort; a rejected token is not reported as an expiry.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, request{
		method: http.MethodPost, route: "/auth/logout", path: "/auth/logout",
		quiet: true,
	}, nil)
}

func (c *Client) GetProfile(ctx context.Context, userID string) (*dto.UserProfile, error) {
	var out dto.UserProfile
	err := c.call(ctx, request{
		method: http.MethodGet, route: "/auth/profile/{id}", path: "/auth/profile/" + url.PathEscape(userID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, upd dto.ProfileUpdate) (*dto.UserProfile, error) {
	var out dto.UserProfile
	err := c.call(ctx, request{
		method: http.MethodPut, route: "/auth/profile/{id}", path: "/auth/profile/" + url.PathEscape(userID),
		body: upd,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendChat posts one message under the long chat timeout. requestID, when set,
// lets the server replay the stored reply if the same send is retried.
func (c *Client) SendChat(ctx context.Context, in dto.ChatRequest, requestID string) (*dto.ChatResponse, error) {
	var out dto.ChatResponse
	err := c.call(ctx, request{
		method: http.MethodPost, route: "/chat/", path: "/chat/",
		body:      in,
		timeout:   c.chatTimeout,
		requestID: requestID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ChatHistory accepts both a bare message list and the {history: [...]} object.
func (c *Client) ChatHistory(ctx context.Context, sessionID string) ([]dto.ChatMessage, error) {
	var raw json.RawMessage
	err := c.call(ctx, request{
		method: http.MethodGet, route: "/chat/history/{id}", path: "/chat/history/" + url.PathEscape(sessionID),
	}, &raw)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	var msgs []dto.ChatMessage
	if raw[0] == '[' {
		err = json.Unmarshal(raw, &msgs)
	} else {
		var h dto.HistoryResponse
		err = json.Unmarshal(raw, &h)
		msgs = h.History
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindServer, "Unexpected response from the server.", err)
	}
	return msgs, nil
}

func (c *Client) SessionInfo(ctx context.Context, sessionID string) (*dto.SessionInfo, error) {
	var out dto.SessionInfo
	err := c.call(ctx, request{
		method: http.MethodGet, route: "/chat/session/{id}/info", path: "/chat/session/" + url.PathEscape(sessionID) + "/info",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.call(ctx, request{
		method: http.MethodDelete, route: "/chat/session/{id}", path: "/chat/session/" + url.PathEscape(sessionID),
	}, nil)
}

func (c *Client) GetLoan(ctx context.Context, loanID string) (*dto.LoanSummary, error) {
	var out dto.LoanSummary
	err := c.call(ctx, request{
		method: http.MethodGet, route: "/loan/{id}", path: "/loan/" + url.PathEscape(loanID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UserLoans(ctx context.Context, userID string) ([]dto.LoanSummary, error) {
	var out []dto.LoanSummary
	err := c.call(ctx, request{
		method: http.MethodGet, route: "/loan/user/{id}/loans", path: "/loan/user/" + url.PathEscape(userID) + "/loans",
	}, &out)
	return out, err
}

// SanctionPDF returns the raw payload and its content type. The body is not
// checked here; callers decide whether it is a usable PDF.
func (c *Client) SanctionPDF(ctx context.Context, loanID string) (_ []byte, _ string, err error) {
	r := request{
		method: http.MethodGet, route: "/loan/{id}/sanction-pdf", path: "/loan/" + url.PathEscape(loanID) + "/sanction-pdf",
	}
	start := time.Now()
	defer func() { c.observe(r.route, start, err) }()

	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, "", err
	}
	if resp.status < 200 || resp.status >= 300 {
		return nil, resp.contentType, decode(resp.status, resp.body, nil)
	}
	return resp.body, resp.contentType, nil
}

func (c *Client) AdminMetrics(ctx context.Context) (*dto.AdminMetrics, error) {
	var out dto.AdminMetrics
	err := c.call(ctx, request{
		method: http.MethodGet, route: "/admin/metrics", path: "/admin/metrics",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminLoans(ctx context.Context, f dto.LoanFilter) (*dto.AdminLoansResponse, error) {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if f.Decision != "" {
		q.Set("decision", f.Decision)
	}
	if f.RiskBand != "" {
		q.Set("risk_band", f.RiskBand)
	}
	var out dto.AdminLoansResponse
	err := c.call(ctx, request{
		method: http.MethodGet, route: "/admin/loans", path: "/admin/loans", query: q,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
