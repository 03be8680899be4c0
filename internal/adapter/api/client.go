// Package api is the HTTP client for the loan API.
//
// Every route answers with the {success, data, error, message} envelope; bare
// bodies are accepted too, as older deployments return data and errors
// ({"detail": ...}) without it. Either way a failure comes back as *apperr.Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finagent/internal/apperr"
	"finagent/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultChatTimeout = 120 * time.Second

	HeaderRequestID = "X-Request-Id"

	maxBody = 16 << 20
)

const (
	msgTimeout     = "The request timed out. Please try again."
	msgUnreachable = "Unable to reach the server. Please check your connection."
	msgExpired     = "Your session has expired. Please sign in again."
	msgServer      = "Something went wrong on our side. Please try again."
)

// TokenSource supplies the bearer token; an empty string means anonymous.
type TokenSource interface {
	Token() string
}

type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func WithTimeouts(request, chat time.Duration) Option {
	return func(c *Client) {
		if request > 0 {
			c.timeout = request
		}
		if chat > 0 {
			c.chatTimeout = chat
		}
	}
}

func WithMetrics(m *metrics.Collector) Option { return func(c *Client) { c.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

type Client struct {
	baseURL     string
	hc          *http.Client
	timeout     time.Duration
	chatTimeout time.Duration

	tokens         TokenSource
	onUnauthorized func(ctx context.Context)

	metrics *metrics.Collector
	log     *zap.Logger
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		hc:          &http.Client{},
		timeout:     DefaultTimeout,
		chatTimeout: DefaultChatTimeout,
		log:         zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetTokenSource and SetUnauthorizedHandler close the loop with the session
// manager, which itself depends on this client. Call them before first use.
func (c *Client) SetTokenSource(ts TokenSource) { c.tokens = ts }

func (c *Client) SetUnauthorizedHandler(fn func(ctx context.Context)) { c.onUnauthorized = fn }

// request describes one call. route is the path template used as metric label.
type request struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any

	timeout   time.Duration
	requestID string

	// anonymous calls never carry the bearer token (login, register).
	anonymous bool
	// quiet calls do not report 401 to the unauthorized handler (logout).
	quiet bool
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// observe records one finished call under the kind of its final error.
func (c *Client) observe(route string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	c.metrics.ObserveClient(route, outcome, time.Since(start))
}

func (c *Client) send(ctx context.Context, r request) (*response, error) {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "could not encode request", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, msgUnreachable, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	reqID := r.requestID
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set(HeaderRequestID, reqID)

	var tok string
	if !r.anonymous {
		tok = c.token()
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug("api: transport error", zap.String("route", r.route), zap.String("request_id", reqID), zap.Error(err))
		return nil, transportError(ctx, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, transportError(ctx, err)
	}
	c.log.Debug("api: response",
		zap.String("method", r.method),
		zap.String("route", r.route),
		zap.Int("status", res.StatusCode),
		zap.String("request_id", reqID),
	)

	// 403 means signed in but not allowed; only 401 ends the session
	if res.StatusCode == http.StatusUnauthorized && tok != "" {
		if !r.quiet && c.onUnauthorized != nil {
			c.onUnauthorized(context.WithoutCancel(ctx))
		}
		return nil, apperr.Wrap(apperr.KindAuthorizationExpired, msgExpired, statusError(res.StatusCode, raw))
	}

	return &response{status: res.StatusCode, contentType: res.Header.Get("Content-Type"), body: raw}, nil
}

// call sends r and decodes the payload into out (may be nil).
func (c *Client) call(ctx context.Context, r request, out any) (err error) {
	start := time.Now()
	defer func() { c.observe(r.route, start, err) }()
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	return decode(resp.status, resp.body, out)
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindNetwork, msgTimeout, err)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return apperr.Wrap(apperr.KindNetwork, msgTimeout, err)
	}
	return apperr.Wrap(apperr.KindNetwork, msgUnreachable, err)
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

func decode(status int, body []byte, out any) error {
	var env envelope
	isJSON := len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &env) == nil

	ok := status >= 200 && status < 300
	if isJSON && env.Success != nil {
		ok = ok && *env.Success
	}
	if !ok {
		return failure(status, env, isJSON, body)
	}

	if out == nil {
		return nil
	}
	payload := body
	if isJSON && env.Success != nil {
		payload = env.Data
	}
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apperr.Wrap(apperr.KindServer, "Unexpected response from the server.", err)
	}
	return nil
}

func failure(status int, env envelope, isJSON bool, body []byte) error {
	msg := ""
	if isJSON {
		msg = firstNonEmpty(env.Error, detailText(env.Detail), env.Message)
	}
	kind := kindForStatus(status)
	if msg == "" {
		if kind == apperr.KindServer {
			msg = msgServer
		} else {
			msg = http.StatusText(status)
		}
	}
	return apperr.Wrap(kind, msg, statusError(status, body))
}

func kindForStatus(status int) apperr.Kind {
	switch {
	case status == http.StatusNotFound:
		return apperr.KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.KindAuthFailure
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return apperr.KindValidation
	default:
		// includes 2xx with success:false
		return apperr.KindServer
	}
}

// detailText flattens {"detail": "..."} and {"detail": [{"msg": "..."}]}.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &items) == nil {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				parts = append(parts, it.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func statusError(status int, body []byte) error {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return fmt.Errorf("http %d: %s", status, snippet)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
