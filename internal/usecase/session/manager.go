// Package session owns the signed-in user, the bearer token and the cached
// chat-session id. It is the only writer of the three durable slots.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"finagent/internal/apperr"
	"finagent/internal/domain/auth"
	"finagent/internal/domain/kv"
	"finagent/internal/dto"
	"finagent/pkg/finmath"

	"go.uber.org/zap"
)

const (
	MinPasswordLength = 6
	MinNameLength     = 2

	msgLoginFailed    = "Login failed. Please try again."
	msgRegisterFailed = "Registration failed. Please try again."
	msgProfileFailed  = "Could not load your profile. Please try again."
	msgSaveFailed     = "Could not save your session on this device."
	msgNotSignedIn    = "Please sign in to continue."
)

// AuthAPI is the slice of the loan API the manager talks to.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*dto.LoginResponse, error)
	Register(ctx context.Context, in dto.RegisterRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context) error
	GetProfile(ctx context.Context, userID string) (*dto.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, upd dto.ProfileUpdate) (*dto.UserProfile, error)
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option { return func(m *Manager) { m.log = l } }

// WithSignInRedirect sets the hook run when an authorization failure forces
// the user back to sign-in. It runs once per forced transition.
func WithSignInRedirect(fn func()) Option { return func(m *Manager) { m.redirect = fn } }

type Manager struct {
	api      AuthAPI
	store    kv.Store
	log      *zap.Logger
	redirect func()

	// mu guards the in-memory view only; the store is last-write-wins.
	mu    sync.RWMutex
	state auth.State
	token string
	user  *auth.User
}

// New restores any saved sign-in from store without touching the network.
func New(ctx context.Context, api AuthAPI, store kv.Store, opts ...Option) (*Manager, error) {
	m := &Manager{api: api, store: store, log: zap.NewNop()}
	for _, o := range opts {
		o(m)
	}
	if err := m.restore(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) restore(ctx context.Context) error {
	u, err := m.loadUser(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		m.state = auth.Unauthenticated
		return nil
	}
	tok, err := m.store.Get(ctx, kv.KeyToken)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return apperr.Wrap(apperr.KindUnknown, "could not read saved session", err)
	}
	m.user, m.token, m.state = u, tok, auth.Authenticated
	m.log.Debug("session restored", zap.String("user_id", u.UserID))
	return nil
}

// loadUser returns nil when no usable record is stored. A corrupt record is dropped.
func (m *Manager) loadUser(ctx context.Context) (*auth.User, error) {
	raw, err := m.store.Get(ctx, kv.KeyUser)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, "could not read saved session", err)
	}
	var u auth.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.UserID == "" {
		m.log.Warn("discarding unreadable saved user", zap.Error(err))
		_ = m.store.Delete(ctx, kv.KeyToken, kv.KeyUser, kv.KeySessionID)
		return nil, nil
	}
	return &u, nil
}

func (m *Manager) State() auth.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) IsAuthenticated() bool { return m.State() == auth.Authenticated }

// Token satisfies api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *auth.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (*auth.User, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	prior := m.begin()
	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.abort(prior)
		m.log.Info("sign-in rejected", zap.String("email", email), zap.Error(err))
		return nil, authError(err, msgLoginFailed)
	}

	u := &auth.User{
		UserID:              resp.UserID,
		Email:               firstNonEmpty(resp.Email, email),
		FullName:            resp.FullName,
		CreditScoreEstimate: auth.DefaultCreditScoreEstimate,
		Segment:             auth.DefaultSegment,
	}
	if err := m.commit(ctx, resp.AccessToken, u, prior); err != nil {
		return nil, err
	}
	m.log.Info("signed in", zap.String("user_id", u.UserID))
	return m.User(), nil
}

type SignUpInput struct {
	Email         string
	Password      string
	FullName      string
	MonthlyIncome float64
	ExistingEMI   float64

	// Zero values fall back to auth.DefaultCreditScoreEstimate and auth.DefaultSegment.
	CreditScoreEstimate int
	Segment             string
}

func (m *Manager) SignUp(ctx context.Context, in SignUpInput) (*auth.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}
	if len([]rune(in.FullName)) < MinNameLength {
		return nil, apperr.New(apperr.KindValidation, "Please enter your full name.")
	}
	if !(in.MonthlyIncome > 0) {
		return nil, apperr.New(apperr.KindValidation, "Monthly income must be greater than zero.")
	}
	if !(in.ExistingEMI >= 0) {
		return nil, apperr.New(apperr.KindValidation, "Existing EMI cannot be negative.")
	}

	prior := m.begin()
	resp, err := m.api.Register(ctx, dto.RegisterRequest{
		Email:         in.Email,
		Password:      in.Password,
		FullName:      in.FullName,
		MonthlyIncome: in.MonthlyIncome,
		ExistingEMI:   in.ExistingEMI,
	})
	if err != nil {
		m.abort(prior)
		m.log.Info("sign-up rejected", zap.String("email", in.Email), zap.Error(err))
		return nil, authError(err, msgRegisterFailed)
	}

	score := in.CreditScoreEstimate
	if score == 0 {
		score = auth.DefaultCreditScoreEstimate
	}
	segment := in.Segment
	if segment == "" {
		segment = auth.DefaultSegment
	}
	u := &auth.User{
		UserID:              resp.UserID,
		Email:               firstNonEmpty(resp.Email, in.Email),
		FullName:            firstNonEmpty(resp.FullName, in.FullName),
		MonthlyIncome:       in.MonthlyIncome,
		ExistingEMI:         in.ExistingEMI,
		CreditScoreEstimate: score,
		Segment:             segment,
	}
	if err := m.commit(ctx, resp.AccessToken, u, prior); err != nil {
		return nil, err
	}
	m.log.Info("signed up", zap.String("user_id", u.UserID))
	return m.User(), nil
}

// SignOut never fails: the logout call is best-effort and local state is
// always cleared.
func (m *Manager) SignOut(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		m.log.Info("logout call failed; clearing local session anyway", zap.Error(err))
	}
	m.clear(ctx)
	m.log.Info("signed out")
}

// OnUnauthorized is the HTTP layer's hook for a 401 on an authenticated
// call. Repeated calls are harmless; the redirect hook runs only on the call
// that actually leaves a signed-in state.
func (m *Manager) OnUnauthorized(ctx context.Context) {
	m.mu.RLock()
	wasSignedIn := m.state != auth.Unauthenticated || m.token != "" || m.user != nil
	m.mu.RUnlock()

	m.clear(ctx)
	if !wasSignedIn {
		return
	}
	m.log.Warn("authorization expired; signed out")
	if m.redirect != nil {
		m.redirect()
	}
}

// RefreshUser reloads the user from durable storage. No network. A record
// found while signed out is ignored; only sign-in pairs a user with a token.
func (m *Manager) RefreshUser(ctx context.Context) (*auth.User, error) {
	u, err := m.loadUser(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	switch {
	case u == nil:
		m.state, m.token, m.user = auth.Unauthenticated, "", nil
	case m.state == auth.Authenticated:
		m.user = u
	}
	m.mu.Unlock()
	return m.User(), nil
}

// SyncProfile fetches the server profile and persists it.
func (m *Manager) SyncProfile(ctx context.Context) (*auth.User, error) {
	cur := m.User()
	if cur == nil {
		return nil, apperr.New(apperr.KindAuthFailure, msgNotSignedIn)
	}
	p, err := m.api.GetProfile(ctx, cur.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOf(err), apperr.Message(err, msgProfileFailed), err)
	}
	return m.saveProfile(ctx, cur, p)
}

func (m *Manager) UpdateProfile(ctx context.Context, upd dto.ProfileUpdate) (*auth.User, error) {
	cur := m.User()
	if cur == nil {
		return nil, apperr.New(apperr.KindAuthFailure, msgNotSignedIn)
	}
	if err := validateProfileUpdate(&upd); err != nil {
		return nil, err
	}
	p, err := m.api.UpdateProfile(ctx, cur.UserID, upd)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOf(err), apperr.Message(err, msgProfileFailed), err)
	}
	return m.saveProfile(ctx, cur, p)
}

func (m *Manager) saveProfile(ctx context.Context, cur *auth.User, p *dto.UserProfile) (*auth.User, error) {
	u := *cur
	u.FullName = firstNonEmpty(p.FullName, u.FullName)
	u.Email = firstNonEmpty(p.Email, u.Email)
	u.Phone = firstNonEmpty(p.Phone, u.Phone)
	u.MonthlyIncome = p.MonthlyIncome
	u.ExistingEMI = p.ExistingEMI
	if p.MockCreditScore > 0 {
		u.CreditScoreEstimate = p.MockCreditScore
	}
	u.Segment = firstNonEmpty(p.Segment, u.Segment)

	if err := m.putUser(ctx, &u); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	return m.User(), nil
}

// GetOrCreateSessionID returns the cached chat-session id for userID, or ""
// when none is cached. It never invents one; the backend mints ids.
func (m *Manager) GetOrCreateSessionID(ctx context.Context, userID string) (string, error) {
	if u := m.User(); u == nil || u.UserID != userID {
		return "", nil
	}
	id, err := m.store.Get(ctx, kv.KeySessionID)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnknown, "could not read chat session", err)
	}
	return id, nil
}

func (m *Manager) RememberSessionID(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.store.Set(ctx, kv.KeySessionID, sessionID); err != nil {
		return apperr.Wrap(apperr.KindUnknown, msgSaveFailed, err)
	}
	return nil
}

func (m *Manager) ClearSessionID(ctx context.Context) error {
	if err := m.store.Delete(ctx, kv.KeySessionID); err != nil {
		return apperr.Wrap(apperr.KindUnknown, msgSaveFailed, err)
	}
	return nil
}

// begin enters Authenticating and returns the state to fall back to.
func (m *Manager) begin() auth.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	prior := m.state
	m.state = auth.Authenticating
	return prior
}

func (m *Manager) abort(prior auth.State) {
	m.mu.Lock()
	m.state = prior
	m.mu.Unlock()
}

// commit persists a fresh sign-in. The slots are written token first; when
// any write fails the ones already written get their previous values back,
// so the stored user and token always belong together.
func (m *Manager) commit(ctx context.Context, token string, u *auth.User, prior auth.State) error {
	raw, err := json.Marshal(u)
	if err != nil {
		m.abort(prior)
		return err
	}
	prev := m.snapshot(ctx)
	writes := []struct{ key, value string }{
		{kv.KeyToken, token},
		{kv.KeyUser, string(raw)},
	}
	for i, w := range writes {
		if serr := m.store.Set(ctx, w.key, w.value); serr != nil {
			for _, done := range writes[:i] {
				m.putBack(ctx, done.key, prev)
			}
			m.abort(prior)
			return apperr.Wrap(apperr.KindUnknown, msgSaveFailed, serr)
		}
	}
	// the previous user's chat session must not carry over
	if derr := m.store.Delete(ctx, kv.KeySessionID); derr != nil {
		m.log.Warn("could not drop cached chat session", zap.Error(derr))
	}

	m.mu.Lock()
	m.state, m.token, m.user = auth.Authenticated, token, u
	m.mu.Unlock()
	return nil
}

// snapshot reads the token and user slots; unreadable or absent slots are omitted.
func (m *Manager) snapshot(ctx context.Context) map[string]string {
	out := map[string]string{}
	for _, k := range []string{kv.KeyToken, kv.KeyUser} {
		if v, err := m.store.Get(ctx, k); err == nil {
			out[k] = v
		}
	}
	return out
}

func (m *Manager) putBack(ctx context.Context, key string, prev map[string]string) {
	var err error
	if v, ok := prev[key]; ok {
		err = m.store.Set(ctx, key, v)
	} else {
		err = m.store.Delete(ctx, key)
	}
	if err != nil {
		m.log.Error("could not restore saved session slot", zap.String("key", key), zap.Error(err))
	}
}

func (m *Manager) putUser(ctx context.Context, u *auth.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, kv.KeyUser, string(raw)); err != nil {
		return apperr.Wrap(apperr.KindUnknown, msgSaveFailed, err)
	}
	return nil
}

// clear wipes the three slots and the in-memory view. Storage errors are logged.
func (m *Manager) clear(ctx context.Context) {
	m.mu.Lock()
	m.state, m.token, m.user = auth.Unauthenticated, "", nil
	m.mu.Unlock()

	if err := m.store.Delete(ctx, kv.KeyToken, kv.KeyUser, kv.KeySessionID); err != nil {
		m.log.Error("could not clear stored session", zap.Error(err))
	}
}

func validateCredentials(email, password string) error {
	if !finmath.ValidateEmail(email) {
		return apperr.New(apperr.KindValidation, "Please enter a valid email address.")
	}
	if len(password) < MinPasswordLength {
		return apperr.New(apperr.KindValidation, "Password must be at least 6 characters.")
	}
	return nil
}

func validateProfileUpdate(upd *dto.ProfileUpdate) error {
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if len([]rune(name)) < MinNameLength {
			return apperr.New(apperr.KindValidation, "Please enter your full name.")
		}
		upd.FullName = &name
	}
	if upd.Phone != nil {
		if !finmath.ValidatePhone(*upd.Phone) {
			return apperr.New(apperr.KindValidation, "Please enter a valid 10-digit mobile number.")
		}
		phone := strings.Join(strings.Fields(*upd.Phone), "")
		upd.Phone = &phone
	}
	if upd.MonthlyIncome != nil && !(*upd.MonthlyIncome > 0) {
		return apperr.New(apperr.KindValidation, "Monthly income must be greater than zero.")
	}
	if upd.ExistingEMI != nil && !(*upd.ExistingEMI >= 0) {
		return apperr.New(apperr.KindValidation, "Existing EMI cannot be negative.")
	}
	return nil
}

// authError prefers the backend's message. Transport failures keep their kind
// but show the generic text.
func authError(err error, generic string) error {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindNetwork, apperr.KindUnknown:
		return apperr.Wrap(apperr.KindNetwork, generic, err)
	case apperr.KindServer:
		return apperr.Wrap(apperr.KindServer, apperr.Message(err, generic), err)
	}
	return apperr.Wrap(apperr.KindAuthFailure, apperr.Message(err, generic), err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
