package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"finagent/internal/adapter/api"
	"finagent/internal/apperr"
	"finagent/internal/domain/auth"
	"finagent/internal/domain/kv"
	"finagent/internal/dto"
	"finagent/internal/testutil/kvmock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a function-backed AuthAPI; unset methods fail the test.
type fakeAPI struct {
	t           *testing.T
	loginFn     func(ctx context.Context, email, password string) (*dto.LoginResponse, error)
	registerFn  func(ctx context.Context, in dto.RegisterRequest) (*dto.LoginResponse, error)
	logoutFn    func(ctx context.Context) error
	profileFn   func(ctx context.Context, userID string) (*dto.UserProfile, error)
	updateFn    func(ctx context.Context, userID string, upd dto.ProfileUpdate) (*dto.UserProfile, error)
	loginCalls  int
	logoutCalls int
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	f.loginCalls++
	if f.loginFn == nil {
		f.t.Fatalf("unexpected Login call")
	}
	return f.loginFn(ctx, email, password)
}

func (f *fakeAPI) Register(ctx context.Context, in dto.RegisterRequest) (*dto.LoginResponse, error) {
	if f.registerFn == nil {
		f.t.Fatalf("unexpected Register call")
	}
	return f.registerFn(ctx, in)
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.logoutCalls++
	if f.logoutFn == nil {
		return nil
	}
	return f.logoutFn(ctx)
}

func (f *fakeAPI) GetProfile(ctx context.Context, userID string) (*dto.UserProfile, error) {
	if f.profileFn == nil {
		f.t.Fatalf("unexpected GetProfile call")
	}
	return f.profileFn(ctx, userID)
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, userID string, upd dto.ProfileUpdate) (*dto.UserProfile, error) {
	if f.updateFn == nil {
		f.t.Fatalf("unexpected UpdateProfile call")
	}
	return f.updateFn(ctx, userID, upd)
}

func demoLogin(_ context.Context, email, password string) (*dto.LoginResponse, error) {
	if email == "demo@example.com" && password == "demo123" {
		return &dto.LoginResponse{AccessToken: "tok-demo", UserID: "u-demo", FullName: "Demo User", Email: email}, nil
	}
	return nil, apperr.New(apperr.KindAuthFailure, "Invalid email or password")
}

func savedUser(t *testing.T, store kv.Store, u auth.User, token string) {
	t.Helper()
	raw, err := json.Marshal(u)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, kv.KeyUser, string(raw)))
	if token != "" {
		require.NoError(t, store.Set(ctx, kv.KeyToken, token))
	}
}

func TestNew_StartsUnauthenticatedOnEmptyStore(t *testing.T) {
	m, err := New(context.Background(), &fakeAPI{t: t}, kvmock.New())
	require.NoError(t, err)
	assert.Equal(t, auth.Unauthenticated, m.State())
	assert.Empty(t, m.Token())
	assert.Nil(t, m.User())
}

func TestNew_RestoresSavedUserWithoutNetwork(t *testing.T) {
	store := kvmock.New()
	savedUser(t, store, auth.User{UserID: "u-1", Email: "a@b.co", FullName: "A"}, "tok-1")
	f := &fakeAPI{t: t}

	m, err := New(context.Background(), f, store)
	require.NoError(t, err)
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "tok-1", m.Token())
	assert.Equal(t, "u-1", m.User().UserID)
	assert.Zero(t, f.loginCalls)
}

func TestNew_DropsCorruptUser(t *testing.T) {
	store := kvmock.New()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, kv.KeyUser, "{broken"))
	require.NoError(t, store.Set(ctx, kv.KeyToken, "tok"))

	m, err := New(ctx, &fakeAPI{t: t}, store)
	require.NoError(t, err)
	assert.Equal(t, auth.Unauthenticated, m.State())
	assert.Empty(t, store.Snapshot())
}

func TestNew_StorageFailure(t *testing.T) {
	store := kvmock.New()
	store.GetErr = errors.New("disk gone")
	_, err := New(context.Background(), &fakeAPI{t: t}, store)
	require.Error(t, err)
}

func TestSignIn_Success_PersistsAndDropsOldSession(t *testing.T) {
	ctx := context.Background()
	store := kvmock.New()
	require.NoError(t, store.Set(ctx, kv.KeySessionID, "old-session"))

	m, err := New(ctx, &fakeAPI{t: t, loginFn: demoLogin}, store)
	require.NoError(t, err)

	u, err := m.SignIn(ctx, "demo@example.com", "demo123")
	require.NoError(t, err)
	assert.Equal(t, "u-demo", u.UserID)
	assert.Equal(t, auth.DefaultCreditScoreEstimate, u.CreditScoreEstimate)

	assert.Equal(t, auth.Authenticated, m.State())
	assert.Equal(t, "tok-demo", m.Token())

	snap := store.Snapshot()
	assert.Equal(t, "tok-demo", snap[kv.KeyToken])
	assert.Contains(t, snap[kv.KeyUser], `"user_id":"u-demo"`)
	_, hasSession := snap[kv.KeySessionID]
	assert.False(t, hasSession, "previous chat session must not survive sign-in")
}

func TestSignIn_LocalValidationSkipsNetwork(t *testing.T) {
	f := &fakeAPI{t: t}
	m, _ := New(context.Background(), f, kvmock.New())

	cases := []struct{ email, password string }{
		{"not-an-email", "demo123"},
		{"a@b.com", "12345"},
		{"", ""},
	}
	for _, tc := range cases {
		_, err := m.SignIn(context.Background(), tc.email, tc.password)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%q/%q", tc.email, tc.password)
	}
	assert.Zero(t, f.loginCalls)
	assert.Equal(t, auth.Unauthenticated, m.State())
}

func TestSignIn_FailureKeepsPriorStateAndCredentials(t *testing.T) {
	ctx := context.Background()
	store := kvmock.New()
	savedUser(t, store, auth.User{UserID: "u-1", Email: "a@b.co"}, "tok-1")
	require.NoError(t, store.Set(ctx, kv.KeySessionID, "s-1"))

	m, _ := New(ctx, &fakeAPI{t: t, loginFn: demoLogin}, store)
	before := store.Snapshot()

	_, err := m.SignIn(ctx, "demo@example.com", "wrong-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuthFailure)
	assert.Equal(t, "Invalid email or password", apperr.Message(err, ""))

	assert.Equal(t, auth.Authenticated, m.State(), "returns to prior state")
	assert.Equal(t, "tok-1", m.Token())
	assert.Equal(t, before, store.Snapshot(), "stored credentials untouched")
}

func TestSignIn_FailureMessages(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantKind error
		wantMsg  string
	}{
		{"backend detail", apperr.New(apperr.KindAuthFailure, "Account locked"), apperr.ErrAuthFailure, "Account locked"},
		{"no detail", apperr.New(apperr.KindAuthFailure, ""), apperr.ErrAuthFailure, msgLoginFailed},
		{"network", apperr.New(apperr.KindNetwork, "The request timed out."), apperr.ErrNetwork, msgLoginFailed},
		{"plain error", errors.New("boom"), apperr.ErrNetwork, msgLoginFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeAPI{t: t, loginFn: func(context.Context, string, string) (*dto.LoginResponse, error) { return nil, tc.err }}
			m, _ := New(context.Background(), f, kvmock.New())
			_, err := m.SignIn(context.Background(), "a@b.co", "secret1")
			assert.ErrorIs(t, err, tc.wantKind)
			assert.Equal(t, tc.wantMsg, apperr.Message(err, ""))
			assert.Equal(t, auth.Unauthenticated, m.State())
		})
	}
}

func TestSignIn_StorageFailureAborts(t *testing.T) {
	store := kvmock.New()
	m, _ := New(context.Background(), &fakeAPI{t: t, loginFn: demoLogin}, store)
	store.SetErr = errors.New("read-only")

	_, err := m.SignIn(context.Background(), "demo@example.com", "demo123")
	require.Error(t, err)
	assert.Equal(t, msgSaveFailed, apperr.Message(err, ""))
	assert.Equal(t, auth.Unauthenticated, m.State())
	assert.Empty(t, m.Token())
}

func TestSignIn_PartialWriteKeepsUserAndTokenPaired(t *testing.T) {
	loginAs := func(_ context.Context, email, _ string) (*dto.LoginResponse, error) {
		return &dto.LoginResponse{AccessToken: "tok-" + email, UserID: "u-" + email, Email: email}, nil
	}
	for _, failing := range []string{kv.KeyToken, kv.KeyUser} {
		t.Run(failing, func(t *testing.T) {
			ctx := context.Background()
			store := kvmock.New()
			m, err := New(ctx, &fakeAPI{t: t, loginFn: loginAs}, store)
			require.NoError(t, err)
			_, err = m.SignIn(ctx, "alice@x.com", "secret1")
			require.NoError(t, err)
			require.NoError(t, store.Set(ctx, kv.KeySessionID, "s-alice"))
			before := store.Snapshot()

			store.SetErrFor = map[string]error{failing: errors.New("disk full")}
			_, err = m.SignIn(ctx, "bob@x.com", "secret1")
			require.Error(t, err)
			assert.Equal(t, msgSaveFailed, apperr.Message(err, ""))
			assert.Equal(t, "u-alice@x.com", m.User().UserID)
			assert.Equal(t, "tok-alice@x.com", m.Token())
			assert.Equal(t, before, store.Snapshot(), "a failed sign-in leaves storage as it was")

			store.SetErrFor = nil
			again, err := New(ctx, &fakeAPI{t: t}, store)
			require.NoError(t, err)
			assert.Equal(t, auth.Authenticated, again.State())
			assert.Equal(t, "u-alice@x.com", again.User().UserID)
			assert.Equal(t, "tok-alice@x.com", again.Token())
		})
	}
}

func TestSignUp_SeedsDefaultsAndValidates(t *testing.T) {
	ctx := context.Background()
	var got dto.RegisterRequest
	f := &fakeAPI{t: t, registerFn: func(_ context.Context, in dto.RegisterRequest) (*dto.LoginResponse, error) {
		got = in
		return &dto.LoginResponse{AccessToken: "tok-new", UserID: "u-new", FullName: in.FullName, Email: in.Email}, nil
	}}
	store := kvmock.New()
	m, _ := New(ctx, f, store)

	u, err := m.SignUp(ctx, SignUpInput{
		Email: " new@example.com ", Password: "secret1", FullName: "  Ravi Kumar ",
		MonthlyIncome: 60000, ExistingEMI: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, "Ravi Kumar", got.FullName)
	assert.Equal(t, 700, u.CreditScoreEstimate)
	assert.Equal(t, "New to Credit", u.Segment)
	assert.Equal(t, 60000.0, u.MonthlyIncome)
	assert.Equal(t, "tok-new", store.Snapshot()[kv.KeyToken])

	custom, err := m.SignUp(ctx, SignUpInput{
		Email: "p@example.com", Password: "secret1", FullName: "Priya",
		MonthlyIncome: 90000, CreditScoreEstimate: 760, Segment: "Prime",
	})
	require.NoError(t, err)
	assert.Equal(t, 760, custom.CreditScoreEstimate)
	assert.Equal(t, "Prime", custom.Segment)

	bad := []SignUpInput{
		{Email: "x", Password: "secret1", FullName: "Ok", MonthlyIncome: 1},
		{Email: "a@b.co", Password: "secret1", FullName: "A", MonthlyIncome: 1},
		{Email: "a@b.co", Password: "secret1", FullName: "Ok", MonthlyIncome: 0},
		{Email: "a@b.co", Password: "secret1", FullName: "Ok", MonthlyIncome: 1, ExistingEMI: -1},
	}
	for _, in := range bad {
		_, err := m.SignUp(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%+v", in)
	}
}

func TestSignUp_FailureUsesRegistrationMessage(t *testing.T) {
	f := &fakeAPI{t: t, registerFn: func(context.Context, dto.RegisterRequest) (*dto.LoginResponse, error) {
		return nil, apperr.New(apperr.KindValidation, "Email already registered")
	}}
	m, _ := New(context.Background(), f, kvmock.New())
	_, err := m.SignUp(context.Background(), SignUpInput{Email: "a@b.co", Password: "secret1", FullName: "Ok", MonthlyIncome: 1})
	assert.ErrorIs(t, err, apperr.ErrAuthFailure)
	assert.Equal(t, "Email already registered", apperr.Message(err, ""))

	f.registerFn = func(context.Context, dto.RegisterRequest) (*dto.LoginResponse, error) {
		return nil, apperr.New(apperr.KindNetwork, "")
	}
	_, err = m.SignUp(context.Background(), SignUpInput{Email: "a@b.co", Password: "secret1", FullName: "Ok", MonthlyIncome: 1})
	assert.Equal(t, msgRegisterFailed, apperr.Message(err, ""))
}

func TestSignOut_NetworkDownStillClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := kvmock.New()
	savedUser(t, store, auth.User{UserID: "u-1"}, "tok-1")
	require.NoError(t, store.Set(ctx, kv.KeySessionID, "s-1"))

	f := &fakeAPI{t: t, logoutFn: func(context.Context) error {
		return apperr.New(apperr.KindNetwork, "Unable to reach the server.")
	}}
	m, _ := New(ctx, f, store)
	m.SignOut(ctx)

	assert.Equal(t, 1, f.logoutCalls)
	assert.Equal(t, auth.Unauthenticated, m.State())
	assert.Empty(t, m.Token())
	assert.Nil(t, m.User())
	assert.Empty(t, store.Snapshot())
}

func TestSignOut_StorageFailureIsSwallowed(t *testing.T) {
	store := kvmock.New()
	savedUser(t, store, auth.User{UserID: "u-1"}, "tok-1")
	m, _ := New(context.Background(), &fakeAPI{t: t}, store)
	store.DeleteErr = errors.New("locked")

	m.SignOut(context.Background())
	assert.Equal(t, auth.Unauthenticated, m.State())
}

func TestOnUnauthorized_IdempotentRedirectOnce(t *testing.T) {
	ctx := context.Background()
	store := kvmock.New()
	savedUser(t, store, auth.User{UserID: "u-1"}, "tok-1")
	require.NoError(t, store.Set(ctx, kv.KeySessionID, "s-1"))

	var redirects int
	m, _ := New(ctx, &fakeAPI{t: t}, store, WithSignInRedirect(func() { redirects++ }))

	m.OnUnauthorized(ctx)
	m.OnUnauthorized(ctx)

	assert.Equal(t, 1, redirects)
	assert.Equal(t, auth.Unauthenticated, m.State())
	assert.Empty(t, m.Token())
	assert.Empty(t, store.Snapshot())
}

// End to end through the real HTTP client: after a 401 the next call carries no token.
func TestOnUnauthorized_ThroughHTTPClient(t *testing.T) {
	var sawAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = append(sawAuth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":"token expired"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	store := kvmock.New()
	savedUser(t, store, auth.User{UserID: "u-1"}, "tok-1")

	client := api.New(srv.URL)
	var redirects int32
	m, err := New(ctx, client, store, WithSignInRedirect(func() { atomic.AddInt32(&redirects, 1) }))
	require.NoError(t, err)
	client.SetTokenSource(m)
	client.SetUnauthorizedHandler(m.OnUnauthorized)

	_, err = m.SyncProfile(ctx)
	assert.ErrorIs(t, err, apperr.ErrAuthorizationExpired)
	assert.Equal(t, auth.Unauthenticated, m.State())

	_, _ = client.GetLoan(ctx, "LN-1")
	require.Len(t, sawAuth, 2)
	assert.Equal(t, "Bearer tok-1", sawAuth[0])
	assert.Empty(t, sawAuth[1], "no bearer after authorization failure")
	assert.Equal(t, int32(1), atomic.LoadInt32(&redirects))
}

func TestRefreshUser(t *testing.T) {
	ctx := context.Background()
	store := kvmock.New()
	savedUser(t, store, auth.User{UserID: "u-1", FullName: "Old"}, "tok")
	m, _ := New(ctx, &fakeAPI{t: t}, store)

	savedUser(t, store, auth.User{UserID: "u-1", FullName: "New"}, "")
	u, err := m.RefreshUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "New", u.FullName)
	assert.True(t, m.IsAuthenticated())

	require.NoError(t, store.Delete(ctx, kv.KeyUser))
	u, err = m.RefreshUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Equal(t, auth.Unauthenticated, m.State())
}

func TestRefreshUser_SignedOutIgnoresStoredUser(t *testing.T) {
	ctx := context.Background()
	store := kvmock.New()
	m, err := New(ctx, &fakeAPI{t: t}, store)
	require.NoError(t, err)

	// another process signed in after this manager started
	savedUser(t, store, auth.User{UserID: "u-2"}, "tok-2")
	u, err := m.RefreshUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Nil(t, m.User())
	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, m.Token())
}

func TestSyncAndUpdateProfile(t *testing.T) {
	ctx := context.Background()
	store := kvmock.New()
	savedUser(t, store, auth.User{UserID: "u-1", Email: "a@b.co", FullName: "A B", CreditScoreEstimate: 700, Segment: "New to Credit"}, "tok")

	f := &fakeAPI{t: t}
	f.profileFn = func(_ context.Context, userID string) (*dto.UserProfile, error) {
		assert.Equal(t, "u-1", userID)
		return &dto.UserProfile{UserID: "u-1", FullName: "A B", Email: "a@b.co", MonthlyIncome: 80000, ExistingEMI: 2000, MockCreditScore: 742, Segment: "Prime"}, nil
	}
	f.updateFn = func(_ context.Context, _ string, upd dto.ProfileUpdate) (*dto.UserProfile, error) {
		require.NotNil(t, upd.Phone)
		assert.Equal(t, "9876543210", *upd.Phone)
		return &dto.UserProfile{UserID: "u-1", FullName: "A B", Phone: *upd.Phone, MonthlyIncome: 80000, MockCreditScore: 742, Segment: "Prime"}, nil
	}
	m, _ := New(ctx, f, store)

	u, err := m.SyncProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 742, u.CreditScoreEstimate)
	assert.Equal(t, "Prime", u.Segment)
	assert.Contains(t, store.Snapshot()[kv.KeyUser], `"monthly_income":80000`)

	phone := "98765 43210"
	u, err = m.UpdateProfile(ctx, dto.ProfileUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "9876543210", u.Phone)

	badPhone := "1234567890"
	_, err = m.UpdateProfile(ctx, dto.ProfileUpdate{Phone: &badPhone})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	negative := -5.0
	_, err = m.UpdateProfile(ctx, dto.ProfileUpdate{ExistingEMI: &negative})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestProfile_RequiresSignIn(t *testing.T) {
	m, _ := New(context.Background(), &fakeAPI{t: t}, kvmock.New())
	_, err := m.SyncProfile(context.Background())
	assert.ErrorIs(t, err, apperr.ErrAuthFailure)
	_, err = m.UpdateProfile(context.Background(), dto.ProfileUpdate{})
	assert.ErrorIs(t, err, apperr.ErrAuthFailure)
}

func TestSessionIDCache(t *testing.T) {
	ctx := context.Background()
	store := kvmock.New()
	m, _ := New(ctx, &fakeAPI{t: t, loginFn: demoLogin}, store)

	id, err := m.GetOrCreateSessionID(ctx, "u-demo")
	require.NoError(t, err)
	assert.Empty(t, id, "signed out: nothing cached")

	_, err = m.SignIn(ctx, "demo@example.com", "demo123")
	require.NoError(t, err)

	id, err = m.GetOrCreateSessionID(ctx, "u-demo")
	require.NoError(t, err)
	assert.Empty(t, id, "never fabricates an id")

	require.NoError(t, m.RememberSessionID(ctx, "s-42"))
	id, _ = m.GetOrCreateSessionID(ctx, "u-demo")
	assert.Equal(t, "s-42", id)

	other, _ := m.GetOrCreateSessionID(ctx, "someone-else")
	assert.Empty(t, other, "cached id belongs to the signed-in user only")

	require.NoError(t, m.ClearSessionID(ctx))
	id, _ = m.GetOrCreateSessionID(ctx, "u-demo")
	assert.Empty(t, id)

	require.NoError(t, m.RememberSessionID(ctx, "s-43"))
	m.SignOut(ctx)
	_, has := store.Snapshot()[kv.KeySessionID]
	assert.False(t, has)
}
