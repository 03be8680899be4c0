package account

import (
	"context"
	"errors"
	"testing"

	"finagent/internal/domain/user"
	"finagent/internal/dto"
	"finagent/internal/testutil/usermock"

	"golang.org/x/crypto/bcrypt"
)

type stubIssuer struct{ err error }

func (s stubIssuer) Issue(userID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "tok-" + userID, nil
}

// memUsers backs usermock.Repo with a map keyed by email.
func memUsers() (*usermock.Repo, map[string]*user.User) {
	byEmail := map[string]*user.User{}
	repo := &usermock.Repo{
		CreateFn: func(_ context.Context, u *user.User) error {
			if _, ok := byEmail[u.Email]; ok {
				return user.ErrAlreadyExists
			}
			byEmail[u.Email] = u
			return nil
		},
		GetByEmailFn: func(_ context.Context, email string) (*user.User, error) {
			if u, ok := byEmail[email]; ok {
				return u, nil
			}
			return nil, user.ErrNotFound
		},
		GetByUserIDFn: func(_ context.Context, userID string) (*user.User, error) {
			for _, u := range byEmail {
				if u.UserID == userID {
					cp := *u
					return &cp, nil
				}
			}
			return nil, user.ErrNotFound
		},
		SaveFn: func(_ context.Context, u *user.User) error {
			byEmail[u.Email] = u
			return nil
		},
	}
	return repo, byEmail
}

func newUsecase(repo user.Repository) *Usecase {
	return NewUsecase(repo, stubIssuer{}, WithHashCost(bcrypt.MinCost))
}

func TestLogin_ProvisionsUnknownEmail(t *testing.T) {
	repo, store := memUsers()
	uc := newUsecase(repo)

	resp, err := uc.Login(context.Background(), dto.LoginRequest{Email: "asha.rao@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.FullName != "Asha Rao" || resp.Email != "asha.rao@example.com" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.AccessToken != "tok-"+resp.UserID || len(resp.UserID) != 32 {
		t.Fatalf("token/user id mismatch: %+v", resp)
	}
	u := store["asha.rao@example.com"]
	if u == nil || u.CreditScore == 0 || u.Segment == "" || u.MonthlyIncome == 0 {
		t.Fatalf("account not seeded: %+v", u)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) != nil {
		t.Fatalf("password not hashed with bcrypt")
	}
}

func TestLogin_ExistingAccount(t *testing.T) {
	repo, _ := memUsers()
	uc := newUsecase(repo)
	ctx := context.Background()

	first, err := uc.Register(ctx, dto.RegisterRequest{
		Email: "dev@example.com", Password: "secret1", FullName: "Dev K", MonthlyIncome: 90000,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"right password", "secret1", nil},
		{"wrong password", "secret2", user.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := uc.Login(ctx, dto.LoginRequest{Email: "dev@example.com", Password: tt.password})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
			if err == nil && resp.UserID != first.UserID {
				t.Fatalf("logged into a different account: %s vs %s", resp.UserID, first.UserID)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	repo, store := memUsers()
	uc := newUsecase(repo)
	ctx := context.Background()

	in := dto.RegisterRequest{Email: "neha@example.com", Password: "secret1", FullName: " Neha S ", MonthlyIncome: 64000, ExistingEMI: 2500}
	if _, err := uc.Register(ctx, in); err != nil {
		t.Fatalf("Register: %v", err)
	}
	u := store["neha@example.com"]
	if u.FullName != "Neha S" || u.MonthlyIncome != 64000 || u.ExistingEMI != 2500 {
		t.Fatalf("registration fields not kept: %+v", u)
	}

	if _, err := uc.Register(ctx, in); !errors.Is(err, user.ErrAlreadyExists) {
		t.Fatalf("duplicate register: want ErrAlreadyExists, got %v", err)
	}
}

func TestRegister_LookupError(t *testing.T) {
	boom := errors.New("db down")
	repo := &usermock.Repo{GetByEmailFn: func(context.Context, string) (*user.User, error) { return nil, boom }}
	if _, err := newUsecase(repo).Register(context.Background(), dto.RegisterRequest{Email: "a@b.co"}); !errors.Is(err, boom) {
		t.Fatalf("want %v, got %v", boom, err)
	}
}

func TestLogin_IssuerError(t *testing.T) {
	repo, _ := memUsers()
	boom := errors.New("sign failed")
	uc := NewUsecase(repo, stubIssuer{err: boom}, WithHashCost(bcrypt.MinCost))
	if _, err := uc.Login(context.Background(), dto.LoginRequest{Email: "a@b.co", Password: "secret1"}); !errors.Is(err, boom) {
		t.Fatalf("want %v, got %v", boom, err)
	}
}

func TestProfileAndUpdate(t *testing.T) {
	repo, _ := memUsers()
	uc := newUsecase(repo)
	ctx := context.Background()

	resp, err := uc.Login(ctx, dto.LoginRequest{Email: "ravi@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	phone := "9876543210"
	income := 81000.0
	got, err := uc.UpdateProfile(ctx, resp.UserID, dto.ProfileUpdate{Phone: &phone, MonthlyIncome: &income})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Phone != phone || got.MonthlyIncome != income || got.FullName != "Ravi" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	again, err := uc.Profile(ctx, resp.UserID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if again.Phone != phone || again.MockCreditScore == 0 {
		t.Fatalf("update not persisted: %+v", again)
	}

	if _, err := uc.Profile(ctx, "missing"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestNameFromEmail(t *testing.T) {
	cases := map[string]string{
		"asha.rao@x.in":  "Asha Rao",
		"dev_k+loans@x":  "Dev K Loans",
		"@nothing.local": "User",
		"ravi@x.in":      "Ravi",
	}
	for in, want := range cases {
		if got := nameFromEmail(in); got != want {
			t.Errorf("nameFromEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTemplateForIsStable(t *testing.T) {
	if templateFor("A@B.co") != templateFor("a@b.co") {
		t.Fatalf("template should not depend on email case")
	}
}
