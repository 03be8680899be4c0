package account

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"finagent/internal/domain/user"
	"finagent/internal/dto"
	"finagent/pkg/id"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type Option func(*Usecase)

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func WithHashCost(cost int) Option { return func(u *Usecase) { u.cost = cost } }

func WithLogger(l *zap.Logger) Option {
	return func(u *Usecase) {
		if l != nil {
			u.log = l
		}
	}
}

type Usecase struct {
	users  user.Repository
	tokens TokenIssuer
	cost   int
	log    *zap.Logger
}

func NewUsecase(users user.Repository, tokens TokenIssuer, opts ...Option) *Usecase {
	u := &Usecase{users: users, tokens: tokens, cost: bcrypt.DefaultCost, log: zap.NewNop()}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Login signs in an existing account. An unknown email is provisioned on the
// spot with a seeded profile, so any well-formed credentials get a session.
func (u *Usecase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	acct, err := u.users.GetByEmail(ctx, normalizeEmail(in.Email))
	switch {
	case errors.Is(err, user.ErrNotFound):
		acct, err = u.provision(ctx, in.Email, in.Password, nameFromEmail(in.Email), 0, 0)
		if err != nil {
			return nil, err
		}
		u.log.Info("provisioned account on login", zap.String("user_id", acct.UserID))
	case err != nil:
		return nil, err
	default:
		if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(in.Password)) != nil {
			return nil, user.ErrInvalidCredentials
		}
	}
	return u.session(acct)
}

func (u *Usecase) Register(ctx context.Context, in dto.RegisterRequest) (*dto.LoginResponse, error) {
	if _, err := u.users.GetByEmail(ctx, normalizeEmail(in.Email)); err == nil {
		return nil, user.ErrAlreadyExists
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}
	acct, err := u.provision(ctx, in.Email, in.Password, strings.TrimSpace(in.FullName), in.MonthlyIncome, in.ExistingEMI)
	if err != nil {
		return nil, err
	}
	return u.session(acct)
}

func (u *Usecase) Profile(ctx context.Context, userID string) (*dto.UserProfile, error) {
	acct, err := u.users.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfile(acct), nil
}

// UpdateProfile applies only the fields present in in.
func (u *Usecase) UpdateProfile(ctx context.Context, userID string, in dto.ProfileUpdate) (*dto.UserProfile, error) {
	acct, err := u.users.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		acct.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Phone != nil {
		acct.Phone = *in.Phone
	}
	if in.MonthlyIncome != nil {
		acct.MonthlyIncome = *in.MonthlyIncome
	}
	if in.ExistingEMI != nil {
		acct.ExistingEMI = *in.ExistingEMI
	}
	if err := u.users.Save(ctx, acct); err != nil {
		return nil, err
	}
	return toProfile(acct), nil
}

func (u *Usecase) provision(ctx context.Context, email, password, fullName string, income, emi float64) (*user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	tpl := templateFor(email)
	acct := &user.User{
		UserID:        id.NewID32(),
		Email:         normalizeEmail(email),
		PasswordHash:  string(hash),
		FullName:      fullName,
		MonthlyIncome: tpl.MonthlyIncome,
		ExistingEMI:   tpl.ExistingEMI,
		CreditScore:   tpl.CreditScore,
		Segment:       tpl.Segment,
	}
	if income > 0 {
		acct.MonthlyIncome = income
	}
	if emi > 0 {
		acct.ExistingEMI = emi
	}
	if err := u.users.Create(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func (u *Usecase) session(acct *user.User) (*dto.LoginResponse, error) {
	tok, err := u.tokens.Issue(acct.UserID)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken: tok,
		TokenType:   "bearer",
		UserID:      acct.UserID,
		FullName:    acct.FullName,
		Email:       acct.Email,
	}, nil
}

// templateFor picks a seed profile deterministically from the email.
func templateFor(email string) profileTemplate {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalizeEmail(email)))
	return templates[h.Sum32()%uint32(len(templates))]
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// nameFromEmail turns "asha.rao@x.in" into "Asha Rao".
func nameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, p := range parts {
		rs := []rune(p)
		rs[0] = unicode.ToUpper(rs[0])
		parts[i] = string(rs)
	}
	if len(parts) == 0 {
		return "User"
	}
	return strings.Join(parts, " ")
}

func toProfile(u *user.User) *dto.UserProfile {
	created := u.CreatedAt
	return &dto.UserProfile{
		UserID:          u.UserID,
		FullName:        u.FullName,
		Email:           u.Email,
		Phone:           u.Phone,
		MonthlyIncome:   u.MonthlyIncome,
		ExistingEMI:     u.ExistingEMI,
		MockCreditScore: u.CreditScore,
		Segment:         u.Segment,
		CreatedAt:       &created,
	}
}
