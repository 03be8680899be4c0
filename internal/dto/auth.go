package dto

import "time"

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RegisterRequest struct {
	Email         string  `json:"email"          validate:"required,email"`
	Password      string  `json:"password"       validate:"required,min=6"`
	FullName      string  `json:"full_name"      validate:"required,min=2"`
	MonthlyIncome float64 `json:"monthly_income" validate:"gt=0"`
	ExistingEMI   float64 `json:"existing_emi"   validate:"gte=0"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	UserID      string `json:"user_id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
}

type UserProfile struct {
	UserID          string     `json:"user_id"`
	FullName        string     `json:"full_name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	MonthlyIncome   float64    `json:"monthly_income"`
	ExistingEMI     float64    `json:"existing_emi"`
	MockCreditScore int        `json:"mock_credit_score"`
	Segment         string     `json:"segment"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

// ProfileUpdate carries only the fields being changed.
type ProfileUpdate struct {
	FullName      *string  `json:"full_name,omitempty"      validate:"omitempty,min=2"`
	Phone         *string  `json:"phone,omitempty"          validate:"omitempty,inphone"`
	MonthlyIncome *float64 `json:"monthly_income,omitempty" validate:"omitempty,gt=0"`
	ExistingEMI   *float64 `json:"existing_emi,omitempty"   validate:"omitempty,gte=0"`
}
