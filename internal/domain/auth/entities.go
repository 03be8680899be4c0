package auth

// State is the authentication status of the client.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

const (
	DefaultCreditScoreEstimate = 700
	DefaultSegment             = "New to Credit"
)

// User is the signed-in customer as persisted in durable storage.
type User struct {
	UserID              string  `json:"user_id"`
	Email               string  `json:"email"`
	FullName            string  `json:"full_name"`
	Phone               string  `json:"phone,omitempty"`
	MonthlyIncome       float64 `json:"monthly_income"`
	ExistingEMI         float64 `json:"existing_emi"`
	CreditScoreEstimate int     `json:"credit_score_estimate"`
	Segment             string  `json:"segment"`
}
