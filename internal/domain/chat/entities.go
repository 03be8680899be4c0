package chat

import "time"

type Step string

const (
	StepWelcome           Step = "WELCOME"
	StepGatheringDetails  Step = "GATHERING_DETAILS"
	StepUnderwriting      Step = "UNDERWRITING"
	StepSanctionGenerated Step = "SANCTION_GENERATED"
	StepRejected          Step = "REJECTED"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session mirrors the backend's view of a conversation.
type Session struct {
	SessionID    string
	UserID       string
	CurrentStep  Step
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Message struct {
	Role    Role
	Content string
}

// Reply is what the assistant answered to one message.
type Reply struct {
	Text      string
	Step      Step
	Decision  string
	LoanID    string
	Meta      map[string]any
	SessionID string
}

const MaxMessageLength = 2000
