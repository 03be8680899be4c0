// Package assistant is the scripted loan assistant behind the stub server's
// chat routes. It walks a customer from greeting to sanction without any
// language model: amounts and tenures are read with patterns and every
// confirmed request is approved at the default rate.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"finagent/internal/domain/chat"
	"finagent/internal/domain/loan"
	"finagent/internal/domain/user"
	"finagent/internal/dto"
	"finagent/internal/usecase/approval"
	"finagent/pkg/finmath"
	"finagent/pkg/metrics"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidMessage  = errors.New("message must be between 1 and 2000 characters")
)

const DefaultSessionTTL = 24 * time.Hour

// Risk band thresholds on the profile credit score.
const (
	bandAMinScore = 720
	bandBMinScore = 680
)

type Profiles interface {
	GetByUserID(ctx context.Context, userID string) (*user.User, error)
}

type Recorder interface {
	Record(ctx context.Context, in approval.RecordInput) (*approval.DecisionDTO, error)
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *metrics.Collector) Option { return func(s *Service) { s.metrics = m } }

func WithSessionTTL(ttl time.Duration) Option { return func(s *Service) { s.ttl = ttl } }

type session struct {
	ID        string
	UserID    string
	Step      chat.Step
	History   []chat.Message
	Amount    float64
	Tenure    int
	Quoted    bool
	LoanID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Service struct {
	mu       sync.Mutex
	sessions *cache.Cache
	ttl      time.Duration
	profiles Profiles
	recorder Recorder
	metrics  *metrics.Collector
	log      *zap.Logger
	now      func() time.Time
}

func NewService(profiles Profiles, recorder Recorder, opts ...Option) *Service {
	s := &Service{
		ttl:      DefaultSessionTTL,
		profiles: profiles,
		recorder: recorder,
		log:      zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	s.sessions = cache.New(s.ttl, time.Hour)
	return s
}

// Send processes one customer message. An unknown or foreign session id
// starts a fresh conversation instead of failing.
func (s *Service) Send(ctx context.Context, userID string, sessionID *string, message string) (*dto.ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" || utf8.RuneCountInString(message) > chat.MaxMessageLength {
		return nil, ErrInvalidMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var sess *session
	if sessionID != nil && *sessionID != "" {
		sess, _ = s.lookup(userID, *sessionID)
	}
	if sess == nil {
		now := s.now()
		sess = &session{ID: uuid.NewString(), UserID: userID, Step: chat.StepWelcome, CreatedAt: now}
		s.log.Info("chat session created", zap.String("session_id", sess.ID), zap.String("user_id", userID))
	}

	sess.History = append(sess.History, chat.Message{Role: chat.RoleUser, Content: message})
	out, err := s.advance(ctx, sess, message)
	if err != nil {
		// keep the session consistent with what the customer saw
		sess.History = sess.History[:len(sess.History)-1]
		return nil, err
	}
	sess.History = append(sess.History, chat.Message{Role: chat.RoleAssistant, Content: out.Reply})
	sess.UpdatedAt = s.now()
	s.sessions.Set(sess.ID, sess, cache.DefaultExpiration)
	s.metrics.ChatMessage()

	out.Step = string(sess.Step)
	out.SessionID = sess.ID
	return out, nil
}

func (s *Service) History(_ context.Context, userID, sessionID string) (*dto.HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	hist := make([]dto.ChatMessage, 0, len(sess.History))
	for _, m := range sess.History {
		hist = append(hist, dto.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return &dto.HistoryResponse{SessionID: sess.ID, History: hist, Count: len(hist)}, nil
}

func (s *Service) Info(_ context.Context, userID, sessionID string) (*dto.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.SessionInfo{
		SessionID:    sess.ID,
		UserID:       sess.UserID,
		CurrentStep:  string(sess.Step),
		MessageCount: len(sess.History),
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
	}, nil
}

func (s *Service) Delete(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(userID, sessionID); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	return nil
}

// lookup hides sessions of other users behind ErrSessionNotFound.
func (s *Service) lookup(userID, sessionID string) (*session, error) {
	v, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess := v.(*session)
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) advance(ctx context.Context, sess *session, msg string) (*dto.ChatResponse, error) {
	switch sess.Step {
	case chat.StepSanctionGenerated:
		return &dto.ChatResponse{
			Reply: fmt.Sprintf("Your loan %s has already been sanctioned. You can download the sanction letter "+
				"from your loan details, or start a new chat for another application.", sess.LoanID),
			LoanID: sess.LoanID,
		}, nil
	case chat.StepGatheringDetails:
		if sess.Quoted {
			switch {
			case isAffirmative(msg):
				return s.underwrite(ctx, sess)
			case isNegative(msg) && !mentionsTerms(msg):
				sess.Amount, sess.Tenure, sess.Quoted = 0, 0, false
				return &dto.ChatResponse{Reply: "No problem. What amount and tenure would you like instead?"}, nil
			}
		}
	}

	if v, ok := parseAmount(msg); ok {
		sess.Amount = v
		sess.Quoted = false
	}
	if v, ok := parseTenure(msg); ok {
		sess.Tenure = v
		sess.Quoted = false
	}

	switch {
	case sess.Amount > 0 && sess.Tenure > 0:
		sess.Step = chat.StepGatheringDetails
		if err := finmath.ValidateLoanRequest(sess.Amount, sess.Tenure); err != nil {
			reply := fmt.Sprintf("I can offer between %s and %s over %d to %d months. Could you adjust your request?",
				finmath.FormatCurrency(finmath.MinLoanAmount), finmath.FormatCurrency(finmath.MaxLoanAmount),
				finmath.MinTenureMonths, finmath.MaxTenureMonths)
			sess.Amount, sess.Tenure = 0, 0
			return &dto.ChatResponse{Reply: reply}, nil
		}
		terms, err := finmath.NewLoanTerms(sess.Amount, finmath.DefaultAnnualRatePercent, sess.Tenure)
		if err != nil {
			return nil, err
		}
		sess.Quoted = true
		lines := finmath.NewOffer(terms, finmath.RoundWhole).Lines()
		return &dto.ChatResponse{
			Reply: "Here is your indicative offer:\n" + strings.Join(lines, "\n") + "\nShall I proceed with this application?",
		}, nil
	case sess.Amount > 0:
		sess.Step = chat.StepGatheringDetails
		return &dto.ChatResponse{Reply: fmt.Sprintf("Got it, %s. For how many months would you like the loan?",
			finmath.FormatCurrency(sess.Amount))}, nil
	case sess.Tenure > 0:
		sess.Step = chat.StepGatheringDetails
		return &dto.ChatResponse{Reply: fmt.Sprintf("%d months noted. How much would you like to borrow?", sess.Tenure)}, nil
	}

	if sess.Step == chat.StepGatheringDetails {
		return &dto.ChatResponse{Reply: "Please tell me the loan amount and tenure, for example \"5 lakh for 36 months\"."}, nil
	}
	return &dto.ChatResponse{Reply: "Hello! I can help you get a personal loan. " +
		"How much would you like to borrow, and for how many months?"}, nil
}

func (s *Service) underwrite(ctx context.Context, sess *session) (*dto.ChatResponse, error) {
	sess.Step = chat.StepUnderwriting

	name := "Valued Customer"
	score := 700
	var income, emi float64
	p, err := s.profiles.GetByUserID(ctx, sess.UserID)
	switch {
	case err == nil:
		name, score, income, emi = p.FullName, p.CreditScore, p.MonthlyIncome, p.ExistingEMI
	case errors.Is(err, user.ErrNotFound):
		s.log.Warn("underwriting without profile", zap.String("user_id", sess.UserID))
	default:
		sess.Step = chat.StepGatheringDetails
		return nil, err
	}

	band := riskBand(score)
	res, err := s.recorder.Record(ctx, approval.RecordInput{
		UserID:          sess.UserID,
		FullName:        name,
		RequestedAmount: sess.Amount,
		RequestedTenure: sess.Tenure,
		ApprovedAmount:  sess.Amount,
		TenureMonths:    sess.Tenure,
		InterestRate:    finmath.DefaultAnnualRatePercent,
		CreditScore:     score,
		MonthlyIncome:   income,
		ExistingEMI:     emi,
		Decision:        loan.DecisionApproved,
		RiskBand:        band,
		Explanation:     fmt.Sprintf("Approved at %.0f%% p.a. with credit score %d (risk band %s).", finmath.DefaultAnnualRatePercent, score, band),
	})
	if err != nil {
		sess.Step = chat.StepGatheringDetails
		return nil, err
	}
	s.metrics.LoanDecided(string(res.Decision))
	s.log.Info("loan decided",
		zap.String("loan_id", res.LoanID),
		zap.String("decision", string(res.Decision)),
		zap.String("risk_band", string(band)),
	)

	sess.Step = chat.StepSanctionGenerated
	sess.LoanID = res.LoanID
	pdfURL := "/loan/" + res.LoanID + "/sanction-pdf"
	return &dto.ChatResponse{
		Reply: fmt.Sprintf("Congratulations %s! Your loan of %s for %d months is approved with an EMI of %s. "+
			"Your sanction letter is ready (loan ID %s).",
			name, finmath.FormatCurrency(sess.Amount), sess.Tenure, finmath.FormatCurrency(res.EMI), res.LoanID),
		Decision: string(res.Decision),
		LoanID:   res.LoanID,
		Meta: map[string]any{
			"approved_amount":  sess.Amount,
			"tenure_months":    sess.Tenure,
			"emi":              res.EMI,
			"interest_rate":    finmath.DefaultAnnualRatePercent,
			"risk_band":        string(band),
			"credit_score":     score,
			"sanction_pdf_url": pdfURL,
		},
	}, nil
}

func riskBand(score int) loan.RiskBand {
	switch {
	case score >= bandAMinScore:
		return loan.RiskA
	case score >= bandBMinScore:
		return loan.RiskB
	default:
		return loan.RiskC
	}
}
