package conversation

import (
	"context"
	"strings"
	"unicode/utf8"

	"finagent/internal/apperr"
	"finagent/internal/domain/auth"
	"finagent/internal/domain/chat"
	"finagent/internal/dto"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatAPI is the slice of the loan API used for conversations.
type ChatAPI interface {
	SendChat(ctx context.Context, in dto.ChatRequest, requestID string) (*dto.ChatResponse, error)
	ChatHistory(ctx context.Context, sessionID string) ([]dto.ChatMessage, error)
	SessionInfo(ctx context.Context, sessionID string) (*dto.SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Sessions is the part of the session manager that owns the cached session id.
type Sessions interface {
	User() *auth.User
	GetOrCreateSessionID(ctx context.Context, userID string) (string, error)
	RememberSessionID(ctx context.Context, sessionID string) error
	ClearSessionID(ctx context.Context) error
}

type Service struct {
	api      ChatAPI
	sessions Sessions
	log      *zap.Logger
}

func NewService(api ChatAPI, sessions Sessions, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, sessions: sessions, log: log}
}

// Send posts message in the current conversation, starting one when none is
// cached. A cached id the backend no longer knows is dropped and the message
// goes out once more as the first of a new conversation.
func (s *Service) Send(ctx context.Context, message string) (*chat.Reply, error) {
	u := s.sessions.User()
	if u == nil {
		return nil, apperr.New(apperr.KindAuthFailure, "Please sign in to continue.")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.New(apperr.KindValidation, "Please type a message.")
	}
	if utf8.RuneCountInString(message) > chat.MaxMessageLength {
		return nil, apperr.New(apperr.KindValidation, "Message is too long (2000 characters max).")
	}

	sid, err := s.sessions.GetOrCreateSessionID(ctx, u.UserID)
	if err != nil {
		return nil, err
	}

	resp, err := s.send(ctx, u.UserID, sid, message)
	if sid != "" && apperr.KindOf(err) == apperr.KindNotFound {
		s.log.Info("cached chat session unknown to server; starting a new one", zap.String("session_id", sid))
		if cerr := s.sessions.ClearSessionID(ctx); cerr != nil {
			return nil, cerr
		}
		resp, err = s.send(ctx, u.UserID, "", message)
	}
	if err != nil {
		return nil, err
	}

	if resp.SessionID != "" && resp.SessionID != sid {
		if err := s.sessions.RememberSessionID(ctx, resp.SessionID); err != nil {
			s.log.Warn("could not cache chat session id", zap.Error(err))
		}
	}
	return &chat.Reply{
		Text:      resp.Reply,
		Step:      chat.Step(resp.Step),
		Decision:  resp.Decision,
		LoanID:    resp.LoanID,
		Meta:      resp.Meta,
		SessionID: resp.SessionID,
	}, nil
}

func (s *Service) send(ctx context.Context, userID, sid, message string) (*dto.ChatResponse, error) {
	req := dto.ChatRequest{UserID: userID, Message: message}
	if sid != "" {
		req.SessionID = &sid
	}
	return s.api.SendChat(ctx, req, uuid.NewString())
}

// History returns the transcript of the cached conversation. No conversation
// yet, on either side, is an empty transcript.
func (s *Service) History(ctx context.Context) ([]chat.Message, error) {
	sid, err := s.currentSessionID(ctx)
	if err != nil || sid == "" {
		return nil, err
	}
	msgs, err := s.api.ChatHistory(ctx, sid)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return []chat.Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chat.Message{Role: chat.Role(m.Role), Content: m.Content})
	}
	return out, nil
}

// Info returns nil, nil when there is no conversation yet.
func (s *Service) Info(ctx context.Context) (*chat.Session, error) {
	sid, err := s.currentSessionID(ctx)
	if err != nil || sid == "" {
		return nil, err
	}
	info, err := s.api.SessionInfo(ctx, sid)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat.Session{
		SessionID:    info.SessionID,
		UserID:       info.UserID,
		CurrentStep:  chat.Step(info.CurrentStep),
		MessageCount: info.MessageCount,
		CreatedAt:    info.CreatedAt,
		UpdatedAt:    info.UpdatedAt,
	}, nil
}

// Clear deletes the conversation on the server and forgets its id. A server
// that has already forgotten it is fine.
func (s *Service) Clear(ctx context.Context) error {
	sid, err := s.currentSessionID(ctx)
	if err != nil {
		return err
	}
	if sid != "" {
		if err := s.api.DeleteSession(ctx, sid); err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}
	}
	return s.sessions.ClearSessionID(ctx)
}

func (s *Service) currentSessionID(ctx context.Context) (string, error) {
	u := s.sessions.User()
	if u == nil {
		return "", apperr.New(apperr.KindAuthFailure, "Please sign in to continue.")
	}
	return s.sessions.GetOrCreateSessionID(ctx, u.UserID)
}
