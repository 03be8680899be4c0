// Package sanction fetches a sanction letter through an ordered list of
// strategies: the server's PDF first, then a locally rendered HTML facsimile.
package sanction

import (
	"context"
	"errors"
	"fmt"

	"finagent/internal/apperr"

	"go.uber.org/zap"
)

const MsgUnavailable = "We could not generate your sanction letter. Please contact support."

type Document struct {
	LoanID      string
	Filename    string
	ContentType string
	Body        []byte
	// Source names the strategy that produced the document.
	Source string
}

type Strategy interface {
	Name() string
	Fetch(ctx context.Context, loanID string) (*Document, error)
}

type Chain struct {
	strategies []Strategy
	log        *zap.Logger
}

func NewChain(log *zap.Logger, strategies ...Strategy) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{strategies: strategies, log: log}
}

// Fetch returns the first document a strategy produces. An expired sign-in
// stops the chain at once; any other failure moves on to the next strategy.
func (c *Chain) Fetch(ctx context.Context, loanID string) (*Document, error) {
	if loanID == "" {
		return nil, apperr.New(apperr.KindValidation, "Loan ID is required.")
	}
	var errs []error
	for _, s := range c.strategies {
		doc, err := s.Fetch(ctx, loanID)
		if err == nil {
			doc.Source = s.Name()
			return doc, nil
		}
		if apperr.KindOf(err) == apperr.KindAuthorizationExpired {
			return nil, err
		}
		c.log.Info("sanction letter strategy failed",
			zap.String("strategy", s.Name()),
			zap.String("loan_id", loanID),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return nil, apperr.Wrap(apperr.KindDocument, MsgUnavailable, errors.Join(errs...))
}
