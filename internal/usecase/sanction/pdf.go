package sanction

import (
	"bytes"
	"context"
	"mime"

	"finagent/internal/apperr"
)

type PDFSource interface {
	SanctionPDF(ctx context.Context, loanID string) ([]byte, string, error)
}

// RemotePDF downloads the letter rendered by the server.
type RemotePDF struct{ api PDFSource }

func NewRemotePDF(api PDFSource) *RemotePDF { return &RemotePDF{api: api} }

func (RemotePDF) Name() string { return "remote-pdf" }

func (r *RemotePDF) Fetch(ctx context.Context, loanID string) (*Document, error) {
	body, ct, err := r.api.SanctionPDF(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if mt, _, perr := mime.ParseMediaType(ct); perr != nil || mt != "application/pdf" {
		return nil, apperr.New(apperr.KindDocument, "server returned "+ct+" instead of a PDF")
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		return nil, apperr.New(apperr.KindDocument, "server returned an empty or malformed PDF")
	}
	return &Document{
		LoanID:      loanID,
		Filename:    "sanction_letter_" + loanID + ".pdf",
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}
