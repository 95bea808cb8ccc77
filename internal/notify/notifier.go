package notify

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"go.uber.org/zap"

	"github.com/mileagekit/mileage/internal/id"
	"github.com/mileagekit/mileage/internal/model"
)

// Recorder keeps the outgoing email log.
type Recorder interface {
	RecordEmail(ctx context.Context, r model.EmailRecord) error
}

// Notifier validates recipients, sends through a Sender and records the
// outcome.
type Notifier struct {
	sender   Sender
	recorder Recorder
	from     string
	logger   *zap.Logger
	now      func() time.Time
}

// NewNotifier creates a Notifier. recorder may be nil.
func NewNotifier(sender Sender, recorder Recorder, from string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{sender: sender, recorder: recorder, from: from, logger: logger, now: time.Now}
}

// Send delivers one email and returns the record written to the email log.
// A failure to record is logged and does not fail the send.
func (n *Notifier) Send(ctx context.Context, to string, kind model.EmailKind, subject, body string) (model.EmailRecord, error) {
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return model.EmailRecord{}, model.ValidationError{Field: "email", Message: "invalid email format"}
	}

	rec := model.EmailRecord{
		ID:        id.NewEntryID(),
		Recipient: addr.Address,
		Kind:      kind,
		Subject:   subject,
		Status:    model.EmailSent,
		SentAt:    n.now().UTC(),
	}

	sendErr := n.sender.Send(ctx, Message{From: n.from, To: addr.Address, Subject: subject, Body: body, Kind: kind})
	if sendErr != nil {
		rec.Status = model.EmailFailed
		rec.Error = sendErr.Error()
	}

	if n.recorder != nil {
		if err := n.recorder.RecordEmail(ctx, rec); err != nil {
			n.logger.Warn("failed to record email", zap.String("id", rec.ID), zap.Error(err))
		}
	}

	if sendErr != nil {
		return rec, fmt.Errorf("sending %s email: %w", kind, sendErr)
	}
	n.logger.Info("email sent", zap.String("to", rec.Recipient), zap.String("type", string(kind)))
	return rec, nil
}
