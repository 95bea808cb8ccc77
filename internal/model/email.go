package model

import "time"

// EmailKind names what an outgoing email summarises.
type EmailKind string

const (
	EmailCalculation EmailKind = "calculation"
	EmailLog         EmailKind = "log"
)

// EmailStatus is the delivery outcome recorded for an email.
type EmailStatus string

const (
	EmailSent   EmailStatus = "sent"
	EmailFailed EmailStatus = "failed"
)

// EmailRecord is one row of the outgoing email log.
type EmailRecord struct {
	ID        string
	Recipient string
	Kind      EmailKind
	Subject   string
	Status    EmailStatus
	Error     string
	SentAt    time.Time
}
