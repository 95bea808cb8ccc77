// Package notify renders summaries into email bodies and delivers them.
package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mileagekit/mileage/internal/model"
)

// Message is one outgoing email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
	Kind    model.EmailKind
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender writes the message to the logger instead of delivering it.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs the message envelope at info level and the body at debug.
func (s LogSender) Send(_ context.Context, m Message) error {
	s.Logger.Info("email would be sent",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("type", string(m.Kind)))
	s.Logger.Debug("email body", zap.String("body", m.Body))
	return nil
}

// SMTPSender delivers through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender returns a sender for host:port.
func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, Username: username, Password: password, sendMail: smtp.SendMail}
}

// Send delivers m. The context is only checked before dialing; net/smtp has
// no cancellation.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Host == "" {
		return fmt.Errorf("smtp: no host configured")
	}

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	if err := s.sendMail(addr, auth, m.From, []string{m.To}, buildMessage(m)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}

func buildMessage(m Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}
