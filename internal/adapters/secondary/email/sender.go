package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

// Message is a composed signal mail.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Transport hands a composed message to a mail system.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// Sender composes signal mails and passes them to a Transport.
// It implements the ports.MailSender interface.
type Sender struct {
	from      string
	transport Transport
	logger    *slog.Logger
}

var _ ports.MailSender = (*Sender)(nil)

// NewSender creates a mail sender. A nil transport logs messages instead of
// sending them.
func NewSender(from string, transport Transport, logger *slog.Logger) *Sender {
	logger = logger.With("component", "email_sender")
	if transport == nil {
		transport = &LogTransport{logger: logger}
	}
	return &Sender{from: from, transport: transport, logger: logger}
}

func (s *Sender) Send(ctx context.Context, to domain.Contact, signal *domain.Signal) error {
	if signal == nil {
		return errors.New("no signal to send")
	}
	addr, err := mail.ParseAddress(to.Email)
	if err != nil {
		return fmt.Errorf("invalid mail address for %s: %w", to.ID, err)
	}
	addr.Name = to.Name

	msg := Message{
		From:    s.from,
		To:      addr.String(),
		Subject: subject(signal),
		Body:    body(to, signal),
	}
	if err := s.transport.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver mail: %w", err)
	}
	return nil
}

func subject(signal *domain.Signal) string {
	id := signal.Subject.ID
	switch signal.Type {
	case domain.SignalCaseAssigned:
		return "Zaak " + id + " is aan u toegekend"
	case domain.SignalCaseDocumentAdded:
		return "Nieuw document bij zaak " + id
	case domain.SignalCaseDue:
		if signal.Detail == domain.DetailFatalDate {
			return "Fatale datum van zaak " + id + " nadert"
		}
		return "Streefdatum van zaak " + id + " nadert"
	case domain.SignalTaskAssigned:
		return "Taak " + id + " is aan u toegekend"
	case domain.SignalTaskDue:
		return "Taak " + id + " verloopt binnenkort"
	default:
		return string(signal.Type) + " " + id
	}
}

func body(to domain.Contact, signal *domain.Signal) string {
	greeting := "Beste"
	if to.Name != "" {
		greeting += " " + to.Name
	}
	text := fmt.Sprintf("%s,\n\n%s.\n", greeting, subject(signal))
	if signal.Detail != "" {
		text += "\nKenmerk: " + signal.Detail + "\n"
	}
	return text
}

// LogTransport logs messages instead of sending them.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a transport that writes messages to logger.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger.With("component", "email_transport")}
}

// Deliver logs the message to the console instead of sending an email.
func (t *LogTransport) Deliver(ctx context.Context, msg Message) error {
	t.logger.InfoContext(ctx, "mock email sent",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
