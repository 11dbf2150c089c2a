package core

import (
	"context"
	"net/mail"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string

		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessage sends a single message synchronously and reports
		// transport failure. Business flows that must annotate a result with
		// a delivery failure (eg. bulk student creation) use this.
		SendMessage(ctx context.Context, msg *EmailMessage) error

		// SendMessages sends messages concurrently, fire-and-forget.
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
