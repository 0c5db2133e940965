// Package email delivers price sheet messages.
package email

import (
	"context"
	"errors"
)

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

func (m Message) validate() error {
	if m.To == "" {
		return errors.New("email: recipient address required")
	}
	if m.Subject == "" {
		return errors.New("email: subject required")
	}
	if m.HTML == "" && m.Text == "" {
		return errors.New("email: body required")
	}
	return nil
}

// Sender delivers a single message. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
