package auth

import (
	"context"
	"log"
)

// Mailer is the outbound email collaborator.  The orchestrator only needs
// the two auth mails; delivery mechanics live behind this interface.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes mails to the process log.  Used in dev and in tests;
// production wires a real provider behind the same interface.
type LogMailer struct{}

func (LogMailer) SendVerification(_ context.Context, email, token string) error {
	log.Printf("mailer: verification mail to %s token=%s", email, token)
	return nil
}

func (LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	log.Printf("mailer: password reset mail to %s token=%s", email, token)
	return nil
}
