package mail

import (
	"context"
	"fmt"
	"html"

	"sharedrive/internal/logging"
)

const ConfirmationSubject = "Email Confirmation"

// Sender delivers account confirmation links.
type Sender interface {
	SendConfirmation(ctx context.Context, to, link string) error
}

func ConfirmationBody(link string) string {
	return fmt.Sprintf(
		"Press the following link to verify your email: <a href=%s>Verification Link</a>",
		html.EscapeString(link),
	)
}

// LogSender only records the link. It stands in for SMTP when no mail host
// is configured.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendConfirmation(ctx context.Context, to, link string) error {
	s.logger.Info(ctx, "confirmation email not sent, no SMTP host configured", "to", to, "link", link)
	return nil
}
