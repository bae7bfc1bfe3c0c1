package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"sharedrive/internal/logging"
)

type SMTPConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	From              string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRefreshToken string
}

func (c SMTPConfig) usesOAuth() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != "" && c.OAuthRefreshToken != ""
}

// SMTPSender sends mail through an SMTP relay. With Google OAuth credentials
// it authenticates with XOAUTH2, otherwise with PLAIN.
type SMTPSender struct {
	cfg    SMTPConfig
	tokens oauth2.TokenSource
	logger logging.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger logging.Logger) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	s := &SMTPSender{cfg: cfg, logger: logger}
	if cfg.usesOAuth() {
		conf := &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			Endpoint:     endpoints.Google,
		}
		s.tokens = conf.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.OAuthRefreshToken})
	}
	return s, nil
}

func (s *SMTPSender) SendConfirmation(ctx context.Context, to, link string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(ConfirmationSubject)
	msg.SetBodyString(gomail.TypeTextHTML, ConfirmationBody(link))

	client, err := s.client()
	if err != nil {
		return err
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	s.logger.Debug(ctx, "confirmation email sent", "to", to)
	return nil
}

func (s *SMTPSender) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithUsername(s.cfg.Username),
	}

	if s.tokens != nil {
		tok, err := s.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to get oauth access token: %w", err)
		}
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthXOAUTH2),
			gomail.WithPassword(tok.AccessToken),
		)
	} else if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithPassword(s.cfg.Password),
		)
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return client, nil
}
