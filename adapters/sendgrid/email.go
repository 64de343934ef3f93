package sendgrid

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/leadgenlite/voicebridge/domain/repositories"
)

// Config holds configuration for the SendGrid email adapter.
// Required fields:
// - APIKey: Your SendGrid API key
// - FromAddress: Verified sender address
// Optional fields:
// - FromName: Display name for the sender
type Config struct {
	APIKey      string
	FromAddress string
	FromName    string
}

// NewConfigFromEnv builds a Config from environment variables.
func NewConfigFromEnv() Config {
	return Config{
		APIKey:      os.Getenv("SENDGRID_API_KEY"),
		FromAddress: os.Getenv("FROM_EMAIL"),
		FromName:    os.Getenv("FROM_NAME"),
	}
}

// Sender implements the EmailSender interface using the SendGrid API.
type Sender struct {
	client      *sendgrid.Client
	fromAddress string
	fromName    string
	logger      *zap.Logger
}

// Ensure Sender implements the EmailSender interface
var _ repositories.EmailSender = (*Sender)(nil)

// NewSender creates a new SendGrid email adapter.
func NewSender(config Config, logger *zap.Logger) (*Sender, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("sendgrid API key is required")
	}
	if config.FromAddress == "" {
		return nil, fmt.Errorf("sender address is required")
	}

	return &Sender{
		client:      sendgrid.NewSendClient(config.APIKey),
		fromAddress: config.FromAddress,
		fromName:    config.FromName,
		logger:      logger,
	}, nil
}

// SendEmail sends one plain text message, with an optional HTML body. When no
// HTML body is given, one is derived from the plain text.
func (s *Sender) SendEmail(ctx context.Context, msg repositories.EmailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("recipient address is required")
	}

	html := msg.HTML
	if html == "" {
		html = "<p>" + strings.ReplaceAll(msg.PlainText, "\n", "<br>") + "</p>"
	}

	from := mail.NewEmail(s.fromName, s.fromAddress)
	to := mail.NewEmail("", msg.To)
	email := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainText, html)

	response, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}

	s.logger.Info("Email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("status", response.StatusCode))

	return nil
}
