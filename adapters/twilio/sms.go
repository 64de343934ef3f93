package twilio

import (
	"context"
	"fmt"
	"os"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/leadgenlite/voicebridge/domain/repositories"
)

// Config holds configuration for the Twilio SMS adapter.
// Required fields:
// - AccountSID: Your Twilio account SID
// - AuthToken: Your Twilio auth token
// - FromNumber: The Twilio phone number messages are sent from
type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// NewConfigFromEnv builds a Config from environment variables.
func NewConfigFromEnv() Config {
	return Config{
		AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		FromNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
	}
}

// SMSSender implements the SMSSender interface using the Twilio REST API.
type SMSSender struct {
	client     *twilio.RestClient
	fromNumber string
	logger     *zap.Logger
}

// Ensure SMSSender implements the SMSSender interface
var _ repositories.SMSSender = (*SMSSender)(nil)

// NewSMSSender creates a new Twilio SMS adapter.
func NewSMSSender(config Config, logger *zap.Logger) (*SMSSender, error) {
	if config.AccountSID == "" || config.AuthToken == "" {
		return nil, fmt.Errorf("twilio account SID and auth token are required")
	}
	if config.FromNumber == "" {
		return nil, fmt.Errorf("twilio sender number is required")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSID,
		Password: config.AuthToken,
	})

	return &SMSSender{
		client:     client,
		fromNumber: config.FromNumber,
		logger:     logger,
	}, nil
}

// SendSMS sends one text message and returns the provider message SID.
func (s *SMSSender) SendSMS(ctx context.Context, to string, body string) (string, error) {
	if to == "" {
		return "", fmt.Errorf("recipient number is required")
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetBody(body)

	message, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("failed to send SMS: %w", err)
	}

	sid := ""
	if message.Sid != nil {
		sid = *message.Sid
	}

	s.logger.Info("SMS sent",
		zap.String("to", to),
		zap.String("message_sid", sid))

	return sid, nil
}
