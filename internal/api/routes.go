package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/leadgenlite/voicebridge/adapters/twilio"
	"github.com/leadgenlite/voicebridge/domain/repositories"
	"github.com/leadgenlite/voicebridge/internal/bridge"
)

const handlerTimeout = 30 * time.Second

// Handlers binds the HTTP surface to its collaborators.
type Handlers struct {
	bridge   *bridge.Bridge
	mailer   repositories.EmailSender
	sms      repositories.SMSSender
	enhancer repositories.InstructionEnhancer
	logger   *zap.Logger
}

// NewHandlers creates the HTTP handlers.
func NewHandlers(
	b *bridge.Bridge,
	mailer repositories.EmailSender,
	sms repositories.SMSSender,
	enhancer repositories.InstructionEnhancer,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		bridge:   b,
		mailer:   mailer,
		sms:      sms,
		enhancer: enhancer,
		logger:   logger,
	}
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handlers) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voicebridge",
		})
	})

	// Telephony surface
	e.POST("/voice/webhook", h.voiceWebhook)
	e.GET("/voice/stream", h.bridge.HandleStream)

	// Operator surface
	comm := e.Group("/api/communication")
	comm.POST("/send-email", h.sendEmail)
	comm.POST("/send-sms", h.sendSMS)

	e.POST("/api/ai/enhance-instructions", h.enhanceInstructions)
}

// voiceWebhook answers the provider's inbound-call webhook with TwiML that
// connects the call to the media stream endpoint. Context is resolved here,
// ahead of the stream, and handed forward through stream parameters so the
// stream handler does not have to touch the store.
func (h *Handlers) voiceWebhook(c echo.Context) error {
	callSID := c.FormValue("CallSid")
	to := c.FormValue("To")
	scheduleID := c.QueryParam("scheduleId")

	h.logger.Info("Inbound call webhook",
		zap.String("call_sid", callSID),
		zap.String("record_id", scheduleID))

	callCtx := h.bridge.Resolver().Resolve(c.Request().Context(), callSID, scheduleID, to)

	streamURL := "wss://" + c.Request().Host + "/voice/stream"
	twiml, err := twilio.StreamTwiML(streamURL, []twilio.StreamParameter{
		{Name: "instructions", Value: callCtx.Instructions},
		{Name: "callSid", Value: callSID},
		{Name: "scheduleId", Value: callCtx.RecordID},
		{Name: "customerEmail", Value: callCtx.Email},
		{Name: "customerPhone", Value: callCtx.PhoneNumber},
	})
	if err != nil {
		h.logger.Error("Failed to render TwiML", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "twiml_failed",
			Message: "Failed to build call response",
		})
	}

	return c.Blob(http.StatusOK, "text/xml", []byte(twiml))
}

func (h *Handlers) sendEmail(c echo.Context) error {
	var req SendEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.To == "" || req.Subject == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "to, subject and message are required",
		})
	}

	correlationID := uuid.NewString()
	logger := h.logger.With(zap.String("correlation_id", correlationID))

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	err := h.mailer.SendEmail(ctx, repositories.EmailMessage{
		To:        req.To,
		Subject:   req.Subject,
		PlainText: req.Message,
	})
	if err != nil {
		logger.Error("Email send failed", zap.String("to", req.To), zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "send_failed",
			Message: "Email provider rejected the message",
		})
	}

	logger.Info("Email sent", zap.String("to", req.To))
	return c.JSON(http.StatusOK, SendResponse{
		Success:       true,
		CorrelationID: correlationID,
	})
}

func (h *Handlers) sendSMS(c echo.Context) error {
	var req SendSMSRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.To == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "to and message are required",
		})
	}

	correlationID := uuid.NewString()
	logger := h.logger.With(zap.String("correlation_id", correlationID))

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	messageID, err := h.sms.SendSMS(ctx, req.To, req.Message)
	if err != nil {
		logger.Error("SMS send failed", zap.String("to", req.To), zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "send_failed",
			Message: "SMS provider rejected the message",
		})
	}

	logger.Info("SMS sent", zap.String("to", req.To), zap.String("message_id", messageID))
	return c.JSON(http.StatusOK, SendResponse{
		Success:       true,
		CorrelationID: correlationID,
		MessageID:     messageID,
	})
}

func (h *Handlers) enhanceInstructions(c echo.Context) error {
	var req EnhanceInstructionsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Instructions == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "instructions are required",
		})
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	enhanced, err := h.enhancer.Enhance(ctx, req.Instructions)
	if err != nil {
		h.logger.Error("Instruction enhancement failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "enhancement_failed",
			Message: "Failed to enhance instructions",
		})
	}

	return c.JSON(http.StatusOK, EnhanceInstructionsResponse{
		Success:              true,
		EnhancedInstructions: enhanced,
	})
}

func contextWithTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), handlerTimeout)
}
