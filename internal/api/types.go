package api

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SendEmailRequest is the payload for the send-email endpoint.
type SendEmailRequest struct {
	To      string `json:"to" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// SendSMSRequest is the payload for the send-sms endpoint.
type SendSMSRequest struct {
	To      string `json:"to" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// SendResponse acknowledges one outbound message. CorrelationID ties the
// request to the log lines it produced; MessageID is the provider's
// identifier when the provider assigns one.
type SendResponse struct {
	Success       bool   `json:"success"`
	CorrelationID string `json:"correlation_id"`
	MessageID     string `json:"message_id,omitempty"`
}

// EnhanceInstructionsRequest is the payload for the enhance-instructions
// endpoint.
type EnhanceInstructionsRequest struct {
	Instructions string `json:"instructions" validate:"required"`
}

// EnhanceInstructionsResponse carries the rewritten instructions.
type EnhanceInstructionsResponse struct {
	Success              bool   `json:"success"`
	EnhancedInstructions string `json:"enhanced_instructions"`
}
