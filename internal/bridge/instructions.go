package bridge

import (
	"strings"

	"github.com/leadgenlite/voicebridge/adapters/openai"
	"github.com/leadgenlite/voicebridge/domain/entities"
)

// FallbackInstructions is used when the stream start event carries no
// instruction parameter at all.
const FallbackInstructions = "Be helpful and friendly."

// baseInstructions are the fixed operating rules prepended to every call's
// custom instructions.
const baseInstructions = `CORE BEHAVIOR GUIDELINES:
- Be PRECISE, CALM, and POLITE in all interactions
- Stay FOCUSED on the call purpose - don't deviate to other topics
- Speak clearly and at a measured pace
- Ask ONLY RELEVANT questions related to the call objective
- Focus on SOLVING the specific issue or achieving the call goal
- Listen carefully and respond thoughtfully
- Only ask ONE question at a time and wait for responses

STAY ON PURPOSE:
- Follow your custom instructions strictly
- Don't discuss unrelated topics or services
- Keep conversation focused on the specific call objective
- Politely redirect if customer goes off-topic
- Complete the call goal efficiently

TOOL USAGE RULES:
- ONLY use tools when NECESSARY for the call purpose
- web_search: Only when customer asks for specific current information
- send_email: Only when needed for call objective (verification, documents)
- end_call: When conversation is naturally complete or customer requests
- DON'T use tools unnecessarily or for unrelated topics

CONVERSATION FLOW:
- Start with warm, professional greeting
- State call purpose clearly
- Focus on achieving the specific objective
- Handle objections related to call purpose only
- End with clear resolution or next steps
- Use end_call function when appropriate`

// ComposeInstructions builds the full instruction payload for one call:
// fixed operating rules, contact metadata, then the call's free-text
// instructions.
func ComposeInstructions(callCtx entities.CallContext) string {
	instructions := callCtx.Instructions
	if strings.TrimSpace(instructions) == "" {
		instructions = FallbackInstructions
	}

	var b strings.Builder
	b.WriteString(baseInstructions)
	b.WriteString("\n\nCUSTOMER DATA:\n")
	b.WriteString("- Customer Email: " + callCtx.Email + "\n")
	b.WriteString("- Customer Phone: " + callCtx.PhoneNumber + "\n")
	b.WriteString("\nCUSTOM INSTRUCTIONS:\n")
	b.WriteString(instructions)
	b.WriteString("\n\nIMPORTANT: Follow the custom instructions above while maintaining the core behavior guidelines. When using send_email function, use the customer email provided above.")
	return b.String()
}

// NewSessionConfig builds the standing realtime session configuration for
// one call. Audio codec parameters match the telephony provider's media
// stream (G.711 μ-law, 8kHz).
func NewSessionConfig(callCtx entities.CallContext) openai.SessionConfig {
	return openai.SessionConfig{
		Modalities:        []string{"text", "audio"},
		Instructions:      ComposeInstructions(callCtx),
		Voice:             "shimmer",
		InputAudioFormat:  "g711_ulaw",
		OutputAudioFormat: "g711_ulaw",
		Temperature:       0.7,
		InputAudioTranscription: &openai.TranscriptionConfig{
			Model: "whisper-1",
		},
		TurnDetection: &openai.TurnDetectionConfig{
			Type:              "server_vad",
			Threshold:         0.3,
			PrefixPaddingMs:   100,
			SilenceDurationMs: 400,
		},
		Tools: toolDefinitions(),
	}
}

func stringProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// toolDefinitions enumerates the function schemas advertised to the AI
// session. One schema per ToolName.
func toolDefinitions() []openai.Tool {
	return []openai.Tool{
		{
			Type:        "function",
			Name:        string(entities.ToolWebSearch),
			Description: "Search the web for current information, prices, news, or any real-time data. Only use when customer asks for specific current information.",
			Parameters: objectSchema(map[string]interface{}{
				"query": stringProperty("The search query to find current information"),
			}, "query"),
		},
		{
			Type:        "function",
			Name:        string(entities.ToolSendEmail),
			Description: "Send an email to the customer. Only use when specifically needed for the call purpose (verification links, documents, etc.)",
			Parameters: objectSchema(map[string]interface{}{
				"email":   stringProperty("Customer email address"),
				"subject": stringProperty("Email subject line"),
				"message": stringProperty("Email content/message"),
			}, "email", "subject", "message"),
		},
		{
			Type:        "function",
			Name:        string(entities.ToolGetPricing),
			Description: "Get LeadGenLite pricing plans when customer asks about costs, plans, or pricing",
			Parameters: objectSchema(map[string]interface{}{
				"plan_type": stringProperty(`Specific plan type if mentioned (starter, pro, agency) or "all" for all plans`),
			}, "plan_type"),
		},
		{
			Type:        "function",
			Name:        string(entities.ToolGetFAQs),
			Description: "Get frequently asked questions when customer has questions about features, billing, or general inquiries",
			Parameters: objectSchema(map[string]interface{}{
				"topic": stringProperty(`FAQ topic like "billing", "features", "plans", or "general"`),
			}, "topic"),
		},
		{
			Type:        "function",
			Name:        string(entities.ToolGetFeatures),
			Description: "Get detailed LeadGenLite features when customer asks about capabilities or what the platform does",
			Parameters: objectSchema(map[string]interface{}{
				"feature_category": stringProperty(`Feature category like "lead_generation", "email", "crm", "invoicing", or "all"`),
			}, "feature_category"),
		},
		{
			Type:        "function",
			Name:        string(entities.ToolEndCall),
			Description: "End the call ONLY as the very last action after saying your complete final goodbye. Do NOT call this function while you are still speaking or have more to say. Use only when conversation is 100% complete.",
			Parameters: objectSchema(map[string]interface{}{
				"reason": stringProperty("Reason for ending the call"),
			}, "reason"),
		},
	}
}
