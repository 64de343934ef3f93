package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/leadgenlite/voicebridge/domain/repositories"
)

const (
	defaultModel           = "gemini-2.0-flash"
	defaultMaxOutputTokens = 1000
	defaultTemperature     = 0.3
	defaultTimeout         = 30 * time.Second
)

const enhancerSystemPrompt = `You are an expert at creating AI voice agent instructions for realtime phone calls. Transform basic instructions into detailed, conversational guidelines that ensure natural phone conversations.

FORMAT REQUIREMENTS:
- Start with clear GREETING instructions
- Break conversation into numbered STEPS
- Include specific PAUSE points where AI should wait for user response
- Add LISTENING guidelines for handling interruptions
- Include OBJECTION HANDLING scenarios
- End with clear CLOSING instructions

CONVERSATION RULES:
- Always pause after questions and wait for responses
- Never rush through multiple steps at once
- Listen carefully to what the user actually says
- Be conversational, not robotic
- Keep responses concise and natural
- Handle interruptions gracefully

Create professional phone call instructions that follow this structure.`

// GeminiEnhancer implements the InstructionEnhancer interface using Google's
// Gemini API.
type GeminiEnhancer struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// Ensure GeminiEnhancer implements the InstructionEnhancer interface
var _ repositories.InstructionEnhancer = (*GeminiEnhancer)(nil)

// NewGeminiEnhancer creates a new Gemini instruction enhancer.
func NewGeminiEnhancer(logger *zap.Logger) (*GeminiEnhancer, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEnhancer{
		client: client,
		logger: logger,
		model:  defaultModel,
	}, nil
}

// Enhance rewrites raw call instructions into structured voice agent
// guidelines.
func (g *GeminiEnhancer) Enhance(ctx context.Context, instructions string) (string, error) {
	if strings.TrimSpace(instructions) == "" {
		return "", fmt.Errorf("instructions cannot be empty")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(enhancerSystemPrompt, genai.RoleUser),
		genai.NewContentFromText(
			"Transform these basic instructions into detailed AI voice agent guidelines for phone calls: "+instructions,
			genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(defaultTemperature)),
		MaxOutputTokens: int32(defaultMaxOutputTokens),
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate enhanced instructions: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}

	var enhanced string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			enhanced += part.Text
		}
	}
	if enhanced == "" {
		return "", fmt.Errorf("empty response from model")
	}

	g.logger.Info("Instructions enhanced",
		zap.Int("input_length", len(instructions)),
		zap.Int("output_length", len(enhanced)))

	return enhanced, nil
}
