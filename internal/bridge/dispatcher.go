package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/leadgenlite/voicebridge/domain/entities"
	"github.com/leadgenlite/voicebridge/domain/repositories"
)

// ToolDispatcher executes the function calls requested by the AI session.
// Every invocation produces exactly one result: provider failures surface as
// success=false results, never as errors thrown into the session, so the
// agent can recover conversationally.
type ToolDispatcher struct {
	searcher repositories.WebSearcher
	mailer   repositories.EmailSender
	logger   *zap.Logger
}

// NewToolDispatcher creates a dispatcher over the external collaborators.
func NewToolDispatcher(searcher repositories.WebSearcher, mailer repositories.EmailSender, logger *zap.Logger) *ToolDispatcher {
	return &ToolDispatcher{
		searcher: searcher,
		mailer:   mailer,
		logger:   logger,
	}
}

// Dispatch executes one invocation. Unrecognized tool names return a
// success=false result; unrecognized selectors return the documented
// fallback payload.
func (d *ToolDispatcher) Dispatch(ctx context.Context, inv entities.ToolInvocation) entities.ToolResult {
	switch inv.Name {
	case entities.ToolWebSearch:
		return d.dispatchSearch(ctx, inv)
	case entities.ToolSendEmail:
		return d.dispatchEmail(ctx, inv)
	case entities.ToolGetPricing:
		return entities.ToolResult{Success: true, Data: PricingFor(inv.StringArg("plan_type"))}
	case entities.ToolGetFAQs:
		return entities.ToolResult{Success: true, Data: FAQFor(inv.StringArg("topic"))}
	case entities.ToolGetFeatures:
		return entities.ToolResult{Success: true, Data: FeaturesFor(inv.StringArg("feature_category"))}
	case entities.ToolEndCall:
		// No external work; the session bridge owns the actual shutdown.
		return entities.ToolResult{Success: true, Message: "Call will end gracefully after audio completes"}
	default:
		d.logger.Warn("Unknown tool requested", zap.String("tool", string(inv.Name)))
		return entities.ToolResult{Success: false, Error: "unknown tool: " + string(inv.Name)}
	}
}

func (d *ToolDispatcher) dispatchSearch(ctx context.Context, inv entities.ToolInvocation) entities.ToolResult {
	query := inv.StringArg("query")
	d.logger.Info("Dispatching web search", zap.String("query", query))

	result, err := d.searcher.Search(ctx, query)
	if err != nil {
		d.logger.Error("Web search failed", zap.String("query", query), zap.Error(err))
		return entities.ToolResult{Success: false, Error: "Search service unavailable"}
	}

	answer := result.Answer
	if answer == "" {
		answer = "No information found"
	}

	return entities.ToolResult{
		Success: result.Success,
		Answer:  answer,
		Sources: result.Sources,
		Error:   result.Error,
	}
}

func (d *ToolDispatcher) dispatchEmail(ctx context.Context, inv entities.ToolInvocation) entities.ToolResult {
	to := inv.StringArg("email")
	subject := inv.StringArg("subject")
	body := inv.StringArg("message")

	d.logger.Info("Dispatching email", zap.String("to", to), zap.String("subject", subject))

	err := d.mailer.SendEmail(ctx, repositories.EmailMessage{
		To:        to,
		Subject:   subject,
		PlainText: body,
	})
	if err != nil {
		d.logger.Error("Email send failed", zap.String("to", to), zap.Error(err))
		return entities.ToolResult{Success: false, Error: "Failed to send email"}
	}

	return entities.ToolResult{Success: true, Message: "Email sent successfully"}
}
