package repositories

import (
	"context"

	"github.com/leadgenlite/voicebridge/domain/entities"
)

// WebSearcher abstracts the external web search collaborator.
type WebSearcher interface {
	// Search runs a query and returns a short answer plus up to two
	// supporting sources. Provider failures are returned as an error; the
	// caller decides how to surface them.
	Search(ctx context.Context, query string) (entities.SearchResult, error)
}

// EmailMessage is one outbound notification email.
type EmailMessage struct {
	To        string
	Subject   string
	PlainText string
	HTML      string
}

// EmailSender abstracts the outbound email collaborator.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// SMSSender abstracts the outbound SMS collaborator. It returns the
// provider-assigned message identifier.
type SMSSender interface {
	SendSMS(ctx context.Context, to string, body string) (string, error)
}

// InstructionEnhancer rewrites raw call instructions into detailed voice
// agent guidelines.
type InstructionEnhancer interface {
	Enhance(ctx context.Context, instructions string) (string, error)
}
