package entities

// ToolName enumerates the function calls the AI session may request. The set
// is closed: adding or removing a tool is a compile-time-visible change.
type ToolName string

const (
	ToolWebSearch   ToolName = "web_search"
	ToolSendEmail   ToolName = "send_email"
	ToolGetPricing  ToolName = "get_pricing"
	ToolGetFAQs     ToolName = "get_faqs"
	ToolGetFeatures ToolName = "get_features"
	ToolEndCall     ToolName = "end_call"
)

// ToolInvocation is a function-call request issued by the AI session. It is
// transient: produced and consumed within one call session, never persisted.
type ToolInvocation struct {
	ID        string
	Name      ToolName
	Arguments map[string]interface{}
}

// StringArg returns the named argument as a string, or "" when absent or not
// a string.
func (i ToolInvocation) StringArg(name string) string {
	v, ok := i.Arguments[name].(string)
	if !ok {
		return ""
	}
	return v
}

// ToolResult is the structured output submitted back to the AI session for
// one invocation. Success is always set; the remaining fields depend on the
// tool that produced it.
type ToolResult struct {
	Success bool           `json:"success"`
	Answer  string         `json:"answer,omitempty"`
	Sources []SearchSource `json:"sources,omitempty"`
	Data    interface{}    `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// SearchSource is one supporting source returned by the web search tool.
type SearchSource struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchResult is the outcome of a web search collaborator call.
type SearchResult struct {
	Success bool           `json:"success"`
	Answer  string         `json:"answer,omitempty"`
	Sources []SearchSource `json:"sources,omitempty"`
	Error   string         `json:"error,omitempty"`
}
