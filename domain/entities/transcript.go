package entities

import "time"

// TranscriptRole identifies which party produced a transcript line.
type TranscriptRole string

const (
	TranscriptRoleCaller    TranscriptRole = "caller"
	TranscriptRoleAssistant TranscriptRole = "assistant"
)

// TranscriptEntry is one finished utterance from either party. Entries are
// appended in the order their completion events were observed.
type TranscriptEntry struct {
	Role      TranscriptRole `json:"role"`
	Text      string         `json:"text"`
	Timestamp time.Time      `json:"timestamp"`
}
