package bridge

import (
	"strings"
	"sync"
	"time"

	"github.com/leadgenlite/voicebridge/domain/entities"
)

// TranscriptRecorder accumulates finished utterances from both parties.
// Caller and assistant transcription complete on independent event streams;
// entries are appended in the order their completion events are observed,
// and that order is preserved through persistence.
type TranscriptRecorder struct {
	mu      sync.Mutex
	entries []entities.TranscriptEntry
}

// NewTranscriptRecorder creates an empty recorder.
func NewTranscriptRecorder() *TranscriptRecorder {
	return &TranscriptRecorder{}
}

// Append records one utterance. Empty or whitespace-only text is discarded.
func (r *TranscriptRecorder) Append(role entities.TranscriptRole, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	r.mu.Lock()
	r.entries = append(r.entries, entities.TranscriptEntry{
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	})
	r.mu.Unlock()
}

// Entries returns a copy of the recorded entries in arrival order.
func (r *TranscriptRecorder) Entries() []entities.TranscriptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]entities.TranscriptEntry, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Len returns the number of recorded entries.
func (r *TranscriptRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Flatten renders the transcript as a single readable document, one
// "ROLE: text" block per entry.
func (r *TranscriptRecorder) Flatten() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	blocks := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		blocks = append(blocks, strings.ToUpper(string(entry.Role))+": "+entry.Text)
	}
	return strings.Join(blocks, "\n\n")
}
