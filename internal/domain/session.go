package domain

import "time"

// Entry is one conversation turn within a session
type Entry struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a keyed conversation history plus sticky context.
// History is append-only and kept in insertion order.
type Session struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Context   Context   `json:"context,omitempty"`
	History   []Entry   `json:"history"`
}

// Summary is the listing view of a session
type Summary struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Entries   int       `json:"entries"`
	Context   Context   `json:"context,omitempty"`
}

// Summarize returns the summary view of s
func (s *Session) Summarize() Summary {
	return Summary{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Entries:   len(s.History),
		Context:   s.Context,
	}
}
