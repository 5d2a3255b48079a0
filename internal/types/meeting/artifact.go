package meeting

import "strings"

// Priority ranks action points and todos.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority normalizes case and falls back to Medium for anything unrecognized.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "urgent", "critical":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// ActionPoint is a strategic statement grouping related facts.
type ActionPoint struct {
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	SourceFacts []string `json:"source_facts"`
}

// Todo is a tactical item that is either done or not.
// Deadline is nil when no fact carries one; it is never a placeholder.
type Todo struct {
	Task        string   `json:"task"`
	Deadline    *string  `json:"deadline"`
	Priority    Priority `json:"priority"`
	SourceFacts []string `json:"source_facts"`
}

// Email is the follow-up message sent after the meeting.
type Email struct {
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	SourceFacts []string `json:"source_facts"`
}

// IsZero reports whether nothing was drafted.
func (e Email) IsZero() bool {
	return strings.TrimSpace(e.Subject) == "" && strings.TrimSpace(e.Body) == ""
}

// StringPtr is a small helper for optional deadlines.
func StringPtr(s string) *string { return &s }
