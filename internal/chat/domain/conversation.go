package domain

import (
	"sort"
	"time"
)

// ConversationStatus definition conversation state
type ConversationStatus string

const (
	// StatusOpen conversation accepts messages
	StatusOpen ConversationStatus = "open"
	// StatusClosed conversation was closed by an admin, terminal
	StatusClosed ConversationStatus = "closed"
)

// Valid reports whether s is a known status.
func (s ConversationStatus) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}

// CanTransitionTo reports whether s may move to next. Only open -> closed exists.
func (s ConversationStatus) CanTransitionTo(next ConversationStatus) bool {
	return s == StatusOpen && next == StatusClosed
}

// Conversation is one visitor to admin support thread.
type Conversation struct {
	ID               string             `bson:"_id" json:"id"`
	VisitorSessionID string             `bson:"visitor_session_id,omitempty" json:"visitor_session_id,omitempty"`
	VisitorName      string             `bson:"visitor_name" json:"visitor_name"`
	Status           ConversationStatus `bson:"status" json:"status"`
	LastMessageAt    time.Time          `bson:"last_message_at" json:"last_message_at"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}

// IsClosed reports whether the conversation reached its terminal state.
func (c *Conversation) IsClosed() bool {
	return c.Status == StatusClosed
}

// Supersede merges a possibly stale view other into c.
// Change events arrive unordered, so LastMessageAt only moves forward and closed wins over open.
func (c Conversation) Supersede(other Conversation) Conversation {
	merged := c
	if other.LastMessageAt.After(merged.LastMessageAt) {
		merged.LastMessageAt = other.LastMessageAt
	}
	if other.Status == StatusClosed {
		merged.Status = StatusClosed
	}
	if merged.VisitorName == "" {
		merged.VisitorName = other.VisitorName
	}
	if merged.VisitorSessionID == "" {
		merged.VisitorSessionID = other.VisitorSessionID
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = other.CreatedAt
	}
	return merged
}

// ConversationSummary is one admin inbox row.
type ConversationSummary struct {
	Conversation `bson:",inline"`
	// UnreadCount counts visitor messages not yet read by an admin.
	UnreadCount int `bson:"unread_count" json:"unread_count"`
}

// InboxLess orders summaries by LastMessageAt descending, ties by id descending.
func InboxLess(a, b Conversation) bool {
	if !a.LastMessageAt.Equal(b.LastMessageAt) {
		return a.LastMessageAt.After(b.LastMessageAt)
	}
	return a.ID > b.ID
}

// SortInbox sorts summaries in inbox order.
func SortInbox(list []ConversationSummary) {
	sort.SliceStable(list, func(i, j int) bool {
		return InboxLess(list[i].Conversation, list[j].Conversation)
	})
}
