package domain

import (
	"sort"
	"time"
)

// SenderRole which side authored a message
type SenderRole string

const (
	// RoleVisitor anonymous visitor
	RoleVisitor SenderRole = "visitor"
	// RoleAdmin support agent
	RoleAdmin SenderRole = "admin"
)

// Valid reports whether r is a known role.
func (r SenderRole) Valid() bool {
	return r == RoleVisitor || r == RoleAdmin
}

// Opposite returns the other side of the conversation.
func (r SenderRole) Opposite() SenderRole {
	if r == RoleAdmin {
		return RoleVisitor
	}
	return RoleAdmin
}

// Message one entry of a conversation
type Message struct {
	ID             string     `bson:"_id" json:"id"`
	ConversationID string     `bson:"conversation_id" json:"conversation_id"`
	SenderRole     SenderRole `bson:"sender_role" json:"sender_role"`
	Body           string     `bson:"body" json:"body"`
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
	IsRead         bool       `bson:"is_read" json:"is_read"`
}

// MessageLess is the display order: CreatedAt ascending, ties by id.
func MessageLess(a, b Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortMessages sorts msgs in display order.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return MessageLess(msgs[i], msgs[j])
	})
}
