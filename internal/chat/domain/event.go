package domain

import "time"

// EventKind definition change feed event type
type EventKind string

const (
	// EventMessageInserted a message was appended
	EventMessageInserted EventKind = "message_inserted"
	// EventMessagesRead messages of ReadRole were flipped to read
	EventMessagesRead EventKind = "messages_read"
	// EventConversationChanged status or lastMessageAt changed, or the conversation was created
	EventConversationChanged EventKind = "conversation_changed"
	// EventConversationDeleted the conversation and its messages are gone
	EventConversationDeleted EventKind = "conversation_deleted"
	// EventResync is local only: events were lost and the consumer must re-fetch
	EventResync EventKind = "resync"
)

// ChangeEvent is one notification of the change feed.
type ChangeEvent struct {
	Kind           EventKind     `json:"kind"`
	ConversationID string        `json:"conversation_id"`
	Conversation   *Conversation `json:"conversation,omitempty"`
	Message        *Message      `json:"message,omitempty"`
	ReadRole       SenderRole    `json:"read_role,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

const (
	// InboxChannel carries every conversation level change
	InboxChannel              = "chat:conversations"
	conversationChannelPrefix = "chat:conversation:"
)

// ConversationChannel carries message level changes of one conversation.
func ConversationChannel(conversationID string) string {
	return conversationChannelPrefix + conversationID
}

// ScopeKind what a subscription watches
type ScopeKind string

const (
	// ScopeConversation one conversation's messages, visitor view
	ScopeConversation ScopeKind = "conversation"
	// ScopeInbox all conversations, admin list
	ScopeInbox ScopeKind = "inbox"
	// ScopeAdminConversation one conversation's messages, admin detail view
	ScopeAdminConversation ScopeKind = "admin_conversation"
)

// Scope is the filter predicate of a subscription.
type Scope struct {
	Kind           ScopeKind
	ConversationID string
}

// ConversationScope visitor scope for one conversation.
func ConversationScope(conversationID string) Scope {
	return Scope{Kind: ScopeConversation, ConversationID: conversationID}
}

// InboxScope admin scope over all conversations.
func InboxScope() Scope {
	return Scope{Kind: ScopeInbox}
}

// AdminConversationScope admin detail scope for one conversation.
func AdminConversationScope(conversationID string) Scope {
	return Scope{Kind: ScopeAdminConversation, ConversationID: conversationID}
}

// Validate rejects unknown kinds and conversation scopes without id.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeInbox:
		return nil
	case ScopeConversation, ScopeAdminConversation:
		if s.ConversationID == "" {
			return ErrInvalidScope
		}
		return nil
	default:
		return ErrInvalidScope
	}
}

// Channel is the feed channel backing the scope.
func (s Scope) Channel() string {
	if s.Kind == ScopeInbox {
		return InboxChannel
	}
	return ConversationChannel(s.ConversationID)
}

// Matches reports whether ev belongs to the scope.
func (s Scope) Matches(ev ChangeEvent) bool {
	switch s.Kind {
	case ScopeInbox:
		return ev.Kind == EventConversationChanged || ev.Kind == EventConversationDeleted
	case ScopeConversation, ScopeAdminConversation:
		return ev.ConversationID == s.ConversationID && ev.Kind != EventResync
	}
	return false
}
