package domain

// Action websocket request action
type Action string

const (
	// StartChat visitor action start_chat
	StartChat Action = "start_chat"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// Refresh websocket action refresh, re-fetch everything after a gap
	Refresh Action = "refresh"

	// SelectConversation admin action select_conversation
	SelectConversation Action = "select_conversation"
	// LeaveConversation admin action leave_conversation
	LeaveConversation Action = "leave_conversation"
	// CloseConversation admin action close_conversation
	CloseConversation Action = "close_conversation"
	// DeleteConversation admin action delete_conversation
	DeleteConversation Action = "delete_conversation"
)

// Pushed actions, server to client.
const (
	NameRequired           Action = "name_required"
	ConversationSnapshot   Action = "conversation"
	InboxSnapshot          Action = "inbox"
	NotifyMessage          Action = "message"
	NotifyConversation     Action = "conversation_changed"
	NotifyConversationGone Action = "conversation_deleted"
	NotifyMessagesRead     Action = "messages_read"
	Notice                 Action = "notice"
)

// WSRequest websocket Request
type WSRequest struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
	Name           string `json:"name"`
	Body           string `json:"body"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
