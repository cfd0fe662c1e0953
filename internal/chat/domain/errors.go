package domain

import (
	"errors"

	errprocess "support_chat_service/pkg/err"
)

// Errors every layer tests against with errors.Is. Their messages are safe to show.
var (
	ErrEmptyVisitorName     = errprocess.NewPublic("please enter your name to start the chat", nil)
	ErrEmptySessionToken    = errprocess.NewPublic("visitor session is missing", nil)
	ErrEmptyBody            = errprocess.NewPublic("message cannot be empty", nil)
	ErrInvalidRole          = errprocess.NewPublic("unknown sender role", nil)
	ErrInvalidScope         = errprocess.NewPublic("unknown subscription scope", nil)
	ErrConversationNotFound = errprocess.NewPublic("conversation not found", nil)
	ErrConversationClosed   = errprocess.NewPublic("this conversation has been closed", nil)
	ErrConversationExists   = errprocess.NewPublic("a conversation is already in progress", nil)
	ErrNoConversation       = errprocess.NewPublic("start a conversation first", nil)
	ErrForbidden            = errprocess.NewPublic("only admins can do this", nil)
	ErrRateLimited          = errprocess.NewPublic("you are sending messages too quickly, please wait a moment", nil)
)

// IsValidation reports whether err is rejected before reaching the store.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyVisitorName) ||
		errors.Is(err, ErrEmptyBody) ||
		errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrInvalidScope)
}
