package errprocess

import (
	"errors"
	"fmt"

	"support_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// PublicError carries a message that is safe to show to end users.
type PublicError struct {
	Msg string
	Err error
}

func (e *PublicError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *PublicError) Unwrap() error { return e.Err }

// Wrap logs err under op and returns it wrapped, nil stays nil.
func Wrap(op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	logger.Log.Error(op, append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", op, err)
}

// NewPublic marks err with a user facing message.
func NewPublic(msg string, err error) error {
	return &PublicError{Msg: msg, Err: err}
}

// Public returns the user facing message of err, or fallback when err carries none.
func Public(err error, fallback string) string {
	var pe *PublicError
	if errors.As(err, &pe) {
		return pe.Msg
	}
	return fallback
}
