package chat

import "errors"

var (
	ErrNoMessages     = errors.New("messages are required")
	ErrEmptyContent   = errors.New("message content cannot be empty")
	ErrUnknownRole    = errors.New("unknown role")
	ErrNoUserMessage  = errors.New("at least one user message is required")
	ErrContentTooLong = errors.New("message content too long")
)
