package models

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned both for missing conversations and for conversations owned by someone else.
	ErrNotFound   = errors.New("conversation not found")
	ErrValidation = errors.New("validation failed")
)
