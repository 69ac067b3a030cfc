package llm

import (
	"errors"
	"strings"
)

var (
	ErrProvider         = errors.New("provider error")
	ErrRegionRestricted = errors.New("region restricted")
)

// Error carries a user-facing message; errors.Is matches its Kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func ProviderError(msg string) error {
	return &Error{Kind: ErrProvider, Message: msg}
}

func RegionRestricted(msg string) error {
	return &Error{Kind: ErrRegionRestricted, Message: msg}
}

func mentionsRegion(msg string) bool {
	return strings.Contains(msg, "location") || strings.Contains(msg, "region")
}

func mentionsAPIKey(msg string) bool {
	return strings.Contains(msg, "API_KEY") || strings.Contains(msg, "401")
}
