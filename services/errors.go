package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound covers unknown groups, users, posts and missing follow edges.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor may not mutate the target.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated is returned when an operation needs an actor and none was given.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrConflict is returned when a unique value is already taken.
	ErrConflict = errors.New("already exists")
	// ErrInvalidCredentials is returned by Authenticate for any username/password mismatch.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError collects per-field messages for a rejected form. Nothing is persisted when
// one is returned.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field, keeping the first one.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

const msgRequired = "This field is required."
