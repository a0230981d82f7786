// Package apperror defines the typed failure taxonomy returned by the
// generation engine. Every condition here is a structured result for the
// caller, never an uncaught panic into user-facing code.
package apperror

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind classifies an application error.
type Kind string

const (
	// KindValidation means a required field was missing or malformed,
	// e.g. an LLM response with empty descriptions.
	KindValidation Kind = "validation_error"
	// KindReferenceResolution means generated content cited a name absent
	// from the candidate set it was given.
	KindReferenceResolution Kind = "reference_resolution_error"
	// KindLimitExceeded means a regeneration budget is exhausted. This is a
	// normal, expected outcome with explicit counts attached.
	KindLimitExceeded Kind = "limit_exceeded"
	// KindNotExpanded means a confirmation was attempted on a scene with no
	// expansion.
	KindNotExpanded Kind = "not_expanded"
	// KindNotFound means an adventure or scene id is unknown.
	KindNotFound Kind = "not_found"
	// KindAuthorization means the caller does not own the adventure.
	KindAuthorization Kind = "authorization_error"
	// KindConflict means the operation raced a concurrent aggregate write or
	// targeted a confirmed scene without unconfirming first.
	KindConflict Kind = "conflict"
	// KindTransient means a network or provider failure that was retried and
	// still failed; safe to retry later.
	KindTransient Kind = "transient_error"
)

// Error is the structured application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// Budget details, set for KindLimitExceeded.
	Budget string
	Used   int
	Max    int

	// Unresolved names and the expansion field they appeared in, set for
	// KindReferenceResolution.
	Field      string
	Unresolved []string

	// Offending scene, when the error is scoped to one.
	SceneID uuid.UUID
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap supports errors.Is/errors.As chains
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same Kind, so callers can compare against the
// sentinel constructors without caring about the attached data.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf returns the Kind of err, or "" if err is not an application error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// NewValidation creates a validation error
func NewValidation(message string, err error) *Error {
	return &Error{Kind: KindValidation, Message: message, Err: err}
}

// NewReferenceResolution creates a reference resolution error for names the
// generator cited that were not in its candidate set.
func NewReferenceResolution(field string, unresolved []string) *Error {
	return &Error{
		Kind:       KindReferenceResolution,
		Message:    fmt.Sprintf("unresolved %s reference(s): %v", field, unresolved),
		Field:      field,
		Unresolved: unresolved,
	}
}

// NewLimitExceeded creates a limit exceeded error carrying current counts.
func NewLimitExceeded(budget string, used, max int) *Error {
	return &Error{
		Kind:    KindLimitExceeded,
		Message: fmt.Sprintf("%s regeneration budget exhausted (%d/%d)", budget, used, max),
		Budget:  budget,
		Used:    used,
		Max:     max,
	}
}

// NewNotExpanded creates a not expanded error for a scene
func NewNotExpanded(sceneID uuid.UUID) *Error {
	return &Error{
		Kind:    KindNotExpanded,
		Message: fmt.Sprintf("scene %s has no expansion", sceneID),
		SceneID: sceneID,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: err}
}

// NewAuthorization creates an authorization error
func NewAuthorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// NewConflict creates a conflict error
func NewConflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

// NewTransient creates a transient provider/network error
func NewTransient(message string, err error) *Error {
	return &Error{Kind: KindTransient, Message: message, Err: err}
}
