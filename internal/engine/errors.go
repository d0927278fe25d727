package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes rule problems found while loading or dispatching.
type ErrorCode string

const (
	// ErrCodeUnresolvedEvent means a rule names an event the catalog lacks.
	// The rule is skipped.
	ErrCodeUnresolvedEvent ErrorCode = "UNRESOLVED_EVENT_TYPE"

	// ErrCodeUnmatchedBrace means a template has '{' without '}'. The
	// remainder of the template is dropped but the rule is still bound.
	ErrCodeUnmatchedBrace ErrorCode = "UNMATCHED_TEMPLATE_BRACE"

	// ErrCodeUnresolvedPath means a token names a field the event lacks.
	// The token is echoed as {path}.
	ErrCodeUnresolvedPath ErrorCode = "UNRESOLVED_FIELD_PATH"

	// ErrCodeNullIntermediate means a token walked through an absent value.
	// The token renders as the empty string.
	ErrCodeNullIntermediate ErrorCode = "NULL_INTERMEDIATE"

	// ErrCodeNoRecipient means a "player" target found no principal player.
	ErrCodeNoRecipient ErrorCode = "NO_RECIPIENT"

	// ErrCodeSubscribeFailed means the host bus refused a subscription.
	ErrCodeSubscribeFailed ErrorCode = "SUBSCRIBE_FAILED"

	// ErrCodeDispatchPanic means a host collaborator panicked while a
	// binding was being delivered.
	ErrCodeDispatchPanic ErrorCode = "DISPATCH_PANIC"
)

// RuleError describes a problem with one configured rule.
// RuleIndex is the rule's position in the configured list, or -1 when the
// problem is not tied to a single rule.
type RuleError struct {
	Code      ErrorCode
	Message   string
	Event     string
	RuleIndex int
	Err       error
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Event != "" {
		msg += fmt.Sprintf(" (event=%s", e.Event)
		if e.RuleIndex >= 0 {
			msg += fmt.Sprintf(", rule=%d", e.RuleIndex)
		}
		msg += ")"
	} else if e.RuleIndex >= 0 {
		msg += fmt.Sprintf(" (rule=%d)", e.RuleIndex)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *RuleError) Unwrap() error { return e.Err }

// HasCode reports whether err is a RuleError with the given code.
// Uses errors.As so wrapped errors match.
func HasCode(err error, code ErrorCode) bool {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnresolvedEvent reports whether err is an unresolved event error.
func IsUnresolvedEvent(err error) bool {
	return HasCode(err, ErrCodeUnresolvedEvent)
}

// IsUnmatchedBrace reports whether err is an unmatched brace warning.
func IsUnmatchedBrace(err error) bool {
	return HasCode(err, ErrCodeUnmatchedBrace)
}
