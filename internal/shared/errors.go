package shared

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation.
type Kind int

const (
	// KindValidation marks malformed or missing input.
	KindValidation Kind = iota + 1
	// KindConflict marks duplicates and exceeded balances or budgets.
	KindConflict
	// KindState marks operations against an entity in the wrong state.
	KindState
	// KindNotFound marks references that do not exist or belong to
	// another organization.
	KindNotFound
	// KindIntegrity marks conditions that must never happen, such as an
	// unbalanced journal entry reaching the posting path.
	KindIntegrity
)

// Error is the typed result for every locally recovered rejection. The
// message is meant for the caller and names the offending entity or amount.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validationf builds a validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error.
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Statef builds a wrong-state error.
func Statef(format string, args ...any) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Integrityf builds an integrity error. Callers must abort the surrounding
// transaction when they see one.
func Integrityf(format string, args ...any) *Error {
	return &Error{Kind: KindIntegrity, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or zero when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
