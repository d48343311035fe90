package shared

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies failures surfaced to API and GUI callers.
type Kind string

const (
	KindNotFound             Kind = "NotFound"
	KindValidation           Kind = "ValidationError"
	KindInvalidTransition    Kind = "InvalidTransition"
	KindCreditLimitExceeded  Kind = "CreditLimitExceeded"
	KindReferentialIntegrity Kind = "ReferentialIntegrityError"
	KindConcurrencyConflict  Kind = "ConcurrencyConflict"
	KindForbidden            Kind = "Forbidden"
)

// Error carries the failure kind together with the offending identifiers.
type Error struct {
	Kind   Kind
	Op     string
	Entity string
	IDs    []int64
	Msg    string
	Err    error
}

var (
	// ErrNotFound indicates a dangling reference.
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrValidation indicates malformed input.
	ErrValidation = &Error{Kind: KindValidation}
	// ErrInvalidTransition indicates an illegal lifecycle move.
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	// ErrCreditLimitExceeded indicates the credit guard rejected a confirmation.
	ErrCreditLimitExceeded = &Error{Kind: KindCreditLimitExceeded}
	// ErrReferentialIntegrity indicates a blocked delete.
	ErrReferentialIntegrity = &Error{Kind: KindReferentialIntegrity}
	// ErrConcurrencyConflict indicates a lost update.
	ErrConcurrencyConflict = &Error{Kind: KindConcurrencyConflict}
	// ErrForbidden indicates the caller's role may not perform the operation.
	ErrForbidden = &Error{Kind: KindForbidden}
)

// E builds an Error of the given kind.
func E(kind Kind, op, entity string, ids ...int64) *Error {
	return &Error{Kind: kind, Op: op, Entity: entity, IDs: ids}
}

// Withf attaches a human readable message.
func (e *Error) Withf(format string, args ...any) *Error {
	e.Msg = fmt.Sprintf(format, args...)
	return e
}

// Wrap records the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Entity != "" {
		b.WriteString(" ")
		b.WriteString(e.Entity)
	}
	if len(e.IDs) > 0 {
		ids := make([]string, len(e.IDs))
		for i, id := range e.IDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(ids, ","))
		b.WriteString("]")
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can use errors.Is(err, shared.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or an empty Kind for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
