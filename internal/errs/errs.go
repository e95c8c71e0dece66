package errs

import (
	"errors"
	"fmt"
)

// Kind is a stable failure category. Callers branch on Kind, never on the
// message text.
type Kind string

const (
	KindMalformed          Kind = "Malformed"
	KindUnknownGuardianSet Kind = "UnknownGuardianSet"
	KindExpired            Kind = "Expired"
	KindQuorumNotMet       Kind = "QuorumNotMet"
	KindAlreadyPosted      Kind = "AlreadyPosted"
	KindSignatureInvalid   Kind = "SignatureInvalid"
	KindNotFound           Kind = "NotFound"
	KindInternal           Kind = "Internal"
)

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrMalformed          = &Error{Kind: KindMalformed, Message: "malformed input"}
	ErrUnknownGuardianSet = &Error{Kind: KindUnknownGuardianSet, Message: "unknown guardian set"}
	ErrExpired            = &Error{Kind: KindExpired, Message: "guardian set expired"}
	ErrQuorumNotMet       = &Error{Kind: KindQuorumNotMet, Message: "quorum not met"}
	ErrAlreadyPosted      = &Error{Kind: KindAlreadyPosted, Message: "message already posted"}
	ErrSignatureInvalid   = &Error{Kind: KindSignatureInvalid, Message: "signature invalid"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
)

// Error is the structured error returned by every core package.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *Error carrying the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Malformed is shorthand for the most common failure of the codecs.
func Malformed(format string, args ...any) error {
	return New(KindMalformed, format, args...)
}

// IsKind reports whether err is (or wraps) an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the Kind of err, or "" when err is not structured.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// Retriable reports whether resubmitting the same input may succeed later.
// Only a missing guardian set can be fixed without changing the input.
func Retriable(kind Kind) bool {
	return kind == KindUnknownGuardianSet
}
