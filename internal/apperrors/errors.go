// Package apperrors defines the coded errors and warnings shared by the
// parser, the planner pipeline and the CLI/HTTP wrappers. Every failure that
// crosses a package boundary carries a Kind so wrappers can report it as
// structured data instead of a bare message.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a class of failure.
type Kind string

const (
	// KindAmbiguousOperator indicates "and" and "or" were mixed at one nesting level.
	KindAmbiguousOperator Kind = "ambiguous-operator"
	// KindInvalidToken indicates a requirement token is not a valid course identifier.
	KindInvalidToken Kind = "invalid-token"
	// KindMalformedExpression indicates unbalanced parentheses, empty groups or
	// operators without operands.
	KindMalformedExpression Kind = "malformed-expression"
	// KindUnknownCourse marks a referenced course missing from the catalog.
	KindUnknownCourse Kind = "unknown-course"
	// KindUnsatisfiable indicates no OR assignment connects every required course.
	KindUnsatisfiable Kind = "unsatisfiable"
	// KindEnumerationTooLarge indicates the OR combination count exceeded the ceiling.
	KindEnumerationTooLarge Kind = "enumeration-too-large"
	// KindCapacityExceeded indicates a corequisite unit cannot fit in any term.
	KindCapacityExceeded Kind = "capacity-exceeded"
	// KindDependencyCycle indicates prerequisite edges form a cycle.
	KindDependencyCycle Kind = "dependency-cycle"
	// KindInvalidRequest indicates the scheduling request itself is unusable.
	KindInvalidRequest Kind = "invalid-request"
	// KindDuplicateCourse marks a catalog record that replaced an earlier one.
	KindDuplicateCourse Kind = "duplicate-course"
	// KindSelfReference marks a course listed in its own requirements.
	KindSelfReference Kind = "self-reference"
)

// Sentinels, one per fatal kind, so callers can use errors.Is.
var (
	ErrAmbiguousOperator    = errors.New("ambiguous operator")
	ErrInvalidToken         = errors.New("invalid token")
	ErrMalformedExpression  = errors.New("malformed expression")
	ErrUnsatisfiable        = errors.New("unsatisfiable requirements")
	ErrEnumerationTooLarge  = errors.New("enumeration too large")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrDependencyCycle      = errors.New("dependency cycle")
	ErrInvalidRequest       = errors.New("invalid request")
	errUnclassifiedSentinel = errors.New("error")
)

var sentinels = map[Kind]error{
	KindAmbiguousOperator:   ErrAmbiguousOperator,
	KindInvalidToken:        ErrInvalidToken,
	KindMalformedExpression: ErrMalformedExpression,
	KindUnsatisfiable:       ErrUnsatisfiable,
	KindEnumerationTooLarge: ErrEnumerationTooLarge,
	KindCapacityExceeded:    ErrCapacityExceeded,
	KindDependencyCycle:     ErrDependencyCycle,
	KindInvalidRequest:      ErrInvalidRequest,
}

// Error is a coded failure. Subject names the offending course, choice or
// token when there is one.
type Error struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// New builds an Error with a formatted message.
func New(kind Kind, subject, format string, args ...any) *Error {
	return &Error{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Error formats the failure as "[kind] message (subject)".
func (e *Error) Error() string {
	if e == nil {
		return "apperrors <nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	if e.Subject != "" {
		fmt.Fprintf(&b, " (%s)", e.Subject)
	}
	return b.String()
}

// Unwrap exposes the sentinel for the error's kind.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	if sentinel, ok := sentinels[e.Kind]; ok {
		return sentinel
	}
	return errUnclassifiedSentinel
}

// KindOf returns the Kind carried by err, or "" when err is not coded.
func KindOf(err error) Kind {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Kind
	}
	return ""
}

// As extracts the coded error from err.
func As(err error) (*Error, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}

// Warning is a non-fatal note collected while building or scheduling.
type Warning struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Warnf builds a Warning with a formatted message.
func Warnf(kind Kind, subject, format string, args ...any) Warning {
	return Warning{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// String formats the warning the same way Error formats errors.
func (w Warning) String() string {
	if w.Subject == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s (%s)", w.Kind, w.Message, w.Subject)
}

// FromError converts a coded error into a warning; uncoded errors keep their
// message under KindInvalidRequest.
func FromError(err error, subject string) Warning {
	if coded, ok := As(err); ok {
		if coded.Subject != "" && subject != "" && coded.Subject != subject {
			return Warning{Kind: coded.Kind, Subject: subject, Message: fmt.Sprintf("%s: %s", coded.Subject, coded.Message)}
		}
		if subject == "" {
			subject = coded.Subject
		}
		return Warning{Kind: coded.Kind, Subject: subject, Message: coded.Message}
	}
	return Warning{Kind: KindInvalidRequest, Subject: subject, Message: err.Error()}
}
