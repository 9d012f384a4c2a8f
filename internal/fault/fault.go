// Package fault defines the error taxonomy shared by the ledger, registry,
// journal, and coordinator. Every recoverable failure carries exactly one
// Kind so callers can branch programmatically, and each Kind maps to a
// stable exit code for the CLI.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	SchemaViolation    Kind = "schema_violation"
	DuplicateID        Kind = "duplicate_id"
	UnknownDependency  Kind = "unknown_dependency"
	CycleError         Kind = "cycle_error"
	IllegalTransition  Kind = "illegal_transition"
	DependenciesNotMet Kind = "dependencies_not_met"
	UnavailableWorker  Kind = "unavailable_worker"
	NotFound           Kind = "not_found"
)

// Code returns the stable process exit code for the kind. Zero means the
// kind is unknown and the caller should treat the failure as fatal.
func (k Kind) Code() int {
	switch k {
	case SchemaViolation:
		return 10
	case DuplicateID:
		return 11
	case UnknownDependency:
		return 12
	case CycleError:
		return 13
	case IllegalTransition:
		return 14
	case DependenciesNotMet:
		return 15
	case UnavailableWorker:
		return 16
	case NotFound:
		return 17
	default:
		return 0
	}
}

// Error is a recoverable failure with a taxonomy kind. For SchemaViolation
// the Details slice carries every violated field, not just the first.
type Error struct {
	Kind    Kind
	Msg     string
	Details []string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Msg, strings.Join(e.Details, "; "))
}

func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithDetails builds an Error carrying per-field detail lines.
func WithDetails(kind Kind, msg string, details []string) error {
	return &Error{Kind: kind, Msg: msg, Details: details}
}

// KindOf extracts the taxonomy kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is lets callers match by kind: errors.Is(err, &Error{Kind: NotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
