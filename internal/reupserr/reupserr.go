// Package reupserr defines the core's error kinds (spec §7). Every error the
// core returns to a caller is a *Error so a front end can errors.As it and
// switch on Kind instead of string-matching messages.
package reupserr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the core's well-known error conditions.
type Kind int

const (
	// UnknownProduct means the requested product was not found in any stack.
	UnknownProduct Kind = iota
	// NoMatchingTag means a tag-preference list produced no hit.
	NoMatchingTag
	// VersionConflict means two edges pinned the same product to incompatible versions.
	VersionConflict
	// DependencyCycle means a required-edge cycle was detected.
	DependencyCycle
	// TableParseError means a table file had unterminated quoting or unbalanced parens.
	TableParseError
	// StackIoError means a stack root was missing or unreadable.
	StackIoError
	// CacheError is non-fatal; it is logged and/or recorded as a warning.
	CacheError
	// InterpolationError means a required ${!VAR} interpolation was unresolved.
	InterpolationError
)

func (k Kind) String() string {
	switch k {
	case UnknownProduct:
		return "UnknownProduct"
	case NoMatchingTag:
		return "NoMatchingTag"
	case VersionConflict:
		return "VersionConflict"
	case DependencyCycle:
		return "DependencyCycle"
	case TableParseError:
		return "TableParseError"
	case StackIoError:
		return "StackIoError"
	case CacheError:
		return "CacheError"
	case InterpolationError:
		return "InterpolationError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the core's single error type. Product/Version/Path identify what
// was being processed when the error occurred, so a front end can render an
// actionable diagnostic without parsing the message.
type Error struct {
	Kind    Kind
	Product string
	Version string
	Path    string
	Msg     string
	Cause   error
}

func (e *Error) Error() string {
	loc := e.Product
	if e.Version != "" {
		loc = fmt.Sprintf("%s@%s", e.Product, e.Version)
	}
	if e.Path != "" {
		if loc != "" {
			loc = fmt.Sprintf("%s (%s)", loc, e.Path)
		} else {
			loc = e.Path
		}
	}
	switch {
	case loc != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, loc, e.Msg)
	case loc != "":
		return fmt.Sprintf("%s: %s", e.Kind, loc)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error carrying only Kind and Msg.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithProduct returns a copy of e with Product/Version set.
func (e *Error) WithProduct(product, version string) *Error {
	c := *e
	c.Product = product
	c.Version = version
	return &c
}

// WithPath returns a copy of e with Path set.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// WithCause returns a copy of e with Cause set.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Cause = err
	return &c
}

// Is reports whether err wraps a *Error with the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
