// Package bberr defines the closed error-kind taxonomy shared across
// bundlebase's core packages. Every error that crosses a package boundary
// is wrapped in a *Error carrying one of the Kind values below, so callers
// can branch on kind with errors.Is/As instead of string-matching messages.
package bberr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of failure. Kinds are a closed set; adding
// one means updating this file, not inventing an ad-hoc string elsewhere.
type Kind string

const (
	// Validation covers bad user input: unknown column, malformed SQL,
	// type mismatch, empty required field. Caught in an operation's check
	// phase, before anything is recorded.
	Validation Kind = "validation"

	// DataSource covers an adapter failing to read its source: not found,
	// unreadable, corrupt. Surfaced at first scan, not at definition time.
	DataSource Kind = "data_source"

	// Schema covers incompatible unions or unsupported coercions.
	Schema Kind = "schema"

	// IO covers underlying store failures: manifest write, file read,
	// object-store round trip.
	IO Kind = "io"

	// Execution covers query engine failure during streaming.
	Execution Kind = "execution"

	// VersionMismatch marks an index stale relative to its block. This
	// kind is internal: C8 recovers from it locally by substituting a
	// full scan and never surfaces it to a caller.
	VersionMismatch Kind = "version_mismatch"

	// ConfigMissing marks a function declared in the manifest but not
	// registered in the process-wide function registry.
	ConfigMissing Kind = "config_missing"

	// Cycle marks a manifest `from` chain that loops back on itself.
	Cycle Kind = "cycle"

	// UnknownOperation marks a manifest operation record whose `type` tag
	// does not match any registered operation kind.
	UnknownOperation Kind = "unknown_operation"
)

// Error wraps an underlying cause with a Kind and structured context.
// Context keys are free-form (file path, column name, SQL fragment) and
// are carried for logging, not for programmatic matching — match on Kind.
type Error struct {
	Kind    Kind
	Op      string
	Context map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error for op with the given kind and cause.
func New(op string, kind Kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, Cause: cause}
}

// Newf is like New but builds the cause from a format string.
func Newf(op string, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Op: op, Kind: kind, Cause: fmt.Errorf(format, args...)}
}

// WithContext returns a copy of e with key/value added to its context map.
func (e *Error) WithContext(key string, value interface{}) *Error {
	ctx := make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Error{Kind: e.Kind, Op: e.Op, Context: ctx, Cause: e.Cause}
}

// KindOf returns the Kind carried by err, and false if err is not (or
// does not wrap) a *Error.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
