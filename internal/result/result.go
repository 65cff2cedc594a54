// Package result models the outcome of one record-level decode or extract
// operation as a small sum type, restating the reference implementation's
// "return NULL on success, a message string on failure" convention without
// losing Go's distinction between a real error and "nothing to do here".
package result

import "fmt"

// Kind classifies an Outcome.
type Kind int

const (
	// OK means the operation completed normally.
	OK Kind = iota
	// Suppressed means the operation intentionally did nothing (the record
	// didn't match a requested name, or extraction was skipped by policy).
	Suppressed
	// Err means the operation failed; Message carries the detail.
	Err
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "OK"
	case Suppressed:
		return "Suppressed"
	case Err:
		return "Err"
	default:
		return "unknown"
	}
}

// Outcome is the result of one record-level operation.
type Outcome struct {
	Kind    Kind
	Message string
}

// Ok is a successful Outcome.
func Ok() Outcome { return Outcome{Kind: OK} }

// Suppress is an intentionally-skipped Outcome.
func Suppress() Outcome { return Outcome{Kind: Suppressed} }

// Errf builds a failed Outcome from a formatted message.
func Errf(format string, args ...interface{}) Outcome {
	return Outcome{Kind: Err, Message: fmt.Sprintf(format, args...)}
}

// FromError converts a Go error into Err (nil becomes OK).
func FromError(err error) Outcome {
	if err == nil {
		return Ok()
	}
	return Outcome{Kind: Err, Message: err.Error()}
}
