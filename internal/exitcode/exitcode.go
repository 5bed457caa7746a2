// Package exitcode maps supervisor outcomes to process exit codes.
//
// Codes 0-127 forward the child's own exit status and 128+s reports death by
// signal s; the 20x range is reserved for the supervisor itself.
package exitcode

import (
	"errors"
	"fmt"
	"io"
)

const (
	// General is the catch-all internal error code.
	General = 201

	// Usage reports bad flags, an empty prompt, an invalid regex, or a
	// missing command.
	Usage = 202

	// Timeout reports that the prompt timeout elapsed with --fatal-no-prompt.
	Timeout = 203

	// Sys reports a failed system call.
	Sys = 204

	// MaxTries reports a prompt seen after the try limit with --fatal-tries.
	MaxTries = 205
)

// Error is a fatal condition that carries the process exit code.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an Error with the given code and formatted message.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// Sysf builds a system-call Error, wrapping err for errors.Is inspection.
func Sysf(err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Code: Sys, Err: fmt.Errorf("%s: %w", msg, err)}
}

// CodeOf extracts the exit code from err, defaulting to General.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return General
}

// Report prints the single-line diagnostic for a fatal error. The trailing
// \r\n keeps the line readable if the terminal is still in raw mode.
func Report(w io.Writer, err error) {
	fmt.Fprintf(w, "!! %s\r\n", err.Error())
}
