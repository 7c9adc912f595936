package config

import (
	"fmt"
	"strings"
)

// Error is a fatal startup condition: missing environment, unreadable ABI
// file, unknown chain profile.
type Error struct {
	Problems []string
	Err      error
}

func (e *Error) Error() string {
	msg := "configuration error"
	if len(e.Problems) == 1 {
		msg += ": " + e.Problems[0]
	} else if len(e.Problems) > 1 {
		msg += ":\n  " + strings.Join(e.Problems, "\n  ")
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a single-problem configuration error.
func Errorf(err error, format string, args ...any) *Error {
	return &Error{Problems: []string{fmt.Sprintf(format, args...)}, Err: err}
}
