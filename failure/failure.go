// Package failure classifies errors crossing the generate/publish pipeline.
//
// Callers branch on Kind, never on message text: messages are prose meant for
// operators and are stored verbatim in the agent status.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags an error with the stage and nature of the failure.
type Kind string

const (
	// KindGeneration means no draft could be produced.
	KindGeneration Kind = "generation"
	// KindConfiguration means publishing cannot proceed until configuration changes.
	KindConfiguration Kind = "configuration"
	// KindOperation covers every other publish failure (transport, remote rejection, ...).
	KindOperation Kind = "operation"
)

// UnknownMessage is reported when a failure carries no message at all.
const UnknownMessage = "Unknown error"

// Error is a classified failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

func (e *Error) Unwrap() error { return e.Err }

// Generation wraps err as a generation failure.
func Generation(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindGeneration, Err: err}
}

// Generationf builds a generation failure from a format string.
func Generationf(format string, args ...any) error {
	return &Error{Kind: KindGeneration, Msg: fmt.Sprintf(format, args...)}
}

// Configuration builds a configuration failure carrying msg verbatim.
func Configuration(msg string) error {
	return &Error{Kind: KindConfiguration, Msg: msg}
}

// Operation wraps err as an operation failure.
func Operation(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOperation, Err: err}
}

// Operationf builds an operation failure from a format string.
func Operationf(format string, args ...any) error {
	return &Error{Kind: KindOperation, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err. Unclassified errors count as operation failures.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind != "" {
		return fe.Kind
	}
	return KindOperation
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Message extracts the operator-facing message of err, falling back to
// UnknownMessage when the error has nothing to say.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.TrimSpace(msg) == "" {
		return UnknownMessage
	}
	return msg
}
