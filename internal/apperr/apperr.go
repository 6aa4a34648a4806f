// Package apperr defines the tagged error values returned by the
// orchestration layer. Only the HTTP layer turns them into wire responses.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnauthorized     Kind = "Unauthorized"
	KindBadRequest       Kind = "BadRequest"
	KindNotFound         Kind = "NotFound"
	KindUploadFailed     Kind = "UploadFailed"
	KindIngestionFailed  Kind = "IngestionFailed"
	KindIngestionTimeout Kind = "IngestionTimeout"
	KindGenerationFailed Kind = "GenerationFailed"
	KindIOError          Kind = "IOError"
	KindInternal         Kind = "Internal"
)

// Error is a failure tagged with its kind and, for multi-step operations,
// the step that failed.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Stage, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags err with kind. The message defaults to the wrapped error's text
// so the backend's own wording reaches the caller.
func Wrap(kind Kind, err error, message string) *Error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// AtStage returns a copy of e attributed to stage.
func (e *Error) AtStage(stage string) *Error {
	c := *e
	c.Stage = stage
	return &c
}

// KindOf reports the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
