package cover

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a stable failure class in the generation pipeline.
// Callers branch on the kind; Message/Detail are for humans and logs.
type Kind string

const (
	KindValidation  Kind = "VALIDATION"
	KindCredential  Kind = "CREDENTIAL"
	KindSubmit      Kind = "SUBMIT_ERROR"
	KindNoTaskID    Kind = "NO_TASK_ID"
	KindTaskFailed  Kind = "TASK_FAILED"
	KindTaskTimeout Kind = "TASK_TIMEOUT"
	KindUnparsable  Kind = "UNPARSABLE_RESULT"
	KindNoImage     Kind = "NO_IMAGE_RETURNED"
	KindOverloaded  Kind = "OVERLOADED"
	KindAllFailed   Kind = "ALL_VARIANTS_FAILED"
)

type Error struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Detail     string
	Cause      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.HTTPStatus > 0 {
		fmt.Fprintf(&b, " (http %d)", e.HTTPStatus)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// E builds a pipeline error with a formatted message.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) WithStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// KindOf returns the pipeline kind carried by err, or "" for untyped errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsOverloaded reports whether err looks like a transient provider
// overload worth retrying: HTTP 429/503 or an overload marker in the
// message text.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}

	var ce *Error
	if errors.As(err, &ce) {
		if ce.Kind == KindOverloaded || ce.HTTPStatus == 429 || ce.HTTPStatus == 503 {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "overloaded")
}
