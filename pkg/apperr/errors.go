package apperr

import (
	"errors"
)

// Kind classifies failures crossing a collaborator or state boundary.
type Kind string

const (
	KindInvalidUpload    Kind = "INVALID_UPLOAD"
	KindExtractionFailed Kind = "EXTRACTION_FAILED"
	KindNotFound         Kind = "NOT_FOUND"
	KindInferenceFailed  Kind = "INFERENCE_FAILED"
	KindInferenceTimeout Kind = "INFERENCE_TIMEOUT"
	KindSynthesisFailed  Kind = "SYNTHESIS_FAILED"
	KindInternal         Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
	// Details are safe to show to clients
	Details map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// WithDetail attaches a client-visible key/value and returns e.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func InvalidUpload(message string) *Error { return New(KindInvalidUpload, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
