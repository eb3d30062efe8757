// Package apperr defines the failure kinds shared by the completion client,
// the stage executors, the pipeline controller and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnknown            Kind = ""
	KindNotFound           Kind = "not_found"
	KindPreconditionFailed Kind = "precondition_failed"
	KindServiceUnavailable Kind = "service_unavailable"
	KindUpstream           Kind = "upstream_error"
	KindMalformedResponse  Kind = "malformed_response"
	KindValidation         Kind = "validation_error"
)

type Error struct {
	Kind    Kind
	Message string
	// StatusCode and Body are set for KindUpstream.
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Kind == KindUpstream {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func PreconditionFailed(format string, args ...any) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

func ServiceUnavailable(format string, args ...any) *Error {
	return &Error{Kind: KindServiceUnavailable, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Upstream(statusCode int, body string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: "completion service call failed", StatusCode: statusCode, Body: body, Err: err}
}

func Malformed(err error, format string, args ...any) *Error {
	return &Error{Kind: KindMalformedResponse, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
