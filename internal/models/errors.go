package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a PipelineError.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidInput
	KindSerializationFailure
	KindTransportFailure
	KindProviderRejected
	KindConfigurationFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindSerializationFailure:
		return "serialization_failure"
	case KindTransportFailure:
		return "transport_failure"
	case KindProviderRejected:
		return "provider_rejected"
	case KindConfigurationFailure:
		return "configuration_failure"
	default:
		return "unknown"
	}
}

// PipelineError is the error type returned by every stage of the publish
// pipeline. Provider fields are only populated for KindProviderRejected.
type PipelineError struct {
	Kind ErrorKind
	Op   string // stage that failed: "normalize", "validate", "publish", "configure"

	Code       string // provider error code, e.g. "NotFound" or "Throttling"
	StatusCode int    // provider HTTP status, 0 when unknown
	Timeout    bool   // the publish deadline expired

	Msg string
	Err error
}

func (e *PipelineError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, msg, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewError builds a PipelineError with a message and optional cause.
func NewError(kind ErrorKind, op, msg string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf reports the kind of the first PipelineError in err's chain.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}
