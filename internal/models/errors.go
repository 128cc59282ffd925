package models

import "fmt"

// ErrorType categorizes the failure modes of the request-serving pipeline.
type ErrorType int

const (
	ErrUnknownFilename ErrorType = iota
	ErrUnknownDistribution
	ErrUnknownAgent
	ErrDownloadFailed
	ErrParseFailed
	ErrRenderFailed
	ErrSignFailed
	ErrPersistFailed
	ErrRouteInput
)

// String returns the string representation of ErrorType.
func (e ErrorType) String() string {
	switch e {
	case ErrUnknownFilename:
		return "UnknownFilename"
	case ErrUnknownDistribution:
		return "UnknownDistribution"
	case ErrUnknownAgent:
		return "UnknownAgent"
	case ErrDownloadFailed:
		return "DownloadFailed"
	case ErrParseFailed:
		return "ParseFailed"
	case ErrRenderFailed:
		return "RenderFailed"
	case ErrSignFailed:
		return "SignFailed"
	case ErrPersistFailed:
		return "PersistFailed"
	case ErrRouteInput:
		return "RouteInput"
	default:
		return "Unknown"
	}
}

// GatewayError wraps an underlying error with the pipeline stage it occurred in.
type GatewayError struct {
	Type    ErrorType
	Subject string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Subject, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Wrap constructs a GatewayError, the idiomatic constructor used across the
// pipeline wherever a stage needs to tag an error with its kind.
func Wrap(t ErrorType, subject string, err error) *GatewayError {
	if err == nil {
		return nil
	}
	return &GatewayError{Type: t, Subject: subject, Err: err}
}
