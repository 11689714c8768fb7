package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Kind is the closed failure taxonomy every service error maps into.
// Raw client errors never cross the coordinator boundary.
type Kind string

const (
	KindAuth        Kind = "auth_error"
	KindConnection  Kind = "connection_error"
	KindParse       Kind = "parse_error"
	KindRateLimited Kind = "rate_limited"
	KindSetup       Kind = "setup_error"
)

// ServiceError tags a failure with its service and classified kind.
// RateLimited errors may carry an advisory retry-after.
type ServiceError struct {
	Service    string
	Kind       Kind
	Err        error
	RetryAfter time.Duration
}

func (e *ServiceError) Error() string {
	if e == nil {
		return "service error"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Service, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func AuthErr(service string, err error) *ServiceError {
	return &ServiceError{Service: service, Kind: KindAuth, Err: err}
}

func ConnectionErr(service string, err error) *ServiceError {
	return &ServiceError{Service: service, Kind: KindConnection, Err: err}
}

func ParseErr(service string, err error) *ServiceError {
	return &ServiceError{Service: service, Kind: KindParse, Err: err}
}

func RateLimitedErr(service string, retryAfter time.Duration, err error) *ServiceError {
	return &ServiceError{Service: service, Kind: KindRateLimited, Err: err, RetryAfter: retryAfter}
}

func SetupErr(service string, err error) *ServiceError {
	return &ServiceError{Service: service, Kind: KindSetup, Err: err}
}

// Classify maps an arbitrary client error into the taxonomy. Errors already
// carrying a classification pass through unchanged; everything else is sorted
// by its transport or decode signature, with connection failure as the
// default for errors that look like neither.
func Classify(service string, err error) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ConnectionErr(service, err)
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return ConnectionErr(service, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ParseErr(service, err)
	}

	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "unexpected eof"),
		strings.Contains(message, "invalid character"):
		return ParseErr(service, err)
	case strings.Contains(message, "connection refused"),
		strings.Contains(message, "connection reset"),
		strings.Contains(message, "broken pipe"),
		strings.Contains(message, "no such host"),
		strings.Contains(message, "tls"),
		strings.Contains(message, "timeout"):
		return ConnectionErr(service, err)
	}
	return ConnectionErr(service, err)
}

// KindOf extracts the classified kind, or empty for nil / unclassified.
func KindOf(err error) Kind {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind
	}
	return ""
}

// IsKind reports whether err classifies as the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
