// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Error is a provider failure with a classified cause.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies provider failures.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit the provider is throttling us.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded quota exhausted or key rejected.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout connection timeout.
	ErrorTypeTimeout
	// ErrorTypeNotFound no match for the query.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest malformed request.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError upstream unavailable.
	ErrorTypeNetworkError
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRateLimitError reports whether err means the provider is throttling us.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsQuotaExceededError reports whether err means the quota is exhausted.
func IsQuotaExceededError(err error) bool {
	if err == nil {
		return false
	}

	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeQuotaExceeded
	}

	// Google Maps reports it in the payload status
	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "quota exceeded")
}

// ClassifyHTTPError maps an upstream HTTP status into an *Error.
func ClassifyHTTPError(statusCode int) *Error {
	switch statusCode {
	case http.StatusTooManyRequests:
		return &Error{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case http.StatusForbidden:
		return &Error{
			Type:    ErrorTypeQuotaExceeded,
			Message: "quota exceeded or access denied",
		}
	case http.StatusBadRequest:
		return &Error{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case http.StatusNotFound:
		return &Error{
			Type:    ErrorTypeNotFound,
			Message: "location not found",
			Err:     ErrNotFound,
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &Error{
			Type:    ErrorTypeNetworkError,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}
}

// transportError wraps a failed round trip, flagging timeouts.
func transportError(err error) *Error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Type: ErrorTypeTimeout, Message: "geocoding request timed out", Err: err}
	}

	return &Error{Type: ErrorTypeNetworkError, Message: "geocoding request failed", Err: err}
}
