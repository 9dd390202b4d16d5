// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"rate limit error type", &Error{Type: ErrorTypeRateLimit, Message: "rate limit reached"}, true},
		{"wrapped rate limit error", fmt.Errorf("resolving: %w", ClassifyHTTPError(429)), true},
		{"message contains too many requests", errors.New("too many requests"), true},
		{"message contains 429", errors.New("nominatim returned status 429"), true},
		{"other error type", &Error{Type: ErrorTypeNotFound, Message: "not found"}, false},
		{"nil", nil, false},
	}, IsRateLimitError)
}

func TestIsQuotaExceededError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"quota error type", &Error{Type: ErrorTypeQuotaExceeded, Message: "quota"}, true},
		{"google status", errors.New("google maps status: OVER_QUERY_LIMIT"), true},
		{"other", errors.New("boom"), false},
		{"nil", nil, false},
	}, IsQuotaExceededError)
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		statusCode int
		wantType   ErrorType
	}{
		{429, ErrorTypeRateLimit},
		{403, ErrorTypeQuotaExceeded},
		{400, ErrorTypeInvalidRequest},
		{404, ErrorTypeNotFound},
		{503, ErrorTypeNetworkError},
		{502, ErrorTypeNetworkError},
		{504, ErrorTypeNetworkError},
		{500, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.statusCode), func(t *testing.T) {
			got := ClassifyHTTPError(tt.statusCode)
			if got.Type != tt.wantType {
				t.Errorf("ClassifyHTTPError() type = %v, want %v", got.Type, tt.wantType)
			}
		})
	}

	if !errors.Is(ClassifyHTTPError(404), ErrNotFound) {
		t.Error("404 should unwrap to ErrNotFound")
	}
}

func TestTransportError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	if got := transportError(ctx.Err()); got.Type != ErrorTypeTimeout {
		t.Errorf("deadline exceeded should be a timeout, got %v", got.Type)
	}

	inner := errors.New("connection refused")

	got := transportError(inner)
	if got.Type != ErrorTypeNetworkError {
		t.Errorf("expected network error, got %v", got.Type)
	}

	if !errors.Is(got, inner) {
		t.Error("errors.Is should find wrapped error")
	}
}
