package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrSourceUnavailable indicates that a search API could not be reached
	// or kept failing after retries.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedRecord indicates that a single raw record failed
	// normalization. Malformed records are dropped, never propagated
	// past the adapter that produced them.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that a request was rate limited.
	ErrRateLimited = errors.New("rate limited")
)

// SourceUnavailableError reports which source failed and why. Source-level
// unavailability aborts the whole aggregation call; there is no per-source
// degradation.
type SourceUnavailableError struct {
	Source SourceType
	Cause  error
}

// Error implements the error interface.
func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *SourceUnavailableError) Unwrap() error {
	return ErrSourceUnavailable
}

// MalformedRecordError describes why a single record was dropped during
// normalization.
type MalformedRecordError struct {
	Source SourceType
	Reason string
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s record malformed: %s", e.Source, e.Reason)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// ExternalAPIError provides details about an external API error response.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// NewSourceUnavailableError creates a new SourceUnavailableError.
func NewSourceUnavailableError(source SourceType, cause error) *SourceUnavailableError {
	return &SourceUnavailableError{
		Source: source,
		Cause:  cause,
	}
}

// NewMalformedRecordError creates a new MalformedRecordError.
func NewMalformedRecordError(source SourceType, reason string) *MalformedRecordError {
	return &MalformedRecordError{
		Source: source,
		Reason: reason,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}
