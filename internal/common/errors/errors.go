// Package errors provides standardized error handling for the partner
// integration subsystem.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Configuration errors are fatal and fail closed: a missing or disabled
	// partner record, or an absent webhook secret, never reaches an adapter.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// Partner call failures, classified for logging. The orchestrator treats
	// them uniformly; the distinction matters for diagnostics only.
	ErrCodeAuthentication     ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeTransport          ErrorCode = "TRANSPORT_ERROR"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodePartnerRejection   ErrorCode = "PARTNER_REJECTION"
	ErrCodeUnsupportedPartner ErrorCode = "UNSUPPORTED_PARTNER"

	// Webhook ingress errors.
	ErrCodeSignature      ErrorCode = "SIGNATURE_ERROR"
	ErrCodeUnknownPayload ErrorCode = "UNKNOWN_PAYLOAD_SHAPE"

	// Fallback dispatch errors.
	ErrCodeFallbackDispatch ErrorCode = "FALLBACK_DISPATCH_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from err, or empty if err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConfigurationError creates a fail-closed configuration error. The
// details are for logs only and must never leak credentials to responses.
func NewConfigurationError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationError creates a credential-exchange rejection error.
func NewAuthenticationError(partnerCode string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthentication,
		Message:   fmt.Sprintf("Authentication with partner '%s' failed", partnerCode),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportError creates a retryable network/timeout error.
func NewTransportError(partnerCode string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransport,
		Message:   fmt.Sprintf("Transport error talking to partner '%s'", partnerCode),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable payload validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Application data validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPartnerRejectionError creates a non-retryable partner-side business
// rejection (e.g. application already exists).
func NewPartnerRejectionError(partnerCode, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePartnerRejection,
		Message:   fmt.Sprintf("Partner '%s' rejected the request", partnerCode),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedPartnerError marks a code the adapter factory does not know.
func NewUnsupportedPartnerError(partnerCode string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedPartner,
		Message:   fmt.Sprintf("Unsupported partner: %s", partnerCode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSignatureError creates a webhook signature rejection. Details stay out
// of the response body.
func NewSignatureError(partnerCode, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSignature,
		Message:   fmt.Sprintf("Webhook signature verification failed for '%s'", partnerCode),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownPayloadError marks an inbound partner payload whose shape is not
// recognized; coercing it silently is not an option.
func NewUnknownPayloadError(partnerCode, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownPayload,
		Message:   fmt.Sprintf("Unrecognized webhook payload shape from '%s'", partnerCode),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFallbackDispatchError creates a retryable fallback dispatch error.
func NewFallbackDispatchError(method string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFallbackDispatch,
		Message:   fmt.Sprintf("Fallback dispatch via '%s' failed", method),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
