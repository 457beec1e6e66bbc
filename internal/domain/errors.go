package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code and message so wrapped sentinels compare equal.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeExtraction    = "EXTRACTION_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidPageList     = NewDomainError(ErrCodeValidation, "invalid page list")
	ErrInvalidPattern      = NewDomainError(ErrCodeValidation, "invalid removal pattern")
	ErrNoDocuments         = NewDomainError(ErrCodeValidation, "no PDF documents to ingest")
	ErrEmptyQuestion       = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrMissingCredential   = NewDomainError(ErrCodeUnauthorized, "missing service credential")
	ErrDimensionMismatch   = NewDomainError(ErrCodeValidation, "embedding dimensions do not match")
	ErrInvalidTable        = NewDomainError(ErrCodeValidation, "invalid embeddings table")
	ErrUnsupportedEncoding = NewDomainError(ErrCodeValidation, "unsupported tokenizer encoding")
)

// Not found errors
var (
	ErrStoreNotFound   = NewDomainError(ErrCodeNotFound, "no embedding store has been loaded")
	ErrArchiveNotFound = NewDomainError(ErrCodeNotFound, "table archive not found")
	ErrArchiveDisabled = NewDomainError(ErrCodeNotFound, "table archive storage is not configured")
)

// IsNotFound reports whether err is a domain error with the NOT_FOUND code.
func IsNotFound(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == ErrCodeNotFound
}

// Extraction errors
var (
	ErrCorruptPDF = NewDomainError(ErrCodeExtraction, "failed to extract text from PDF")
)

// ServiceErrorKind classifies failures of the external embedding and completion services.
type ServiceErrorKind string

const (
	ServiceErrorTimeout           ServiceErrorKind = "timeout"
	ServiceErrorRateLimited       ServiceErrorKind = "rate_limited"
	ServiceErrorUnavailable       ServiceErrorKind = "unavailable"
	ServiceErrorUnauthorized      ServiceErrorKind = "unauthorized"
	ServiceErrorBadRequest        ServiceErrorKind = "bad_request"
	ServiceErrorMalformedResponse ServiceErrorKind = "malformed_response"
)

// Retryable reports whether a call failing with this kind may succeed when repeated.
func (k ServiceErrorKind) Retryable() bool {
	switch k {
	case ServiceErrorTimeout, ServiceErrorRateLimited, ServiceErrorUnavailable:
		return true
	}
	return false
}

// ServiceError is returned when an external service call fails.
type ServiceError struct {
	Service string
	Kind    ServiceErrorKind
	Err     error
}

// NewServiceError creates a ServiceError for the named service.
func NewServiceError(service string, kind ServiceErrorKind, err error) *ServiceError {
	return &ServiceError{Service: service, Kind: kind, Err: err}
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service error (%s): %v", e.Service, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s service error (%s)", e.Service, e.Kind)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failed call may be repeated.
func (e *ServiceError) Retryable() bool {
	return e.Kind.Retryable()
}

// IsRetryable reports whether err wraps a retryable ServiceError.
func IsRetryable(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Retryable()
	}
	return false
}
