package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/pagination"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	// Retryable is set for service failures the client may repeat.
	Retryable bool `json:"retryable,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain and service errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		return serviceErrorToHTTP(svcErr.Kind)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}

	if errors.Is(err, pagination.ErrInvalidCursor) {
		return http.StatusBadRequest
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeExtraction:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func serviceErrorToHTTP(kind domain.ServiceErrorKind) int {
	switch kind {
	case domain.ServiceErrorRateLimited:
		return http.StatusTooManyRequests
	case domain.ServiceErrorUnauthorized:
		return http.StatusUnauthorized
	case domain.ServiceErrorTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var domainErr *domain.DomainError
	var svcErr *domain.ServiceError
	switch {
	case errors.As(err, &svcErr):
		resp.Code = "SERVICE_" + string(svcErr.Kind)
		resp.Retryable = svcErr.Retryable()
	case errors.As(err, &domainErr):
		resp.Code = domainErr.Code
	}

	JSON(w, DomainErrorToHTTP(err), resp)
}
