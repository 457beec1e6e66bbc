package openai

import (
	"context"
	"errors"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// classifyError maps an OpenAI client failure onto a ServiceError kind.
func classifyError(service string, err error) *domain.ServiceError {
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewServiceError(service, domain.ServiceErrorTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewServiceError(service, kindForStatus(apiErr.HTTPStatusCode), err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewServiceError(service, kindForStatus(reqErr.HTTPStatusCode), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewServiceError(service, domain.ServiceErrorTimeout, err)
	}

	// connection refused, DNS failures and other transport errors
	return domain.NewServiceError(service, domain.ServiceErrorUnavailable, err)
}

func kindForStatus(status int) domain.ServiceErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ServiceErrorUnauthorized
	case status == http.StatusTooManyRequests:
		return domain.ServiceErrorRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return domain.ServiceErrorTimeout
	case status >= 500:
		return domain.ServiceErrorUnavailable
	case status >= 400:
		return domain.ServiceErrorBadRequest
	default:
		return domain.ServiceErrorMalformedResponse
	}
}
