package openai

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// Factory builds clients for a caller-supplied credential. Clients from one
// factory share the HTTP client and the request rate limit.
type Factory struct {
	base Config
}

// NewFactory creates a Factory. rps <= 0 disables client-side rate limiting.
func NewFactory(cfg Config, rps float64) *Factory {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Limiter == nil {
		limit := rate.Inf
		burst := 1
		if rps > 0 {
			limit = rate.Limit(rps)
			burst = int(rps)
			if burst < 1 {
				burst = 1
			}
		}
		cfg.Limiter = rate.NewLimiter(limit, burst)
	}
	return &Factory{base: cfg}
}

// ForCredential returns a client authenticated with apiKey.
func (f *Factory) ForCredential(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, domain.ErrMissingCredential
	}
	cfg := f.base
	cfg.APIKey = apiKey
	return NewClientWithConfig(cfg), nil
}
