package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/docqa/internal/api"
)

// MaxBodyBytes rejects requests that declare a body larger than limit and
// caps the rest. Reads past the cap fail with *http.MaxBytesError, which
// api.DomainErrorToHTTP maps to 413.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	message := "request body exceeds " + formatBytes(limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, message)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
