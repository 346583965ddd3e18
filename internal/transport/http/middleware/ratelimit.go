package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/IgorGrieder/linkhive/internal/constants"
	"github.com/IgorGrieder/linkhive/pkg/httputils"
	"github.com/go-chi/httprate"
)

// CreateRateLimit limits link creation per API key, falling back to the
// client address when the API runs without keys.
func CreateRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return httprate.Limit(requestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
				return "key:" + key, nil
			}
			return "ip:" + ClientIP(r), nil
		}),
		httprate.WithLimitHandler(rateLimited),
	)
}

// PasswordAttemptLimit limits password guesses per client address and slug.
// Requests without a password parameter pass through uncounted.
func PasswordAttemptLimit(attemptsPerMinute int) func(http.Handler) http.Handler {
	if attemptsPerMinute <= 0 {
		attemptsPerMinute = 10
	}
	limiter := httprate.Limit(attemptsPerMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return ClientIP(r) + "|" + r.PathValue("slug"), nil
		}),
		httprate.WithLimitHandler(rateLimited),
	)

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !r.URL.Query().Has("password") {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	httputils.WriteAPIError(w, r, constants.ErrRateLimited)
}
