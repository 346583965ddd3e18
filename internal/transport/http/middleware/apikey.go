package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/IgorGrieder/linkhive/internal/constants"
	"github.com/IgorGrieder/linkhive/pkg/httputils"
)

const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware guards the management API. The key is read from X-API-Key
// or, for clients that only speak bearer auth, from "Authorization: Bearer".
// With no keys configured the middleware is a pass-through.
func APIKeyMiddleware(allowedKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(allowedKeys))
	for _, k := range allowedKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}

	if len(keys) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			supplied := presentedKey(r)
			if supplied == "" || !matchesAny(keys, []byte(supplied)) {
				httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get(APIKeyHeader)); k != "" {
		return k
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// matchesAny compares against every key so the time taken does not reveal
// which one matched.
func matchesAny(keys [][]byte, supplied []byte) bool {
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, supplied)
	}
	return found == 1
}
