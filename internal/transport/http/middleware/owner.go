package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/IgorGrieder/linkhive/internal/constants"
	"github.com/IgorGrieder/linkhive/pkg/httputils"
)

type ownerKey struct{}

// RequireOwner reads the caller identity set by the upstream auth gateway.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if owner == "" {
			httputils.WriteAPIError(w, r, constants.ErrOwnerRequired)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

func OwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// Chain applies middlewares so the first one listed runs first.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
