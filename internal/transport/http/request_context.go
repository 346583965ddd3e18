package http

import (
	"net/http"
	"strings"

	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"github.com/IgorGrieder/linkhive/internal/transport/http/middleware"
)

// visitorSource names where the edge looks for a client-supplied visitor id.
type visitorSource struct {
	header string
	cookie string
}

func (v visitorSource) hint(r *http.Request) string {
	if v.header != "" {
		if hint := strings.TrimSpace(r.Header.Get(v.header)); hint != "" {
			return hint
		}
	}
	if v.cookie != "" {
		if c, err := r.Cookie(v.cookie); err == nil {
			return strings.TrimSpace(c.Value)
		}
	}
	return ""
}

func (v visitorSource) requestContext(r *http.Request) links.RequestContext {
	return links.RequestContext{
		UserAgent:   r.UserAgent(),
		Referrer:    r.Referer(),
		ClientIP:    middleware.ClientIP(r),
		VisitorHint: v.hint(r),
	}
}
