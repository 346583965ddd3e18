package http

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/IgorGrieder/linkhive/internal/constants"
	"github.com/IgorGrieder/linkhive/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"github.com/IgorGrieder/linkhive/pkg/httputils"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{
	"not_found": parsePage("not_found"),
	"expired":   parsePage("expired"),
	"password":  parsePage("password"),
	"error":     parsePage("error"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
}

// LinkResolver decides what a slug request gets.
type LinkResolver interface {
	Resolve(ctx context.Context, slug, suppliedPassword string, rc links.RequestContext) (links.Outcome, error)
}

type ResolveHandler struct {
	resolver       LinkResolver
	redirectStatus int
	visitors       visitorSource
}

func NewResolveHandler(resolver LinkResolver, redirectStatus int, visitorHeader, visitorCookie string) *ResolveHandler {
	if redirectStatus != http.StatusMovedPermanently {
		redirectStatus = http.StatusFound
	}
	return &ResolveHandler{
		resolver:       resolver,
		redirectStatus: redirectStatus,
		visitors:       visitorSource{header: visitorHeader, cookie: visitorCookie},
	}
}

type passwordRequiredData struct {
	RequiresPassword bool `json:"requiresPassword"`
}

// Redirect is the machine-facing edge: a redirect on success, JSON otherwise.
func (h *ResolveHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	out, err := h.resolver.Resolve(r.Context(), slug, r.URL.Query().Get("password"), h.visitors.requestContext(r))
	if err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	switch out.Decision {
	case links.DecisionAllow:
		w.Header().Set("Cache-Control", "private, max-age=0")
		http.Redirect(w, r, out.Destination, h.redirectStatus)
	case links.DecisionExpired:
		httputils.WriteAPIError(w, r, constants.ErrLinkExpired)
	case links.DecisionPasswordRequired:
		httputils.WriteAPIErrorWithData(w, r, constants.ErrPasswordRequired, passwordRequiredData{RequiresPassword: true})
	case links.DecisionNotFound:
		httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
	default:
		logger.Error("unknown resolution decision", zap.String("decision", string(out.Decision)), zap.String("slug", slug))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
	}
}

type pageData struct {
	Title     string
	LinkTitle string
	Slug      string
	Failed    bool
}

// Page is the browser-facing edge with the same decisions rendered as HTML.
func (h *ResolveHandler) Page(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	query := r.URL.Query()
	out, err := h.resolver.Resolve(r.Context(), slug, query.Get("password"), h.visitors.requestContext(r))
	if err != nil {
		h.render(w, http.StatusInternalServerError, "error", pageData{Title: "Error", Slug: slug})
		return
	}

	switch out.Decision {
	case links.DecisionAllow:
		w.Header().Set("Cache-Control", "private, max-age=0")
		http.Redirect(w, r, out.Destination, h.redirectStatus)
	case links.DecisionExpired:
		h.render(w, http.StatusGone, "expired", pageData{Title: "Link expired", Slug: slug})
	case links.DecisionPasswordRequired:
		data := pageData{Title: "Password required", Slug: slug, Failed: query.Get("password") != ""}
		if out.Link != nil {
			data.LinkTitle = out.Link.Title
		}
		h.render(w, http.StatusUnauthorized, "password", data)
	default:
		h.render(w, http.StatusNotFound, "not_found", pageData{Title: "Link not found", Slug: slug})
	}
}

func (h *ResolveHandler) render(w http.ResponseWriter, status int, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		logger.Error("failed to render page", zap.Error(err), zap.String("page", page))
	}
}
