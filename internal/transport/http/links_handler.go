package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/IgorGrieder/linkhive/internal/constants"
	"github.com/IgorGrieder/linkhive/internal/infrastructure/logger"
	appvalidation "github.com/IgorGrieder/linkhive/internal/infrastructure/validation"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"github.com/IgorGrieder/linkhive/internal/transport/http/middleware"
	"github.com/IgorGrieder/linkhive/pkg/httputils"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type LinksHandler struct {
	svc     *links.Service
	baseURL string
}

func NewLinksHandler(svc *links.Service, baseURL string) *LinksHandler {
	return &LinksHandler{
		svc:     svc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type createLinkRequest struct {
	OriginalURL    string     `json:"original_url" validate:"required,notblank,http_url"`
	CustomSlug     string     `json:"custom_slug,omitempty" validate:"omitempty,slug"`
	Title          string     `json:"title,omitempty" validate:"max=200"`
	Description    string     `json:"description,omitempty" validate:"max=2000"`
	Tags           []string   `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" validate:"omitempty,future"`
	Password       string     `json:"password,omitempty" validate:"max=72"`
	TrackAnalytics *bool      `json:"track_analytics,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
}

type updateLinkRequest struct {
	OriginalURL    *string    `json:"original_url,omitempty" validate:"omitempty,notblank,http_url"`
	Slug           *string    `json:"slug,omitempty" validate:"omitempty,slug"`
	Title          *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	Description    *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Tags           []string   `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" validate:"omitempty,future"`
	ClearExpiry    bool       `json:"clear_expiry,omitempty"`
	Password       *string    `json:"password,omitempty" validate:"omitempty,max=72"`
	TrackAnalytics *bool      `json:"track_analytics,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
}

type linkResponse struct {
	ID                  string     `json:"id"`
	Slug                string     `json:"slug"`
	ShortURL            string     `json:"shortUrl"`
	OriginalURL         string     `json:"originalUrl"`
	Title               string     `json:"title,omitempty"`
	Description         string     `json:"description,omitempty"`
	Tags                []string   `json:"tags"`
	ExpiresAt           *time.Time `json:"expiresAt,omitempty"`
	IsPasswordProtected bool       `json:"isPasswordProtected"`
	TrackAnalytics      bool       `json:"trackAnalytics"`
	IsActive            bool       `json:"isActive"`
	ClickCount          int64      `json:"clickCount"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func (h *LinksHandler) toResponse(l *links.Link) linkResponse {
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	return linkResponse{
		ID:                  l.ID,
		Slug:                l.Slug,
		ShortURL:            h.baseURL + "/" + l.Slug,
		OriginalURL:         l.OriginalURL,
		Title:               l.Title,
		Description:         l.Description,
		Tags:                tags,
		ExpiresAt:           l.ExpiresAt,
		IsPasswordProtected: l.IsPasswordProtected,
		TrackAnalytics:      l.TrackAnalytics,
		IsActive:            l.IsActive,
		ClickCount:          l.ClickCount,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := httputils.DecodeJSON(r, &req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, validationError(err))
		return
	}

	link, err := h.svc.CreateLink(r.Context(), links.CreateLinkInput{
		OwnerID:        middleware.OwnerFrom(r.Context()),
		OriginalURL:    req.OriginalURL,
		CustomSlug:     req.CustomSlug,
		Title:          req.Title,
		Description:    req.Description,
		Tags:           req.Tags,
		ExpiresAt:      req.ExpiresAt,
		Password:       req.Password,
		TrackAnalytics: req.TrackAnalytics,
		IsActive:       req.IsActive,
	})
	if err != nil {
		writeServiceError(w, r, err, "create link")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkCreated, h.toResponse(link))
}

func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListLinks(r.Context(), middleware.OwnerFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "list links")
		return
	}

	resp := make([]linkResponse, 0, len(out))
	for _, l := range out {
		resp = append(resp, h.toResponse(l))
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinksListed, resp)
}

func (h *LinksHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.GetLink(r.Context(), middleware.OwnerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get link")
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinkFound, h.toResponse(link))
}

func (h *LinksHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateLinkRequest
	if err := httputils.DecodeJSON(r, &req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, validationError(err))
		return
	}

	link, err := h.svc.UpdateLink(r.Context(), middleware.OwnerFrom(r.Context()), r.PathValue("id"), links.UpdateLinkInput{
		OriginalURL:    req.OriginalURL,
		Slug:           req.Slug,
		Title:          req.Title,
		Description:    req.Description,
		Tags:           req.Tags,
		ExpiresAt:      req.ExpiresAt,
		ClearExpiry:    req.ClearExpiry,
		Password:       req.Password,
		TrackAnalytics: req.TrackAnalytics,
		IsActive:       req.IsActive,
	})
	if err != nil {
		writeServiceError(w, r, err, "update link")
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinkUpdated, h.toResponse(link))
}

func (h *LinksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.DeleteLink(r.Context(), middleware.OwnerFrom(r.Context()), id); err != nil {
		writeServiceError(w, r, err, "delete link")
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinkDeleted, map[string]string{"id": id})
}

type statsQueryParams struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

type statsResponse struct {
	LinkID string             `json:"linkId"`
	From   string             `json:"from"`
	To     string             `json:"to"`
	Daily  []links.DailyCount `json:"daily"`
}

func (h *LinksHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	params := statsQueryParams{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	if err := appvalidation.Validate(params); err != nil {
		apiErr := constants.ErrInvalidRequestBody.WithMessage("from and to are required (YYYY-MM-DD)")
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 && validationErrs[0].Tag() == "datetime" {
			apiErr = constants.ErrInvalidRequestBody.WithMessage("invalid " + validationErrs[0].Field() + " (YYYY-MM-DD)")
		}
		httputils.WriteAPIError(w, r, apiErr)
		return
	}

	from, _ := time.Parse(time.DateOnly, params.From)
	to, _ := time.Parse(time.DateOnly, params.To)

	daily, err := h.svc.GetStats(r.Context(), middleware.OwnerFrom(r.Context()), id, from, to)
	if err != nil {
		writeServiceError(w, r, err, "fetch stats")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessStatsFound, statsResponse{
		LinkID: id,
		From:   params.From,
		To:     params.To,
		Daily:  daily,
	})
}

func (h *LinksHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	rng, err := links.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage("range must be one of 7d, 30d, 90d, 1y"))
		return
	}

	summary, err := h.svc.GetSummary(r.Context(), middleware.OwnerFrom(r.Context()), r.PathValue("id"), rng)
	if err != nil {
		writeServiceError(w, r, err, "fetch analytics")
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessAnalyticsFound, summary)
}

// validationError maps the first failing field to the most specific API error.
func validationError(err error) constants.APIError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return constants.ErrInvalidRequestBody
	}
	for _, e := range validationErrs {
		switch {
		case e.Field() == "original_url":
			return constants.ErrInvalidURL
		case e.Tag() == "slug":
			return constants.ErrInvalidSlug
		case e.Tag() == "future":
			return constants.ErrInvalidRequestBody.WithMessage(e.Field() + " must be in the future")
		}
	}
	e := validationErrs[0]
	return constants.ErrInvalidRequestBody.WithMessage("invalid " + e.Field())
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, links.ErrNotFound):
		httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
	case errors.Is(err, links.ErrInvalidURL):
		httputils.WriteAPIError(w, r, constants.ErrInvalidURL)
	case errors.Is(err, links.ErrInvalidSlug):
		httputils.WriteAPIError(w, r, constants.ErrInvalidSlug)
	case errors.Is(err, links.ErrSlugTaken):
		httputils.WriteAPIError(w, r, constants.ErrSlugTaken)
	case errors.Is(err, links.ErrInvalidRange):
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage(fmt.Sprintf("from must be <= to and the range at most %d days", links.MaxStatsDays)))
	case errors.Is(err, links.ErrInvalidPassword):
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage("password must be 1-72 bytes"))
	default:
		logger.Error("failed to "+op, zap.Error(err), zap.String("path", r.URL.Path))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
	}
}
