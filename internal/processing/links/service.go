package links

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ServiceOptions struct {
	SlugLength int
	// DerivedClickCount replaces the stored counter with a count of click
	// events whenever links are read.
	DerivedClickCount bool
}

// Service owns link management on behalf of an owner. Resolution lives in
// Resolver.
type Service struct {
	linkRepo  LinkRepository
	statsRepo StatsRepository
	slugger   Slugger
	hasher    PasswordHasher
	opts      ServiceOptions
	now       func() time.Time
	newID     func() string
}

func NewService(linkRepo LinkRepository, statsRepo StatsRepository, slugger Slugger, hasher PasswordHasher, opts ServiceOptions) *Service {
	if opts.SlugLength <= 0 {
		opts.SlugLength = 6
	}

	return &Service{
		linkRepo:  linkRepo,
		statsRepo: statsRepo,
		slugger:   slugger,
		hasher:    hasher,
		opts:      opts,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *Service) CreateLink(ctx context.Context, in CreateLinkInput) (*Link, error) {
	normalizedURL, err := validateAndNormalizeURL(in.OriginalURL)
	if err != nil {
		return nil, ErrInvalidURL
	}

	now := s.now().UTC()
	link := &Link{
		ID:             s.newID(),
		OriginalURL:    normalizedURL,
		OwnerID:        in.OwnerID,
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Tags:           normalizeTags(in.Tags),
		ExpiresAt:      utcPtr(in.ExpiresAt),
		TrackAnalytics: boolOr(in.TrackAnalytics, true),
		IsActive:       boolOr(in.IsActive, true),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		link.IsPasswordProtected = true
		link.PasswordHash = hash
	}

	if custom := strings.TrimSpace(in.CustomSlug); custom != "" {
		if !ValidCustomSlug(custom) {
			return nil, ErrInvalidSlug
		}
		link.Slug = custom
		if err := s.linkRepo.Insert(ctx, link); err != nil {
			return nil, err
		}
		return link, nil
	}

	const maxAttempts = 10
	for range maxAttempts {
		slug, err := s.slugger.Generate(s.opts.SlugLength)
		if err != nil {
			return nil, err
		}
		if IsReservedSlug(slug) {
			continue
		}
		link.Slug = slug

		if err := s.linkRepo.Insert(ctx, link); err != nil {
			if errors.Is(err, ErrSlugTaken) {
				continue
			}
			return nil, err
		}

		return link, nil
	}

	return nil, ErrSlugTaken
}

// GetLink returns ErrNotFound for links that belong to another owner.
func (s *Service) GetLink(ctx context.Context, ownerID, id string) (*Link, error) {
	link, err := s.ownedLink(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateClickCounts(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *Service) ListLinks(ctx context.Context, ownerID string) ([]*Link, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrNotFound
	}
	out, err := s.linkRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateClickCounts(ctx, out...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateLink(ctx context.Context, ownerID, id string, in UpdateLinkInput) (*Link, error) {
	link, err := s.ownedLink(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if in.OriginalURL != nil {
		normalizedURL, err := validateAndNormalizeURL(*in.OriginalURL)
		if err != nil {
			return nil, ErrInvalidURL
		}
		link.OriginalURL = normalizedURL
	}
	if in.Slug != nil {
		slug := strings.TrimSpace(*in.Slug)
		if !ValidCustomSlug(slug) {
			return nil, ErrInvalidSlug
		}
		// Uniqueness is re-checked by the store's unique index on Update.
		link.Slug = slug
	}
	if in.Title != nil {
		link.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		link.Description = strings.TrimSpace(*in.Description)
	}
	if in.Tags != nil {
		link.Tags = normalizeTags(in.Tags)
	}
	switch {
	case in.ClearExpiry:
		link.ExpiresAt = nil
	case in.ExpiresAt != nil:
		link.ExpiresAt = utcPtr(in.ExpiresAt)
	}
	if in.Password != nil {
		if *in.Password == "" {
			link.IsPasswordProtected = false
			link.PasswordHash = ""
		} else {
			hash, err := s.hasher.Hash(*in.Password)
			if err != nil {
				return nil, err
			}
			link.IsPasswordProtected = true
			link.PasswordHash = hash
		}
	}
	if in.TrackAnalytics != nil {
		link.TrackAnalytics = *in.TrackAnalytics
	}
	if in.IsActive != nil {
		link.IsActive = *in.IsActive
	}
	link.UpdatedAt = s.now().UTC()

	if err := s.linkRepo.Update(ctx, link); err != nil {
		return nil, err
	}
	if err := s.hydrateClickCounts(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *Service) DeleteLink(ctx context.Context, ownerID, id string) error {
	if _, err := s.ownedLink(ctx, ownerID, id); err != nil {
		return err
	}

	deleted, err := s.linkRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// MaxStatsDays bounds a daily stats request, matching the longest analytics
// window.
const MaxStatsDays = 366

// GetStats returns one count per day of the inclusive [from, to] range.
// Ranges longer than MaxStatsDays are ErrInvalidRange.
func (s *Service) GetStats(ctx context.Context, ownerID, id string, from, to time.Time) ([]DailyCount, error) {
	if _, err := s.ownedLink(ctx, ownerID, id); err != nil {
		return nil, err
	}

	from = dateOnly(from.UTC())
	to = dateOnly(to.UTC())
	if to.Before(from) || to.After(from.AddDate(0, 0, MaxStatsDays-1)) {
		return nil, ErrInvalidRange
	}

	// Stores take a half-open range, so the last requested day is included
	// by querying up to the following midnight.
	counts, err := s.statsRepo.GetDaily(ctx, id, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	return fillDays(counts, from, to), nil
}

// TimeRange is one of the fixed analytics windows.
type TimeRange string

const (
	Range7Days  TimeRange = "7d"
	Range30Days TimeRange = "30d"
	Range90Days TimeRange = "90d"
	Range1Year  TimeRange = "1y"
)

func ParseTimeRange(raw string) (TimeRange, error) {
	switch TimeRange(raw) {
	case "":
		return Range30Days, nil
	case Range7Days, Range30Days, Range90Days, Range1Year:
		return TimeRange(raw), nil
	}
	return "", ErrInvalidRange
}

func (r TimeRange) days() int {
	switch r {
	case Range7Days:
		return 7
	case Range90Days:
		return 90
	case Range1Year:
		return 365
	default:
		return 30
	}
}

// GetSummary aggregates a link's clicks over the trailing window ending today.
// UniqueVisitors relies on visitor ids, which are only stable when clients
// send a visitor hint.
func (s *Service) GetSummary(ctx context.Context, ownerID, id string, rng TimeRange) (*Summary, error) {
	link, err := s.GetLink(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	today := dateOnly(s.now().UTC())
	from := today.AddDate(0, 0, -(rng.days() - 1))
	until := today.AddDate(0, 0, 1)

	clicks, unique, err := s.statsRepo.CountVisitors(ctx, link.ID, from, until)
	if err != nil {
		return nil, fmt.Errorf("count visitors: %w", err)
	}
	daily, err := s.statsRepo.GetDaily(ctx, link.ID, from, until)
	if err != nil {
		return nil, fmt.Errorf("daily clicks: %w", err)
	}

	return &Summary{
		LinkID:         link.ID,
		Slug:           link.Slug,
		Range:          string(rng),
		ClickCount:     link.ClickCount,
		Clicks:         clicks,
		UniqueVisitors: unique,
		Daily:          fillDays(daily, from, today),
	}, nil
}

func (s *Service) ownedLink(ctx context.Context, ownerID, id string) (*Link, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}

	link, err := s.linkRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return link, nil
}

func (s *Service) hydrateClickCounts(ctx context.Context, links ...*Link) error {
	if !s.opts.DerivedClickCount || len(links) == 0 {
		return nil
	}

	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ID)
	}
	counts, err := s.statsRepo.CountClicks(ctx, ids)
	if err != nil {
		return fmt.Errorf("derive click counts: %w", err)
	}
	for _, l := range links {
		l.ClickCount = counts[l.ID]
	}
	return nil
}

func fillDays(counts []DailyCount, from, to time.Time) []DailyCount {
	byDate := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDate[c.Date] = c.Count
	}

	out := make([]DailyCount, 0, int(to.Sub(from).Hours()/24)+1)
	for day := dateOnly(from); !day.After(dateOnly(to)); day = day.AddDate(0, 0, 1) {
		ds := day.Format(time.DateOnly)
		out = append(out, DailyCount{
			Date:  ds,
			Count: byDate[ds],
		})
	}
	return out
}

func validateAndNormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", ErrInvalidURL
	}

	return u.String(), nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
