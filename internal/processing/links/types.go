package links

import "time"

type Link struct {
	ID                  string
	Slug                string
	OriginalURL         string
	OwnerID             string
	Title               string
	Description         string
	Tags                []string
	ExpiresAt           *time.Time
	IsPasswordProtected bool
	// PasswordHash is a bcrypt hash; the plain password is never stored.
	PasswordHash   string
	TrackAnalytics bool
	IsActive       bool
	ClickCount     int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the link's expiry instant lies strictly before at.
func (l *Link) Expired(at time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(at)
}

// RequestContext is what the edge knows about the caller. Every field is
// untrusted and optional.
type RequestContext struct {
	UserAgent   string
	Referrer    string
	ClientIP    string
	VisitorHint string
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type CreateLinkInput struct {
	OwnerID        string
	OriginalURL    string
	CustomSlug     string
	Title          string
	Description    string
	Tags           []string
	ExpiresAt      *time.Time
	Password       string
	TrackAnalytics *bool
	IsActive       *bool
}

// UpdateLinkInput is a partial update: nil fields are left untouched.
// An empty Password removes protection.
type UpdateLinkInput struct {
	OriginalURL    *string
	Slug           *string
	Title          *string
	Description    *string
	Tags           []string
	ExpiresAt      *time.Time
	ClearExpiry    bool
	Password       *string
	TrackAnalytics *bool
	IsActive       *bool
}

type Summary struct {
	LinkID         string       `json:"linkId"`
	Slug           string       `json:"slug"`
	Range          string       `json:"range"`
	ClickCount     int64        `json:"clickCount"`
	Clicks         int64        `json:"clicks"`
	UniqueVisitors int64        `json:"uniqueVisitors"`
	Daily          []DailyCount `json:"daily"`
}
