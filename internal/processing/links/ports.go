package links

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
)

var (
	ErrNotFound         = errors.New("link not found")
	ErrInvalidURL       = errors.New("invalid url")
	ErrInvalidSlug      = errors.New("invalid slug")
	ErrSlugTaken        = errors.New("slug taken")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrStoreUnavailable = errors.New("link store unavailable")
)

// LinkFinder is the only read the resolution path needs.
type LinkFinder interface {
	// FindActiveBySlug returns ErrNotFound when no link with isActive=true
	// has this exact slug.
	FindActiveBySlug(ctx context.Context, slug string) (*Link, error)
}

type LinkRepository interface {
	LinkFinder
	Insert(ctx context.Context, link *Link) error
	FindByID(ctx context.Context, id string) (*Link, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Link, error)
	// Update writes every owner-editable field. It never touches ClickCount.
	Update(ctx context.Context, link *Link) error
	Delete(ctx context.Context, id string) (bool, error)
}

type StatsRepository interface {
	GetDaily(ctx context.Context, linkID string, from, to time.Time) ([]DailyCount, error)
	// CountVisitors returns click events and distinct visitor ids in [from, to).
	CountVisitors(ctx context.Context, linkID string, from, to time.Time) (clicks int64, unique int64, err error)
	// CountClicks returns the number of click events per link id.
	CountClicks(ctx context.Context, linkIDs []string) (map[string]int64, error)
}

type Slugger interface {
	Generate(length int) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// DeviceDetector classifies a user agent for click events.
type DeviceDetector interface {
	Detect(userAgent string) analytics.Device
}
