package links

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Hand-written fakes ---

type mockLinkRepo struct {
	insertFn      func(ctx context.Context, link *Link) error
	findBySlugFn  func(ctx context.Context, slug string) (*Link, error)
	findByIDFn    func(ctx context.Context, id string) (*Link, error)
	listByOwnerFn func(ctx context.Context, ownerID string) ([]*Link, error)
	updateFn      func(ctx context.Context, link *Link) error
	deleteFn      func(ctx context.Context, id string) (bool, error)
}

func (m *mockLinkRepo) Insert(ctx context.Context, link *Link) error {
	return m.insertFn(ctx, link)
}
func (m *mockLinkRepo) FindActiveBySlug(ctx context.Context, slug string) (*Link, error) {
	return m.findBySlugFn(ctx, slug)
}
func (m *mockLinkRepo) FindByID(ctx context.Context, id string) (*Link, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockLinkRepo) ListByOwner(ctx context.Context, ownerID string) ([]*Link, error) {
	return m.listByOwnerFn(ctx, ownerID)
}
func (m *mockLinkRepo) Update(ctx context.Context, link *Link) error {
	return m.updateFn(ctx, link)
}
func (m *mockLinkRepo) Delete(ctx context.Context, id string) (bool, error) {
	return m.deleteFn(ctx, id)
}

type mockStatsRepo struct {
	getDailyFn      func(ctx context.Context, linkID string, from, to time.Time) ([]DailyCount, error)
	countVisitorsFn func(ctx context.Context, linkID string, from, to time.Time) (int64, int64, error)
	countClicksFn   func(ctx context.Context, linkIDs []string) (map[string]int64, error)
}

func (m *mockStatsRepo) GetDaily(ctx context.Context, linkID string, from, to time.Time) ([]DailyCount, error) {
	return m.getDailyFn(ctx, linkID, from, to)
}
func (m *mockStatsRepo) CountVisitors(ctx context.Context, linkID string, from, to time.Time) (int64, int64, error) {
	return m.countVisitorsFn(ctx, linkID, from, to)
}
func (m *mockStatsRepo) CountClicks(ctx context.Context, linkIDs []string) (map[string]int64, error) {
	return m.countClicksFn(ctx, linkIDs)
}

type mockSlugger struct {
	slugs []string
	idx   int
}

func (m *mockSlugger) Generate(int) (string, error) {
	if m.idx >= len(m.slugs) {
		return "", errors.New("no more slugs")
	}
	s := m.slugs[m.idx]
	m.idx++
	return s, nil
}

// plainHasher keeps tests fast; bcrypt itself is covered in password_test.go.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) {
	if p == "" {
		return "", ErrInvalidPassword
	}
	return "hashed:" + p, nil
}
func (plainHasher) Verify(hash, p string) bool { return p != "" && hash == "hashed:"+p }

var fixedNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(lr *mockLinkRepo, sr *mockStatsRepo, sl *mockSlugger) *Service {
	svc := NewService(lr, sr, sl, plainHasher{}, ServiceOptions{SlugLength: 6})
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "link-1" }
	return svc
}

func ownedBy(owner string) *mockLinkRepo {
	return &mockLinkRepo{
		findByIDFn: func(_ context.Context, id string) (*Link, error) {
			if id != "link-1" {
				return nil, ErrNotFound
			}
			return &Link{ID: "link-1", Slug: "abc", OwnerID: owner, OriginalURL: "https://example.com", IsActive: true, TrackAnalytics: true, ClickCount: 4}, nil
		},
	}
}

func TestValidateAndNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"valid https", "https://example.com/path", "https://example.com/path", false},
		{"valid http", "http://example.com", "http://example.com", false},
		{"keeps fragment", "https://example.com/page#section", "https://example.com/page#section", false},
		{"empty string", "", "", true},
		{"bad scheme ftp", "ftp://example.com", "", true},
		{"javascript scheme", "javascript:alert(1)", "", true},
		{"no scheme", "example.com", "", true},
		{"missing host", "https://", "", true},
		{"whitespace trimmed", "  https://example.com  ", "https://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateAndNormalizeURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateLink_Defaults(t *testing.T) {
	var inserted *Link
	lr := &mockLinkRepo{
		insertFn: func(_ context.Context, link *Link) error {
			inserted = link
			return nil
		},
	}

	svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{slugs: []string{"abc123"}})

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OwnerID:     "user-1",
		OriginalURL: "https://example.com/page",
		Tags:        []string{" go ", "", "go", "links"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if inserted != link {
		t.Fatal("expected the returned link to be the inserted one")
	}
	if link.Slug != "abc123" || link.ID != "link-1" || link.OwnerID != "user-1" {
		t.Errorf("unexpected identity: %+v", link)
	}
	if !link.TrackAnalytics || !link.IsActive {
		t.Error("track_analytics and is_active must default to true")
	}
	if link.IsPasswordProtected || link.PasswordHash != "" {
		t.Error("link without password must not be protected")
	}
	if link.ClickCount != 0 {
		t.Errorf("new link click count = %d", link.ClickCount)
	}
	if len(link.Tags) != 2 || link.Tags[0] != "go" || link.Tags[1] != "links" {
		t.Errorf("tags = %v", link.Tags)
	}
	if !link.CreatedAt.Equal(fixedNow) {
		t.Errorf("createdAt = %v", link.CreatedAt)
	}
}

func TestCreateLink_PasswordIsHashed(t *testing.T) {
	lr := &mockLinkRepo{insertFn: func(context.Context, *Link) error { return nil }}
	svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{slugs: []string{"pw1234"}})

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OwnerID:     "user-1",
		OriginalURL: "https://example.com",
		Password:    "secret",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !link.IsPasswordProtected {
		t.Error("expected protected link")
	}
	if link.PasswordHash == "secret" || link.PasswordHash == "" {
		t.Errorf("password stored as %q", link.PasswordHash)
	}
}

func TestCreateLink_ExplicitFlagsWin(t *testing.T) {
	lr := &mockLinkRepo{insertFn: func(context.Context, *Link) error { return nil }}
	svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{slugs: []string{"flags1"}})
	off := false

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OriginalURL:    "https://example.com",
		TrackAnalytics: &off,
		IsActive:       &off,
	})
	if err != nil {
		t.Fatal(err)
	}
	if link.TrackAnalytics || link.IsActive {
		t.Errorf("explicit false flags ignored: %+v", link)
	}
}

func TestCreateLink_InvalidURL(t *testing.T) {
	svc := newTestService(&mockLinkRepo{}, &mockStatsRepo{}, &mockSlugger{})

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{OriginalURL: "not-a-url"})
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got: %v", err)
	}
}

func TestCreateLink_CustomSlug(t *testing.T) {
	t.Run("used as is", func(t *testing.T) {
		lr := &mockLinkRepo{insertFn: func(context.Context, *Link) error { return nil }}
		svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{})

		link, err := svc.CreateLink(context.Background(), CreateLinkInput{OriginalURL: "https://example.com", CustomSlug: "launch-day"})
		if err != nil {
			t.Fatal(err)
		}
		if link.Slug != "launch-day" {
			t.Errorf("slug = %q", link.Slug)
		}
	})

	t.Run("taken is not retried", func(t *testing.T) {
		attempts := 0
		lr := &mockLinkRepo{insertFn: func(context.Context, *Link) error {
			attempts++
			return ErrSlugTaken
		}}
		svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{slugs: []string{"x1", "x2"}})

		_, err := svc.CreateLink(context.Background(), CreateLinkInput{OriginalURL: "https://example.com", CustomSlug: "launch-day"})
		if !errors.Is(err, ErrSlugTaken) {
			t.Fatalf("expected ErrSlugTaken, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("custom slug insert attempted %d times", attempts)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		svc := newTestService(&mockLinkRepo{}, &mockStatsRepo{}, &mockSlugger{})

		_, err := svc.CreateLink(context.Background(), CreateLinkInput{OriginalURL: "https://example.com", CustomSlug: "no/slashes"})
		if !errors.Is(err, ErrInvalidSlug) {
			t.Fatalf("expected ErrInvalidSlug, got %v", err)
		}
	})
}

func TestCreateLink_SlugCollisionRetries(t *testing.T) {
	attempts := 0
	lr := &mockLinkRepo{
		insertFn: func(_ context.Context, _ *Link) error {
			attempts++
			if attempts <= 2 {
				return ErrSlugTaken
			}
			return nil
		},
	}
	sl := &mockSlugger{slugs: []string{"s1", "s2", "s3"}}

	svc := newTestService(lr, &mockStatsRepo{}, sl)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{OriginalURL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if link.Slug != "s3" {
		t.Errorf("got slug %q, want %q", link.Slug, "s3")
	}
	if attempts != 3 {
		t.Errorf("expected 3 insert attempts, got %d", attempts)
	}
}

func TestCreateLink_AllRetriesExhausted(t *testing.T) {
	lr := &mockLinkRepo{
		insertFn: func(_ context.Context, _ *Link) error { return ErrSlugTaken },
	}
	slugs := make([]string, 10)
	for i := range slugs {
		slugs[i] = "dup"
	}

	svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{slugs: slugs})

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{OriginalURL: "https://example.com"})
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken after exhausting retries, got: %v", err)
	}
}

func TestGetLink_OtherOwnerIsNotFound(t *testing.T) {
	svc := newTestService(ownedBy("alice"), &mockStatsRepo{}, &mockSlugger{})

	if _, err := svc.GetLink(context.Background(), "bob", "link-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetLink(context.Background(), "", "link-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for anonymous caller, got %v", err)
	}

	link, err := svc.GetLink(context.Background(), "alice", "link-1")
	if err != nil {
		t.Fatal(err)
	}
	if link.ClickCount != 4 {
		t.Errorf("stored click count = %d, want 4", link.ClickCount)
	}
}

func TestGetLink_DerivedClickCount(t *testing.T) {
	sr := &mockStatsRepo{
		countClicksFn: func(_ context.Context, ids []string) (map[string]int64, error) {
			if len(ids) != 1 || ids[0] != "link-1" {
				t.Errorf("unexpected ids %v", ids)
			}
			return map[string]int64{"link-1": 9}, nil
		},
	}
	svc := newTestService(ownedBy("alice"), sr, &mockSlugger{})
	svc.opts.DerivedClickCount = true

	link, err := svc.GetLink(context.Background(), "alice", "link-1")
	if err != nil {
		t.Fatal(err)
	}
	if link.ClickCount != 9 {
		t.Errorf("derived click count = %d, want 9", link.ClickCount)
	}
}

func TestUpdateLink(t *testing.T) {
	var saved *Link
	lr := ownedBy("alice")
	lr.updateFn = func(_ context.Context, link *Link) error {
		saved = link
		return nil
	}
	svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{})

	newSlug := "renamed"
	pw := "hunter2"
	off := false
	link, err := svc.UpdateLink(context.Background(), "alice", "link-1", UpdateLinkInput{
		Slug:           &newSlug,
		Password:       &pw,
		TrackAnalytics: &off,
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved == nil || saved.Slug != "renamed" {
		t.Fatalf("update not persisted: %+v", saved)
	}
	if !link.IsPasswordProtected || link.PasswordHash != "hashed:hunter2" {
		t.Errorf("password not applied: %+v", link)
	}
	if link.TrackAnalytics {
		t.Error("track analytics should be off")
	}
	if link.ClickCount != 4 {
		t.Errorf("update must not change click count, got %d", link.ClickCount)
	}
	if link.OriginalURL != "https://example.com" {
		t.Errorf("untouched field changed: %q", link.OriginalURL)
	}
}

func TestUpdateLink_EmptyPasswordRemovesProtection(t *testing.T) {
	lr := &mockLinkRepo{
		findByIDFn: func(context.Context, string) (*Link, error) {
			return &Link{ID: "link-1", OwnerID: "alice", IsPasswordProtected: true, PasswordHash: "hashed:x"}, nil
		},
		updateFn: func(context.Context, *Link) error { return nil },
	}
	svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{})

	empty := ""
	link, err := svc.UpdateLink(context.Background(), "alice", "link-1", UpdateLinkInput{Password: &empty})
	if err != nil {
		t.Fatal(err)
	}
	if link.IsPasswordProtected || link.PasswordHash != "" {
		t.Errorf("protection not removed: %+v", link)
	}
}

func TestUpdateLink_RenameConflict(t *testing.T) {
	lr := ownedBy("alice")
	lr.updateFn = func(context.Context, *Link) error { return ErrSlugTaken }
	svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{})

	taken := "taken"
	if _, err := svc.UpdateLink(context.Background(), "alice", "link-1", UpdateLinkInput{Slug: &taken}); !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestDeleteLink(t *testing.T) {
	t.Run("other owner", func(t *testing.T) {
		lr := ownedBy("alice")
		lr.deleteFn = func(context.Context, string) (bool, error) {
			t.Fatal("delete must not be called for another owner's link")
			return false, nil
		}
		svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{})

		if err := svc.DeleteLink(context.Background(), "bob", "link-1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("raced away", func(t *testing.T) {
		lr := ownedBy("alice")
		lr.deleteFn = func(context.Context, string) (bool, error) { return false, nil }
		svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{})

		if err := svc.DeleteLink(context.Background(), "alice", "link-1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestGetStats_InvalidRange(t *testing.T) {
	svc := newTestService(ownedBy("alice"), &mockStatsRepo{}, &mockSlugger{})

	from := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	_, err := svc.GetStats(context.Background(), "alice", "link-1", from, to)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got: %v", err)
	}
}

func TestGetStats_GapFilling(t *testing.T) {
	sr := &mockStatsRepo{
		getDailyFn: func(_ context.Context, linkID string, from, to time.Time) ([]DailyCount, error) {
			if linkID != "link-1" {
				t.Errorf("linkID = %q", linkID)
			}
			if want := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
				t.Errorf("upper bound = %v, want %v", to, want)
			}
			return []DailyCount{
				{Date: "2025-01-01", Count: 5},
				{Date: "2025-01-03", Count: 3},
			}, nil
		},
	}

	svc := newTestService(ownedBy("alice"), sr, &mockSlugger{})

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	counts, err := svc.GetStats(context.Background(), "alice", "link-1", from, to)
	if err != nil {
		t.Fatal(err)
	}

	want := []DailyCount{{"2025-01-01", 5}, {"2025-01-02", 0}, {"2025-01-03", 3}}
	if len(counts) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(counts))
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("day %d: got %+v, want %+v", i, counts[i], want[i])
		}
	}
}

func TestGetSummary(t *testing.T) {
	sr := &mockStatsRepo{
		countVisitorsFn: func(_ context.Context, _ string, from, to time.Time) (int64, int64, error) {
			if want := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
				t.Errorf("from = %v, want %v", from, want)
			}
			if want := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
				t.Errorf("to = %v, want %v", to, want)
			}
			return 6, 2, nil
		},
		getDailyFn: func(context.Context, string, time.Time, time.Time) ([]DailyCount, error) {
			return []DailyCount{{Date: "2025-01-15", Count: 6}}, nil
		},
	}
	svc := newTestService(ownedBy("alice"), sr, &mockSlugger{})

	sum, err := svc.GetSummary(context.Background(), "alice", "link-1", Range7Days)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Clicks != 6 || sum.UniqueVisitors != 2 || sum.ClickCount != 4 {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.Daily) != 7 || sum.Daily[6].Count != 6 {
		t.Errorf("daily = %+v", sum.Daily)
	}
}

func TestParseTimeRange(t *testing.T) {
	for _, raw := range []string{"7d", "30d", "90d", "1y"} {
		if _, err := ParseTimeRange(raw); err != nil {
			t.Errorf("ParseTimeRange(%q): %v", raw, err)
		}
	}
	if r, _ := ParseTimeRange(""); r != Range30Days {
		t.Errorf("default range = %q", r)
	}
	if _, err := ParseTimeRange("2w"); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestDateOnly(t *testing.T) {
	input := time.Date(2025, 6, 15, 14, 30, 45, 123, time.UTC)
	got := dateOnly(input)
	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("dateOnly(%v) = %v, want %v", input, got, want)
	}
}

func TestGetStats_SpanLimit(t *testing.T) {
	calls := 0
	sr := &mockStatsRepo{
		getDailyFn: func(context.Context, string, time.Time, time.Time) ([]DailyCount, error) {
			calls++
			return nil, nil
		},
	}
	svc := newTestService(ownedBy("alice"), sr, &mockSlugger{})

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	counts, err := svc.GetStats(context.Background(), "alice", "link-1", from, from.AddDate(0, 0, MaxStatsDays-1))
	if err != nil {
		t.Fatalf("a %d day range should be accepted: %v", MaxStatsDays, err)
	}
	if len(counts) != MaxStatsDays {
		t.Errorf("expected %d days, got %d", MaxStatsDays, len(counts))
	}

	tooLong := []struct {
		name     string
		from, to time.Time
	}{
		{"one day over", from, from.AddDate(0, 0, MaxStatsDays)},
		{"whole calendar", time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tooLong {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetStats(context.Background(), "alice", "link-1", tt.from, tt.to)
			if !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
		})
	}
	if calls != 1 {
		t.Errorf("store queried %d times, want 1", calls)
	}
}

func TestReservedSlugs(t *testing.T) {
	for _, slug := range []string{"metrics", "health", "api", "Health", "METRICS"} {
		t.Run("create "+slug, func(t *testing.T) {
			lr := &mockLinkRepo{insertFn: func(context.Context, *Link) error {
				t.Error("reserved slug reached the store")
				return nil
			}}
			svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{})

			_, err := svc.CreateLink(context.Background(), CreateLinkInput{OriginalURL: "https://example.com", CustomSlug: slug})
			if !errors.Is(err, ErrInvalidSlug) {
				t.Fatalf("expected ErrInvalidSlug, got %v", err)
			}
		})
	}

	t.Run("rename", func(t *testing.T) {
		lr := ownedBy("alice")
		lr.updateFn = func(context.Context, *Link) error {
			t.Error("reserved slug reached the store")
			return nil
		}
		svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{})

		slug := "metrics"
		_, err := svc.UpdateLink(context.Background(), "alice", "link-1", UpdateLinkInput{Slug: &slug})
		if !errors.Is(err, ErrInvalidSlug) {
			t.Fatalf("expected ErrInvalidSlug, got %v", err)
		}
	})

	t.Run("generated reserved slug is skipped", func(t *testing.T) {
		var inserted []string
		lr := &mockLinkRepo{insertFn: func(_ context.Context, l *Link) error {
			inserted = append(inserted, l.Slug)
			return nil
		}}
		svc := newTestService(lr, &mockStatsRepo{}, &mockSlugger{slugs: []string{"health", "k3Xa9Q"}})

		link, err := svc.CreateLink(context.Background(), CreateLinkInput{OriginalURL: "https://example.com"})
		if err != nil {
			t.Fatal(err)
		}
		if link.Slug != "k3Xa9Q" || len(inserted) != 1 {
			t.Errorf("slug = %q, inserts = %v", link.Slug, inserted)
		}
	})
}
