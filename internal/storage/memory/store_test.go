package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"github.com/IgorGrieder/linkhive/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var day = time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)

func seedLink(t *testing.T, store *memory.Store, id, slug string) *links.Link {
	t.Helper()
	link := &links.Link{
		ID:             id,
		Slug:           slug,
		OriginalURL:    "https://example.com/" + slug,
		OwnerID:        "owner-1",
		TrackAnalytics: true,
		IsActive:       true,
		CreatedAt:      day,
		UpdatedAt:      day,
	}
	require.NoError(t, store.Insert(context.Background(), link))
	return link
}

func click(id, linkID, visitor string, at time.Time) analytics.Event {
	return analytics.Event{
		ID:        id,
		Subject:   analytics.ShortLinkClick{LinkID: linkID},
		VisitorID: visitor,
		CreatedAt: at,
	}
}

func TestConcurrentResolutionsCountEveryClick(t *testing.T) {
	store := memory.NewStore(false)
	seedLink(t, store, "link-1", "promo")

	resolver := links.NewResolver(store, store, links.NewBcryptHasher(bcrypt.MinCost), links.ResolverOptions{})

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := resolver.Resolve(context.Background(), "promo", "", links.RequestContext{
				VisitorHint: fmt.Sprintf("visitor-%d", i%10),
			})
			assert.NoError(t, err)
			assert.Equal(t, links.DecisionAllow, out.Decision)
		}(i)
	}
	wg.Wait()

	link, err := store.FindByID(context.Background(), "link-1")
	require.NoError(t, err)
	assert.EqualValues(t, n, link.ClickCount)
	assert.Len(t, store.Events(), n)

	counts, err := store.CountClicks(context.Background(), []string{"link-1"})
	require.NoError(t, err)
	assert.EqualValues(t, n, counts["link-1"])
}

func TestAsyncResolutionsAreCountedAfterDrain(t *testing.T) {
	store := memory.NewStore(false)
	seedLink(t, store, "link-1", "promo")

	resolver := links.NewResolver(store, store, links.NewBcryptHasher(bcrypt.MinCost), links.ResolverOptions{AsyncAccounting: true})
	for i := 0; i < 25; i++ {
		_, err := resolver.Resolve(context.Background(), "promo", "", links.RequestContext{})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, resolver.Drain(ctx))

	link, err := store.FindByID(context.Background(), "link-1")
	require.NoError(t, err)
	assert.EqualValues(t, 25, link.ClickCount)
}

func TestRecordIsIdempotentPerEventID(t *testing.T) {
	store := memory.NewStore(false)
	seedLink(t, store, "link-1", "promo")
	ctx := context.Background()

	ev := click("evt-1", "link-1", "v1", day)
	require.NoError(t, store.Record(ctx, ev))
	require.NoError(t, store.Record(ctx, ev))

	link, err := store.FindByID(ctx, "link-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, link.ClickCount)
	assert.Len(t, store.Events(), 1)
}

func TestRecordNonClickLeavesCounter(t *testing.T) {
	store := memory.NewStore(false)
	seedLink(t, store, "link-1", "promo")
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, analytics.Event{
		ID:        "evt-qr",
		Subject:   analytics.QRScan{QRCodeID: "link-1"},
		CreatedAt: day,
	}))

	link, err := store.FindByID(ctx, "link-1")
	require.NoError(t, err)
	assert.Zero(t, link.ClickCount)

	err = store.Record(ctx, analytics.Event{ID: "bad", CreatedAt: day})
	assert.ErrorIs(t, err, analytics.ErrInvalidEvent)
}

func TestDerivedModeKeepsStoredCounterAtZero(t *testing.T) {
	store := memory.NewStore(true)
	seedLink(t, store, "link-1", "promo")
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, click("e1", "link-1", "v1", day)))
	require.NoError(t, store.Record(ctx, click("e2", "link-1", "v2", day)))

	link, err := store.FindByID(ctx, "link-1")
	require.NoError(t, err)
	assert.Zero(t, link.ClickCount)

	counts, err := store.CountClicks(ctx, []string{"link-1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"link-1": 2, "missing": 0}, counts)
}

func TestFindActiveBySlug(t *testing.T) {
	store := memory.NewStore(false)
	ctx := context.Background()
	link := seedLink(t, store, "link-1", "promo")

	got, err := store.FindActiveBySlug(ctx, "promo")
	require.NoError(t, err)
	assert.Equal(t, link.OriginalURL, got.OriginalURL)

	_, err = store.FindActiveBySlug(ctx, "PROMO")
	assert.ErrorIs(t, err, links.ErrNotFound)

	link.IsActive = false
	require.NoError(t, store.Update(ctx, link))
	_, err = store.FindActiveBySlug(ctx, "promo")
	assert.ErrorIs(t, err, links.ErrNotFound)
}

func TestSlugUniqueness(t *testing.T) {
	store := memory.NewStore(false)
	ctx := context.Background()
	seedLink(t, store, "link-1", "promo")
	other := seedLink(t, store, "link-2", "other")

	err := store.Insert(ctx, &links.Link{ID: "link-3", Slug: "promo"})
	assert.ErrorIs(t, err, links.ErrSlugTaken)

	other.Slug = "promo"
	assert.ErrorIs(t, store.Update(ctx, other), links.ErrSlugTaken)

	other.Slug = "renamed"
	require.NoError(t, store.Update(ctx, other))
	_, err = store.FindActiveBySlug(ctx, "other")
	assert.ErrorIs(t, err, links.ErrNotFound)
	_, err = store.FindActiveBySlug(ctx, "renamed")
	assert.NoError(t, err)
}

func TestUpdateKeepsClickCount(t *testing.T) {
	store := memory.NewStore(false)
	ctx := context.Background()
	link := seedLink(t, store, "link-1", "promo")
	require.NoError(t, store.Record(ctx, click("e1", "link-1", "v1", day)))

	link.Title = "Renamed"
	link.ClickCount = 0
	require.NoError(t, store.Update(ctx, link))

	got, err := store.FindByID(ctx, "link-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.EqualValues(t, 1, got.ClickCount)
}

func TestStatsHalfOpenRange(t *testing.T) {
	store := memory.NewStore(false)
	ctx := context.Background()
	seedLink(t, store, "link-1", "promo")

	next := day.AddDate(0, 0, 1)
	for i, ev := range []analytics.Event{
		click("e1", "link-1", "v1", day),
		click("e2", "link-1", "v1", day.Add(time.Hour)),
		click("e3", "link-1", "v2", next),
		click("e4", "link-1", "v3", next.AddDate(0, 0, 1)),
	} {
		require.NoError(t, store.Record(ctx, ev), "event %d", i)
	}

	from := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 2)

	daily, err := store.GetDaily(ctx, "link-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, []links.DailyCount{
		{Date: "2025-02-10", Count: 2},
		{Date: "2025-02-11", Count: 1},
	}, daily)

	clicks, unique, err := store.CountVisitors(ctx, "link-1", from, to)
	require.NoError(t, err)
	assert.EqualValues(t, 3, clicks)
	assert.EqualValues(t, 2, unique)
}

func TestDeleteKeepsEvents(t *testing.T) {
	store := memory.NewStore(false)
	ctx := context.Background()
	seedLink(t, store, "link-1", "promo")
	require.NoError(t, store.Record(ctx, click("e1", "link-1", "v1", day)))

	deleted, err := store.Delete(ctx, "link-1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Len(t, store.Events(), 1)

	_, err = store.FindByID(ctx, "link-1")
	assert.ErrorIs(t, err, links.ErrNotFound)

	deleted, err = store.Delete(ctx, "link-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListByOwnerNewestFirst(t *testing.T) {
	store := memory.NewStore(false)
	ctx := context.Background()
	older := seedLink(t, store, "link-1", "first")
	newer := &links.Link{ID: "link-2", Slug: "second", OwnerID: "owner-1", CreatedAt: older.CreatedAt.Add(time.Minute)}
	require.NoError(t, store.Insert(ctx, newer))
	require.NoError(t, store.Insert(ctx, &links.Link{ID: "link-3", Slug: "third", OwnerID: "someone-else", CreatedAt: day}))

	out, err := store.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "link-2", out[0].ID)
	assert.Equal(t, "link-1", out[1].ID)
}
