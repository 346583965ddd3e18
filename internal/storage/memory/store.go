// Package memory is a process-local store implementing the link and
// analytics ports. One mutex guards all state, so an event insert and its
// counter bump are always observed together.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
)

type Store struct {
	mu sync.RWMutex

	// deriveCount leaves ClickCount alone; readers count events instead.
	deriveCount bool

	byID   map[string]*links.Link
	bySlug map[string]string
	events []analytics.Event
	seen   map[string]struct{}
}

func NewStore(deriveCount bool) *Store {
	return &Store{
		deriveCount: deriveCount,
		byID:        make(map[string]*links.Link),
		bySlug:      make(map[string]string),
		seen:        make(map[string]struct{}),
	}
}

func (s *Store) Insert(_ context.Context, link *links.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.bySlug[link.Slug]; taken {
		return links.ErrSlugTaken
	}
	s.byID[link.ID] = cloneLink(link)
	s.bySlug[link.Slug] = link.ID
	return nil
}

func (s *Store) FindActiveBySlug(_ context.Context, slug string) (*links.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySlug[slug]
	if !ok {
		return nil, links.ErrNotFound
	}
	link := s.byID[id]
	if !link.IsActive {
		return nil, links.ErrNotFound
	}
	return cloneLink(link), nil
}

func (s *Store) FindByID(_ context.Context, id string) (*links.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.byID[id]
	if !ok {
		return nil, links.ErrNotFound
	}
	return cloneLink(link), nil
}

// ListByOwner returns the owner's links, newest first.
func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]*links.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*links.Link, 0)
	for _, link := range s.byID {
		if link.OwnerID == ownerID {
			out = append(out, cloneLink(link))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Update(_ context.Context, link *links.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[link.ID]
	if !ok {
		return links.ErrNotFound
	}
	if link.Slug != current.Slug {
		if _, taken := s.bySlug[link.Slug]; taken {
			return links.ErrSlugTaken
		}
		delete(s.bySlug, current.Slug)
		s.bySlug[link.Slug] = link.ID
	}

	next := cloneLink(link)
	next.ClickCount = current.ClickCount
	s.byID[link.ID] = next
	return nil
}

// Delete removes the link. Its events stay in the log.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	delete(s.byID, id)
	delete(s.bySlug, link.Slug)
	return true, nil
}

// Record appends the event and, for short link clicks in stored mode, bumps
// the link counter under the same lock. A repeated event id is a no-op.
func (s *Store) Record(_ context.Context, ev analytics.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[ev.ID]; dup {
		return nil
	}
	s.seen[ev.ID] = struct{}{}
	s.events = append(s.events, ev)

	if click, ok := ev.Subject.(analytics.ShortLinkClick); ok && !s.deriveCount {
		if link, exists := s.byID[click.LinkID]; exists {
			link.ClickCount++
		}
	}
	return nil
}

func (s *Store) GetDaily(_ context.Context, linkID string, from, to time.Time) ([]links.DailyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDate := make(map[string]int64)
	for _, ev := range s.clicksFor(linkID) {
		if inRange(ev.CreatedAt, from, to) {
			byDate[ev.CreatedAt.UTC().Format(time.DateOnly)]++
		}
	}

	out := make([]links.DailyCount, 0, len(byDate))
	for date, count := range byDate {
		out = append(out, links.DailyCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *Store) CountVisitors(_ context.Context, linkID string, from, to time.Time) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var clicks int64
	visitors := make(map[string]struct{})
	for _, ev := range s.clicksFor(linkID) {
		if !inRange(ev.CreatedAt, from, to) {
			continue
		}
		clicks++
		if ev.VisitorID != "" {
			visitors[ev.VisitorID] = struct{}{}
		}
	}
	return clicks, int64(len(visitors)), nil
}

func (s *Store) CountClicks(_ context.Context, linkIDs []string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(linkIDs))
	for _, id := range linkIDs {
		out[id] = int64(len(s.clicksFor(id)))
	}
	return out, nil
}

// Events returns a copy of every recorded event in insertion order.
func (s *Store) Events() []analytics.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]analytics.Event(nil), s.events...)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) clicksFor(linkID string) []analytics.Event {
	var out []analytics.Event
	for _, ev := range s.events {
		if click, ok := ev.Subject.(analytics.ShortLinkClick); ok && click.LinkID == linkID {
			out = append(out, ev)
		}
	}
	return out
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func cloneLink(l *links.Link) *links.Link {
	out := *l
	if l.Tags != nil {
		out.Tags = append([]string(nil), l.Tags...)
	}
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}
