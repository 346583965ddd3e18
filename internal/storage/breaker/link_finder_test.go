package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IgorGrieder/linkhive/internal/processing/links"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFinder struct {
	calls int
	err   error
}

func (s *stubFinder) FindActiveBySlug(context.Context, string) (*links.Link, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &links.Link{Slug: "ok"}, nil
}

func TestBreakerOpensOnStoreFailures(t *testing.T) {
	stub := &stubFinder{err: errors.New("connection refused")}
	f := NewLinkFinder(stub, Settings{FailureThreshold: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	_, _ = f.FindActiveBySlug(ctx, "a")
	_, _ = f.FindActiveBySlug(ctx, "a")

	_, err := f.FindActiveBySlug(ctx, "a")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, stub.calls)
	assert.Equal(t, "open", f.State())
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	stub := &stubFinder{err: links.ErrNotFound}
	f := NewLinkFinder(stub, Settings{FailureThreshold: 1, OpenTimeout: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := f.FindActiveBySlug(context.Background(), "missing")
		assert.ErrorIs(t, err, links.ErrNotFound)
	}
	assert.Equal(t, 5, stub.calls)
	assert.Equal(t, "closed", f.State())
}

func TestBreakerRecovers(t *testing.T) {
	stub := &stubFinder{err: errors.New("timeout")}
	f := NewLinkFinder(stub, Settings{FailureThreshold: 1, OpenTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	_, _ = f.FindActiveBySlug(ctx, "a")
	_, err := f.FindActiveBySlug(ctx, "a")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)

	time.Sleep(80 * time.Millisecond)
	stub.err = nil

	link, err := f.FindActiveBySlug(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "ok", link.Slug)
	assert.Equal(t, "closed", f.State())
}

func TestBreakerIgnoresAbandonedRequests(t *testing.T) {
	stub := &stubFinder{err: context.Canceled}
	f := NewLinkFinder(stub, Settings{FailureThreshold: 1, OpenTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := f.FindActiveBySlug(ctx, "a")
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, 5, stub.calls)
	assert.Equal(t, "closed", f.State())

	stub.err = context.DeadlineExceeded
	_, err := f.FindActiveBySlug(context.Background(), "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "open", f.State(), "a store timeout on a live request still counts")
}
