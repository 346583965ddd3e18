// Package breaker guards the resolution lookup with a circuit breaker so a
// failing store is reported quickly instead of stacking up timeouts.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/linkhive/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type Settings struct {
	Name             string
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenRequests int
}

// LinkFinder wraps another finder. ErrNotFound is a successful answer and
// never counts towards tripping.
type LinkFinder struct {
	next links.LinkFinder
	cb   *gobreaker.CircuitBreaker[*links.Link]
}

func NewLinkFinder(next links.LinkFinder, s Settings) *LinkFinder {
	if s.Name == "" {
		s.Name = "link-lookup"
	}
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.HalfOpenRequests <= 0 {
		s.HalfOpenRequests = 1
	}
	threshold := uint32(s.FailureThreshold)

	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: uint32(s.HalfOpenRequests),
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var gone callerGone
			return err == nil || errors.Is(err, links.ErrNotFound) || errors.As(err, &gone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &LinkFinder{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*links.Link](settings),
	}
}

// callerGone marks a lookup that failed because the request's own context
// ended. It says nothing about store health.
type callerGone struct{ err error }

func (c callerGone) Error() string { return c.err.Error() }
func (c callerGone) Unwrap() error { return c.err }

// FindActiveBySlug returns gobreaker.ErrOpenState or ErrTooManyRequests
// without calling the store while the breaker is open. Failures after the
// caller's context is done do not count towards tripping.
func (f *LinkFinder) FindActiveBySlug(ctx context.Context, slug string) (*links.Link, error) {
	link, err := f.cb.Execute(func() (*links.Link, error) {
		link, err := f.next.FindActiveBySlug(ctx, slug)
		if err != nil && ctx.Err() != nil {
			return nil, callerGone{err: err}
		}
		return link, err
	})

	var gone callerGone
	if errors.As(err, &gone) {
		return nil, gone.err
	}
	return link, err
}

func (f *LinkFinder) State() string {
	return f.cb.State().String()
}
