package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IgorGrieder/linkhive/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Decision string

const (
	DecisionAllow            Decision = "allow"
	DecisionNotFound         Decision = "not_found"
	DecisionExpired          Decision = "expired"
	DecisionPasswordRequired Decision = "password_required"
)

// Outcome is the resolver's decision. Destination is set only for
// DecisionAllow; Link is set whenever an active link matched the slug.
type Outcome struct {
	Decision    Decision
	Destination string
	Link        *Link
}

type ResolverOptions struct {
	// AsyncAccounting records clicks on a tracked goroutine instead of
	// inline. Drain waits for those goroutines.
	AsyncAccounting   bool
	AccountingTimeout time.Duration
	Devices           DeviceDetector
}

type Resolver struct {
	links     LinkFinder
	recorder  analytics.Recorder
	passwords PasswordHasher
	opts      ResolverOptions

	now     func() time.Time
	eventID func() string
	tracer  trace.Tracer

	inflight sync.WaitGroup
}

func NewResolver(links LinkFinder, recorder analytics.Recorder, passwords PasswordHasher, opts ResolverOptions) *Resolver {
	if opts.AccountingTimeout <= 0 {
		opts.AccountingTimeout = 2 * time.Second
	}

	return &Resolver{
		links:     links,
		recorder:  recorder,
		passwords: passwords,
		opts:      opts,
		now:       time.Now,
		eventID:   uuid.NewString,
		tracer:    otel.Tracer("links.resolver"),
	}
}

// Resolve decides what a request for slug gets. The only error it returns
// wraps ErrStoreUnavailable; every other result is an Outcome.
func (r *Resolver) Resolve(ctx context.Context, slug, suppliedPassword string, rc RequestContext) (Outcome, error) {
	ctx, span := r.tracer.Start(ctx, "links.resolve", trace.WithAttributes(attribute.String("link.slug", slug)))
	defer span.End()

	if strings.TrimSpace(slug) == "" {
		return r.decided(span, Outcome{Decision: DecisionNotFound}), nil
	}

	link, err := r.links.FindActiveBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return r.decided(span, Outcome{Decision: DecisionNotFound}), nil
		}
		resolutionsTotal.WithLabelValues(outcomeStoreUnavailable).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "link lookup failed")
		logger.Error("link lookup failed",
			zap.Error(err),
			zap.String("slug", slug),
			zap.String("step", "lookup"),
		)
		return Outcome{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	now := r.now().UTC()
	if link.Expired(now) {
		return r.decided(span, Outcome{Decision: DecisionExpired, Link: link}), nil
	}

	if link.IsPasswordProtected && !r.passwords.Verify(link.PasswordHash, suppliedPassword) {
		logger.Debug("password gate denied resolution",
			zap.String("slug", slug),
			zap.Bool("password_supplied", suppliedPassword != ""),
		)
		return r.decided(span, Outcome{Decision: DecisionPasswordRequired, Link: link}), nil
	}

	if link.TrackAnalytics {
		r.account(ctx, link, rc, now)
	}

	return r.decided(span, Outcome{Decision: DecisionAllow, Destination: link.OriginalURL, Link: link}), nil
}

func (r *Resolver) decided(span trace.Span, out Outcome) Outcome {
	span.SetAttributes(attribute.String("link.decision", string(out.Decision)))
	resolutionsTotal.WithLabelValues(string(out.Decision)).Inc()
	return out
}

func (r *Resolver) clickEvent(link *Link, rc RequestContext, at time.Time) analytics.Event {
	ev := analytics.Event{
		ID:        r.eventID(),
		Subject:   analytics.ShortLinkClick{LinkID: link.ID},
		OwnerID:   link.OwnerID,
		VisitorID: DeriveVisitorID(rc.VisitorHint),
		LinkTitle: link.Title,
		UserAgent: rc.UserAgent,
		Referrer:  rc.Referrer,
		IPAddress: rc.ClientIP,
		CreatedAt: at,
	}
	if r.opts.Devices != nil {
		ev.Device = r.opts.Devices.Detect(rc.UserAgent)
	}
	return ev
}

// account never reports failure to the caller: the redirect wins over the
// analytics write. The write is detached from the request's cancellation and
// bounded by AccountingTimeout instead.
func (r *Resolver) account(ctx context.Context, link *Link, rc RequestContext, at time.Time) {
	ev := r.clickEvent(link, rc, at)
	ctx = context.WithoutCancel(ctx)

	if !r.opts.AsyncAccounting {
		r.record(ctx, link.Slug, ev)
		return
	}

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		r.record(ctx, link.Slug, ev)
	}()
}

func (r *Resolver) record(ctx context.Context, slug string, ev analytics.Event) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.AccountingTimeout)
	defer cancel()

	if err := r.recorder.Record(ctx, ev); err != nil {
		clickAccountingFailuresTotal.Inc()
		trace.SpanFromContext(ctx).RecordError(err)
		logger.Warn("failed to record click",
			zap.Error(err),
			zap.String("slug", slug),
			zap.String("event_id", ev.ID),
			zap.String("step", "accounting"),
		)
	}
}

// Drain blocks until in-flight async accounting finishes or ctx is done.
func (r *Resolver) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
