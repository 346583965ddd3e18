package postgres

import (
	"context"
	"errors"

	"github.com/IgorGrieder/linkhive/internal/infrastructure/db"
	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClickRecorder writes analytics events. In stored-count mode a short link
// click also increments short_links.click_count inside the same transaction.
type ClickRecorder struct {
	pool        *pgxpool.Pool
	deriveCount bool
}

func NewClickRecorder(p *db.Postgres, deriveCount bool) (*ClickRecorder, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &ClickRecorder{pool: p.Pool, deriveCount: deriveCount}, nil
}

func (r *ClickRecorder) Record(ctx context.Context, ev analytics.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	linkID, profileID, qrCodeID := ev.Columns()
	tag, err := tx.Exec(ctx, `
		INSERT INTO analytics_events (
			id, event_type, link_id, profile_id, qr_code_id, owner_id, visitor_id,
			user_agent, referrer, ip_address, device_type, browser, os, link_title, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING`,
		ev.ID, string(ev.Type()), nullIfEmpty(linkID), nullIfEmpty(profileID), nullIfEmpty(qrCodeID),
		ev.OwnerID, ev.VisitorID, ev.UserAgent, ev.Referrer, ev.IPAddress,
		ev.Device.Type, ev.Device.Browser, ev.Device.OS, ev.LinkTitle, ev.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		// Already applied by an earlier delivery.
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return err
		}
		tx = nil
		return nil
	}

	if linkID != "" && !r.deriveCount {
		if _, err := tx.Exec(ctx, `UPDATE short_links SET click_count = click_count + 1 WHERE id = $1`, linkID); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	tx = nil
	return nil
}

func nullIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
