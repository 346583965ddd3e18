package postgres

import (
	"context"
	"fmt"

	"github.com/IgorGrieder/linkhive/internal/infrastructure/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS short_links (
	id                    TEXT PRIMARY KEY,
	slug                  TEXT NOT NULL UNIQUE,
	original_url          TEXT NOT NULL,
	owner_id              TEXT NOT NULL DEFAULT '',
	title                 TEXT NOT NULL DEFAULT '',
	description           TEXT NOT NULL DEFAULT '',
	tags                  TEXT[] NOT NULL DEFAULT '{}',
	expires_at            TIMESTAMPTZ NULL,
	is_password_protected BOOLEAN NOT NULL DEFAULT FALSE,
	password_hash         TEXT NOT NULL DEFAULT '',
	track_analytics       BOOLEAN NOT NULL DEFAULT TRUE,
	is_active             BOOLEAN NOT NULL DEFAULT TRUE,
	click_count           BIGINT NOT NULL DEFAULT 0,
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS short_links_owner_created_idx
	ON short_links (owner_id, created_at DESC);

CREATE TABLE IF NOT EXISTS analytics_events (
	id          TEXT PRIMARY KEY,
	event_type  TEXT NOT NULL,
	link_id     TEXT NULL,
	profile_id  TEXT NULL,
	qr_code_id  TEXT NULL,
	owner_id    TEXT NOT NULL DEFAULT '',
	visitor_id  TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	referrer    TEXT NOT NULL DEFAULT '',
	ip_address  TEXT NOT NULL DEFAULT '',
	device_type TEXT NOT NULL DEFAULT '',
	browser     TEXT NOT NULL DEFAULT '',
	os          TEXT NOT NULL DEFAULT '',
	link_title  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	CHECK (
		(event_type = 'short_link_click' AND link_id IS NOT NULL AND profile_id IS NULL AND qr_code_id IS NULL) OR
		(event_type = 'profile_view' AND profile_id IS NOT NULL AND link_id IS NULL AND qr_code_id IS NULL) OR
		(event_type = 'qr_scan' AND qr_code_id IS NOT NULL AND link_id IS NULL AND profile_id IS NULL)
	)
);

CREATE INDEX IF NOT EXISTS analytics_events_link_created_idx
	ON analytics_events (link_id, created_at)
	WHERE link_id IS NOT NULL;
`

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, p *db.Postgres) error {
	if _, err := p.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure postgres schema: %w", err)
	}
	return nil
}
