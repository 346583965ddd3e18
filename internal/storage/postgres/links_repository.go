package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/linkhive/internal/infrastructure/db"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const linkColumns = `id, slug, original_url, owner_id, title, description, tags, expires_at,
	is_password_protected, password_hash, track_analytics, is_active, click_count, created_at, updated_at`

type LinksRepository struct {
	pool *pgxpool.Pool
}

func NewLinksRepository(p *db.Postgres) (*LinksRepository, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &LinksRepository{pool: p.Pool}, nil
}

func (r *LinksRepository) Insert(ctx context.Context, link *links.Link) error {
	if link == nil {
		return errors.New("link is nil")
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO short_links (`+linkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		link.ID, link.Slug, link.OriginalURL, link.OwnerID, link.Title, link.Description,
		tagsOrEmpty(link.Tags), toNullableTime(link.ExpiresAt), link.IsPasswordProtected, link.PasswordHash,
		link.TrackAnalytics, link.IsActive, link.ClickCount, link.CreatedAt.UTC(), link.UpdatedAt.UTC(),
	)
	return mapWriteError(err)
}

func (r *LinksRepository) FindActiveBySlug(ctx context.Context, slug string) (*links.Link, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM short_links WHERE slug = $1 AND is_active`, slug)
	return scanOne(row)
}

func (r *LinksRepository) FindByID(ctx context.Context, id string) (*links.Link, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM short_links WHERE id = $1`, id)
	return scanOne(row)
}

func (r *LinksRepository) ListByOwner(ctx context.Context, ownerID string) ([]*links.Link, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+linkColumns+` FROM short_links
		WHERE owner_id = $1
		ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*links.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

func (r *LinksRepository) Update(ctx context.Context, link *links.Link) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE short_links SET
			slug = $2,
			original_url = $3,
			title = $4,
			description = $5,
			tags = $6,
			expires_at = $7,
			is_password_protected = $8,
			password_hash = $9,
			track_analytics = $10,
			is_active = $11,
			updated_at = $12
		WHERE id = $1`,
		link.ID, link.Slug, link.OriginalURL, link.Title, link.Description, tagsOrEmpty(link.Tags),
		toNullableTime(link.ExpiresAt), link.IsPasswordProtected, link.PasswordHash,
		link.TrackAnalytics, link.IsActive, link.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return links.ErrNotFound
	}
	return nil
}

// Delete removes the link row only; analytics_events keeps its history.
func (r *LinksRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM short_links WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanOne(row pgx.Row) (*links.Link, error) {
	link, err := scanLink(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, links.ErrNotFound
	}
	return link, err
}

func scanLink(row pgx.Row) (*links.Link, error) {
	var (
		link      links.Link
		expiresAt *time.Time
	)
	err := row.Scan(
		&link.ID, &link.Slug, &link.OriginalURL, &link.OwnerID, &link.Title, &link.Description,
		&link.Tags, &expiresAt, &link.IsPasswordProtected, &link.PasswordHash,
		&link.TrackAnalytics, &link.IsActive, &link.ClickCount, &link.CreatedAt, &link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if expiresAt != nil {
		t := expiresAt.UTC()
		link.ExpiresAt = &t
	}
	link.CreatedAt = link.CreatedAt.UTC()
	link.UpdatedAt = link.UpdatedAt.UTC()
	return &link, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return links.ErrSlugTaken
	}
	return err
}

func toNullableTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := v.UTC()
	return &t
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
