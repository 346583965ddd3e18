package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/linkhive/internal/infrastructure/db"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsRepository answers analytics reads straight from analytics_events.
type StatsRepository struct {
	pool *pgxpool.Pool
}

func NewStatsRepository(p *db.Postgres) (*StatsRepository, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &StatsRepository{pool: p.Pool}, nil
}

func (r *StatsRepository) GetDaily(ctx context.Context, linkID string, from, to time.Time) ([]links.DailyCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, count(*)
		FROM analytics_events
		WHERE link_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY day
		ORDER BY day`,
		linkID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]links.DailyCount, 0)
	for rows.Next() {
		var dc links.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (r *StatsRepository) CountVisitors(ctx context.Context, linkID string, from, to time.Time) (int64, int64, error) {
	var clicks, unique int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*), count(DISTINCT NULLIF(visitor_id, ''))
		FROM analytics_events
		WHERE link_id = $1 AND created_at >= $2 AND created_at < $3`,
		linkID, from.UTC(), to.UTC(),
	).Scan(&clicks, &unique)
	return clicks, unique, err
}

func (r *StatsRepository) CountClicks(ctx context.Context, linkIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(linkIDs))
	if len(linkIDs) == 0 {
		return out, nil
	}
	for _, id := range linkIDs {
		out[id] = 0
	}

	rows, err := r.pool.Query(ctx, `
		SELECT link_id, count(*)
		FROM analytics_events
		WHERE link_id = ANY($1)
		GROUP BY link_id`, linkIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			count int64
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		out[id] = count
	}
	return out, rows.Err()
}
