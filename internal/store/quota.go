package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/examgen/internal/ratelimit"
)

// The increment-or-reset is a single statement so concurrent requests for
// one key never lose a hit. All SET expressions read the pre-update row.
const (
	upsertQuotaSQLite = `INSERT INTO quota_entries (bucket_key, hits, window_start, expires_at)
VALUES (?, 1, ?, ?)
ON CONFLICT (bucket_key) DO UPDATE SET
	hits = CASE WHEN quota_entries.expires_at <= excluded.window_start THEN 1 ELSE quota_entries.hits + 1 END,
	window_start = CASE WHEN quota_entries.expires_at <= excluded.window_start THEN excluded.window_start ELSE quota_entries.window_start END,
	expires_at = CASE WHEN quota_entries.expires_at <= excluded.window_start THEN excluded.expires_at ELSE quota_entries.expires_at END
RETURNING hits, window_start, expires_at`

	upsertQuotaPostgres = `INSERT INTO quota_entries (bucket_key, hits, window_start, expires_at)
VALUES ($1, 1, $2, $3)
ON CONFLICT (bucket_key) DO UPDATE SET
	hits = CASE WHEN quota_entries.expires_at <= excluded.window_start THEN 1 ELSE quota_entries.hits + 1 END,
	window_start = CASE WHEN quota_entries.expires_at <= excluded.window_start THEN excluded.window_start ELSE quota_entries.window_start END,
	expires_at = CASE WHEN quota_entries.expires_at <= excluded.window_start THEN excluded.expires_at ELSE quota_entries.expires_at END
RETURNING hits, window_start, expires_at`
)

// QuotaStore is a ratelimit.QuotaStore over the quota_entries table.
type QuotaStore struct {
	s      *Store
	upsert string
	now    func() time.Time
}

var _ ratelimit.QuotaStore = (*QuotaStore)(nil)

// QuotaStore returns the SQL-backed quota store.
func (s *Store) QuotaStore() *QuotaStore {
	upsert := upsertQuotaSQLite
	if s.dialect == dialect.Postgres {
		upsert = upsertQuotaPostgres
	}
	return &QuotaStore{s: s, upsert: upsert, now: time.Now}
}

func (q *QuotaStore) Get(ctx context.Context, key string) (*ratelimit.QuotaEntry, error) {
	query, args := q.s.builder().
		Select("hits", "window_start", "expires_at").
		From(entsql.Table(QuotaEntriesTable.Name)).
		Where(entsql.And(
			entsql.EQ("bucket_key", key),
			entsql.GT("expires_at", q.now().UnixMilli()),
		)).
		Query()

	var hits, start, expires int64
	err := q.s.db.QueryRowContext(ctx, query, args...).Scan(&hits, &start, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quota entry: %w", err)
	}
	return quotaEntry(key, hits, start, expires), nil
}

func (q *QuotaStore) UpsertIncrement(ctx context.Context, key string, now time.Time, window time.Duration) (*ratelimit.QuotaEntry, error) {
	start := now.UnixMilli()
	var hits, windowStart, expires int64
	err := q.s.db.QueryRowContext(ctx, q.upsert, key, start, start+window.Milliseconds()).
		Scan(&hits, &windowStart, &expires)
	if err != nil {
		return nil, fmt.Errorf("upsert quota entry: %w", err)
	}
	return quotaEntry(key, hits, windowStart, expires), nil
}

func (q *QuotaStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	query, args := q.s.builder().Delete(QuotaEntriesTable.Name).
		Where(entsql.LTE("expires_at", now.UnixMilli())).
		Query()
	res, err := q.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep quota entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep quota entries: %w", err)
	}
	return n, nil
}

// List returns up to limit live entries, busiest first.
func (q *QuotaStore) List(ctx context.Context, limit int) ([]ratelimit.QuotaEntry, error) {
	sel := q.s.builder().
		Select("bucket_key", "hits", "window_start", "expires_at").
		From(entsql.Table(QuotaEntriesTable.Name)).
		Where(entsql.GT("expires_at", q.now().UnixMilli())).
		OrderBy(entsql.Desc("hits"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := q.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quota entries: %w", err)
	}
	defer rows.Close()

	var out []ratelimit.QuotaEntry
	for rows.Next() {
		var (
			key                  string
			hits, start, expires int64
		)
		if err := rows.Scan(&key, &hits, &start, &expires); err != nil {
			return nil, fmt.Errorf("scan quota entry: %w", err)
		}
		out = append(out, *quotaEntry(key, hits, start, expires))
	}
	return out, rows.Err()
}

func quotaEntry(key string, hits, start, expires int64) *ratelimit.QuotaEntry {
	return &ratelimit.QuotaEntry{
		Key:         key,
		Count:       int(hits),
		WindowStart: time.UnixMilli(start),
		ExpiresAt:   time.UnixMilli(expires),
	}
}
