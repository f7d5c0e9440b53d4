package analyticsservice

import (
	"context"
	"database/sql"
	"time"
)

func newAnalyticsModel(db *sql.DB) *AnalyticsModel {
	return &AnalyticsModel{db: db}
}

func (m *AnalyticsModel) scalar(ctx context.Context, query string) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx, query).Scan(&n)
	if err != nil {
		return 0, err
	}

	return n, nil
}

func (m *AnalyticsModel) userCount(ctx context.Context) (int, error) {
	return m.scalar(ctx, `SELECT count(*) FROM users`)
}

func (m *AnalyticsModel) postCount(ctx context.Context) (int, error) {
	return m.scalar(ctx, `SELECT count(*) FROM posts`)
}

func (m *AnalyticsModel) commentCount(ctx context.Context) (int, error) {
	return m.scalar(ctx, `SELECT count(*) FROM comments`)
}

// countPerDay runs a (day, count) query and keys the result by formatted date.
// Days without rows are absent from the map; the service zero-fills them.
func (m *AnalyticsModel) countPerDay(ctx context.Context, query string, since time.Time) (map[string]int, error) {
	rows, err := m.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day time.Time
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		counts[day.Format(dateLayout)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func (m *AnalyticsModel) registrationsPerDay(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `
		SELECT created_at::date AS day, count(*)
		FROM users
		WHERE created_at >= $1
		GROUP BY day`

	return m.countPerDay(ctx, query, since)
}

func (m *AnalyticsModel) postsPerDay(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `
		SELECT created_at::date AS day, count(*)
		FROM posts
		WHERE created_at >= $1
		GROUP BY day`

	return m.countPerDay(ctx, query, since)
}

func (m *AnalyticsModel) commentsPerDay(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `
		SELECT created_at::date AS day, count(*)
		FROM comments
		WHERE created_at >= $1
		GROUP BY day`

	return m.countPerDay(ctx, query, since)
}

// activeUsersPerDay counts distinct authors across posts and comments, so a
// user who does both on one day is counted once.
func (m *AnalyticsModel) activeUsersPerDay(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `
		SELECT day, count(DISTINCT author_id)
		FROM (
			SELECT created_at::date AS day, author_id FROM posts WHERE created_at >= $1
			UNION ALL
			SELECT created_at::date AS day, author_id FROM comments WHERE created_at >= $1
		) activity
		GROUP BY day`

	return m.countPerDay(ctx, query, since)
}
