package analyticsservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/yqhuang/forumist/internal/common"
)

const (
	// trendDays is the window of the dashboard trend series, today included.
	trendDays = 7

	// dashboardCacheTTL keeps the aggregate queries off the hot path. The
	// dashboard is never evicted on writes because every forum write would
	// invalidate it; a short lifetime bounds the staleness instead.
	dashboardCacheTTL = time.Minute

	dateLayout = "2006-01-02"
)

// TrendPoint is one day of a trend series.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Dashboard aggregates the totals and the trailing trends shown on the admin
// dashboard. A user is active on a day when they post or comment on it.
type Dashboard struct {
	TotalUsers       int `json:"total_users"`
	TotalPosts       int `json:"total_posts"`
	TotalComments    int `json:"total_comments"`
	ActiveUsersToday int `json:"active_users_today"`

	UserRegistrations []TrendPoint `json:"user_registrations"`
	PostCreations     []TrendPoint `json:"post_creations"`
	CommentCreations  []TrendPoint `json:"comment_creations"`
	ActiveUsers       []TrendPoint `json:"active_users"`
}

type AnalyticsModel struct {
	db *sql.DB
}

type analyticsStore interface {
	userCount(ctx context.Context) (int, error)
	postCount(ctx context.Context) (int, error)
	commentCount(ctx context.Context) (int, error)
	registrationsPerDay(ctx context.Context, since time.Time) (map[string]int, error)
	postsPerDay(ctx context.Context, since time.Time) (map[string]int, error)
	commentsPerDay(ctx context.Context, since time.Time) (map[string]int, error)
	activeUsersPerDay(ctx context.Context, since time.Time) (map[string]int, error)
}

type AnalyticsService struct {
	store analyticsStore
	cache *common.Cache
}
