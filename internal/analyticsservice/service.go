package analyticsservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/yqhuang/forumist/internal/common"
)

func NewAnalyticsService(db *sql.DB, c *common.Cache) *AnalyticsService {
	return &AnalyticsService{store: newAnalyticsModel(db), cache: c}
}

// Dashboard assembles the totals and the trailing trend series. The whole
// result is cached under one key for dashboardCacheTTL.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	key := common.CacheKeyDashboard()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*Dashboard), nil
	}

	d := &Dashboard{}
	var err error

	if d.TotalUsers, err = s.store.userCount(ctx); err != nil {
		return nil, err
	}
	if d.TotalPosts, err = s.store.postCount(ctx); err != nil {
		return nil, err
	}
	if d.TotalComments, err = s.store.commentCount(ctx); err != nil {
		return nil, err
	}

	now := time.Now()
	since := trendStart(now)

	registrations, err := s.store.registrationsPerDay(ctx, since)
	if err != nil {
		return nil, err
	}
	d.UserRegistrations = trendSeries(since, registrations)

	posts, err := s.store.postsPerDay(ctx, since)
	if err != nil {
		return nil, err
	}
	d.PostCreations = trendSeries(since, posts)

	comments, err := s.store.commentsPerDay(ctx, since)
	if err != nil {
		return nil, err
	}
	d.CommentCreations = trendSeries(since, comments)

	active, err := s.store.activeUsersPerDay(ctx, since)
	if err != nil {
		return nil, err
	}
	d.ActiveUsers = trendSeries(since, active)
	d.ActiveUsersToday = active[now.Format(dateLayout)]

	s.cache.Set(key, d, dashboardCacheTTL)

	return d, nil
}

// trendStart is midnight trendDays-1 days ago, so the series ends today.
func trendStart(now time.Time) time.Time {
	y, m, d := now.AddDate(0, 0, -(trendDays - 1)).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// trendSeries zero-fills the window so every day appears, oldest first.
func trendSeries(start time.Time, counts map[string]int) []TrendPoint {
	series := make([]TrendPoint, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		series = append(series, TrendPoint{Date: date, Count: counts[date]})
	}

	return series
}
