package postservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/yqhuang/forumist/internal/categoryservice"
	"github.com/yqhuang/forumist/internal/common"
	"github.com/yqhuang/forumist/internal/userservice"
)

type Post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	// Content is stored in Markdown format.
	Content string `json:"content"`
	// Summary is derived from Content on every read and never persisted.
	Summary   string                   `json:"summary"`
	Author    userservice.User         `json:"author"`
	Category  categoryservice.Category `json:"category"`
	ViewCount int                      `json:"view_count"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
	Version   int                      `json:"version"`
}

type PostModel struct {
	db *sql.DB
}

// postStore is the persistence surface the service needs. It is satisfied by
// PostModel and by counting stubs in tests.
type postStore interface {
	insert(ctx context.Context, p *Post) error
	getByID(ctx context.Context, id int) (*Post, error)
	update(ctx context.Context, p *Post) error
	delete(ctx context.Context, id int) error
	getPage(ctx context.Context, pg common.Pageable) (common.Page[Post], error)
	getPageByCategory(ctx context.Context, categoryID int, pg common.Pageable) (common.Page[Post], error)
	getPageByAuthor(ctx context.Context, userID int, pg common.Pageable) (common.Page[Post], error)
	search(ctx context.Context, keyword string, pg common.Pageable) (common.Page[Post], error)
	incrementViewCount(ctx context.Context, id int) error
	authorIDByUsername(ctx context.Context, username string) (int, error)
	categoryExists(ctx context.Context, id int) (bool, error)
}

type PostService struct {
	store postStore
	cache *common.Cache
}
