package commentservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/yqhuang/forumist/internal/common"
	"github.com/yqhuang/forumist/internal/userservice"
)

type Comment struct {
	ID        int              `json:"id"`
	Content   string           `json:"content"`
	Author    userservice.User `json:"author"`
	PostID    int              `json:"post_id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Version   int              `json:"version"`
}

type CommentModel struct {
	db *sql.DB
}

type commentStore interface {
	insert(ctx context.Context, c *Comment) error
	getByID(ctx context.Context, id int) (*Comment, error)
	update(ctx context.Context, c *Comment) error
	delete(ctx context.Context, id int) error
	getPageByPost(ctx context.Context, postID int, pg common.Pageable) (common.Page[Comment], error)
	postExists(ctx context.Context, id int) (bool, error)
	authorIDByUsername(ctx context.Context, username string) (int, error)
}

type CommentService struct {
	store commentStore
	cache *common.Cache
}
