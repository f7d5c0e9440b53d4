package categoryservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/yqhuang/forumist/internal/common"
)

type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

type CategoryModel struct {
	db *sql.DB
}

type categoryStore interface {
	insert(ctx context.Context, c *Category) error
	getByID(ctx context.Context, id int) (*Category, error)
	getAll(ctx context.Context) ([]Category, error)
	update(ctx context.Context, c *Category) error
	delete(ctx context.Context, id int) error
	existsByName(ctx context.Context, name string) (bool, error)
}

type CategoryService struct {
	store categoryStore
	cache *common.Cache
}
