package commentservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yqhuang/forumist/internal/common"
)

func newCommentModel(db *sql.DB) *CommentModel {
	return &CommentModel{db: db}
}

func (m *CommentModel) insert(ctx context.Context, c *Comment) error {
	query := `
		INSERT INTO comments (content, author_id, post_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at, version`

	err := m.db.QueryRowContext(ctx, query, c.Content, c.Author.ID, c.PostID).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.Version)
	if err != nil {
		return err
	}

	return nil
}

func (m *CommentModel) getByID(ctx context.Context, id int) (*Comment, error) {
	query := `
		SELECT c.id, c.content, c.post_id, c.created_at, c.updated_at, c.version,
		       u.id, u.username, u.email
		FROM comments c
		JOIN users u ON c.author_id = u.id
		WHERE c.id = $1`

	var c Comment
	err := m.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Content, &c.PostID, &c.CreatedAt, &c.UpdatedAt, &c.Version,
		&c.Author.ID, &c.Author.Username, &c.Author.Email,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &c, nil
}

func (m *CommentModel) update(ctx context.Context, c *Comment) error {
	query := `
		UPDATE comments
		SET content = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version, updated_at`

	err := m.db.QueryRowContext(ctx, query, c.Content, c.ID, c.Version).
		Scan(&c.Version, &c.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *CommentModel) delete(ctx context.Context, id int) error {
	query := `
		DELETE FROM comments
		WHERE id = $1`

	res, err := m.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return common.ErrRecordNotFound
		default:
			return fmt.Errorf("expected 1 row to be affected, got %d", rows)
		}
	}

	return nil
}

// getPageByPost returns one page of a post's comments, oldest first.
func (m *CommentModel) getPageByPost(ctx context.Context, postID int, pg common.Pageable) (common.Page[Comment], error) {
	page := common.Page[Comment]{Page: pg.Page, Size: pg.Size}

	query := `
		SELECT count(*) OVER(),
		       c.id, c.content, c.post_id, c.created_at, c.updated_at, c.version,
		       u.id, u.username, u.email
		FROM comments c
		JOIN users u ON c.author_id = u.id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC
		LIMIT $2 OFFSET $3`

	rows, err := m.db.QueryContext(ctx, query, postID, pg.Limit(), pg.Offset())
	if err != nil {
		return page, err
	}
	defer rows.Close()

	for rows.Next() {
		var c Comment
		err := rows.Scan(
			&page.TotalCount,
			&c.ID, &c.Content, &c.PostID, &c.CreatedAt, &c.UpdatedAt, &c.Version,
			&c.Author.ID, &c.Author.Username, &c.Author.Email,
		)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, c)
	}

	if err := rows.Err(); err != nil {
		return page, err
	}

	return page, nil
}

func (m *CommentModel) postExists(ctx context.Context, id int) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`

	var exists bool
	err := m.db.QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (m *CommentModel) authorIDByUsername(ctx context.Context, username string) (int, error) {
	query := `
		SELECT id
		FROM users
		WHERE username = $1`

	var id int
	err := m.db.QueryRowContext(ctx, query, username).Scan(&id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return 0, common.ErrRecordNotFound
		default:
			return 0, err
		}
	}

	return id, nil
}
