package postservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/yqhuang/forumist/internal/common"
)

var ErrCategoryForeignKey = errors.New("category_id does not exist")

func newPostModel(db *sql.DB) *PostModel {
	return &PostModel{db: db}
}

// ForeignKeyError is a helper function to check if the error is a foreign key constraint error.
func ForeignKeyError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23503" && pqErr.Constraint == name {
			return true
		}
	}

	return false
}

// sortColumn maps the logical sort property to a real column. Unknown
// properties fall back to creation time so the ORDER BY clause is never built
// from raw input.
func sortColumn(s common.Sort) string {
	column := "p.created_at"
	switch s.Property {
	case "created_at":
		column = "p.created_at"
	case "updated_at":
		column = "p.updated_at"
	case "title":
		column = "p.title"
	case "view_count":
		column = "p.view_count"
	}

	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}

	return column + " " + direction
}

const postColumns = `
	p.id, p.title, p.content, p.view_count, p.created_at, p.updated_at, p.version,
	u.id, u.username, u.email,
	c.id, c.name, c.description`

const postJoins = `
	FROM posts p
	JOIN users u ON p.author_id = u.id
	JOIN categories c ON p.category_id = c.id`

func scanPost(row interface{ Scan(dest ...any) error }, p *Post) error {
	return row.Scan(
		&p.ID, &p.Title, &p.Content, &p.ViewCount, &p.CreatedAt, &p.UpdatedAt, &p.Version,
		&p.Author.ID, &p.Author.Username, &p.Author.Email,
		&p.Category.ID, &p.Category.Name, &p.Category.Description,
	)
}

func (m *PostModel) insert(ctx context.Context, p *Post) error {
	query := `
		INSERT INTO posts (title, content, author_id, category_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, view_count, created_at, updated_at, version`

	err := m.db.QueryRowContext(ctx, query, p.Title, p.Content, p.Author.ID, p.Category.ID).
		Scan(&p.ID, &p.ViewCount, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		switch {
		case ForeignKeyError(err, "posts_category_id_fkey"):
			return ErrCategoryForeignKey
		default:
			return err
		}
	}

	return nil
}

// getByID returns the post joined with its author and category.
func (m *PostModel) getByID(ctx context.Context, id int) (*Post, error) {
	query := `SELECT` + postColumns + postJoins + `
		WHERE p.id = $1`

	var p Post
	err := scanPost(m.db.QueryRowContext(ctx, query, id), &p)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &p, nil
}

func (m *PostModel) update(ctx context.Context, p *Post) error {
	query := `
		UPDATE posts
		SET title = $1, content = $2, category_id = $3, version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version, updated_at`

	err := m.db.QueryRowContext(ctx, query, p.Title, p.Content, p.Category.ID, p.ID, p.Version).
		Scan(&p.Version, &p.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrRecordNotFound
		case ForeignKeyError(err, "posts_category_id_fkey"):
			return ErrCategoryForeignKey
		default:
			return err
		}
	}

	return nil
}

func (m *PostModel) delete(ctx context.Context, id int) error {
	query := `
		DELETE FROM posts
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

func (m *PostModel) queryPage(ctx context.Context, query string, pg common.Pageable, args ...any) (common.Page[Post], error) {
	page := common.Page[Post]{Page: pg.Page, Size: pg.Size}

	args = append(args, pg.Limit(), pg.Offset())

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return page, err
	}
	defer rows.Close()

	for rows.Next() {
		var p Post
		err := rows.Scan(
			&page.TotalCount,
			&p.ID, &p.Title, &p.Content, &p.ViewCount, &p.CreatedAt, &p.UpdatedAt, &p.Version,
			&p.Author.ID, &p.Author.Username, &p.Author.Email,
			&p.Category.ID, &p.Category.Name, &p.Category.Description,
		)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, p)
	}

	if err := rows.Err(); err != nil {
		return page, err
	}

	return page, nil
}

func (m *PostModel) getPage(ctx context.Context, pg common.Pageable) (common.Page[Post], error) {
	query := fmt.Sprintf(`SELECT count(*) OVER(),`+postColumns+postJoins+`
		ORDER BY %s
		LIMIT $1 OFFSET $2`, sortColumn(pg.Sort))

	return m.queryPage(ctx, query, pg)
}

func (m *PostModel) getPageByCategory(ctx context.Context, categoryID int, pg common.Pageable) (common.Page[Post], error) {
	query := fmt.Sprintf(`SELECT count(*) OVER(),`+postColumns+postJoins+`
		WHERE p.category_id = $1
		ORDER BY %s
		LIMIT $2 OFFSET $3`, sortColumn(pg.Sort))

	return m.queryPage(ctx, query, pg, categoryID)
}

func (m *PostModel) getPageByAuthor(ctx context.Context, userID int, pg common.Pageable) (common.Page[Post], error) {
	query := fmt.Sprintf(`SELECT count(*) OVER(),`+postColumns+postJoins+`
		WHERE p.author_id = $1
		ORDER BY %s
		LIMIT $2 OFFSET $3`, sortColumn(pg.Sort))

	return m.queryPage(ctx, query, pg, userID)
}

// search matches the keyword against title and content.
func (m *PostModel) search(ctx context.Context, keyword string, pg common.Pageable) (common.Page[Post], error) {
	query := fmt.Sprintf(`SELECT count(*) OVER(),`+postColumns+postJoins+`
		WHERE p.title ILIKE $1 OR p.content ILIKE $1
		ORDER BY %s
		LIMIT $2 OFFSET $3`, sortColumn(pg.Sort))

	return m.queryPage(ctx, query, pg, "%"+keyword+"%")
}

func (m *PostModel) incrementViewCount(ctx context.Context, id int) error {
	query := `
		UPDATE posts
		SET view_count = view_count + 1
		WHERE id = $1`

	res, err := m.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return common.ErrRecordNotFound
	}

	return nil
}

func (m *PostModel) authorIDByUsername(ctx context.Context, username string) (int, error) {
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

func (m *PostModel) categoryExists(ctx context.Context, id int) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`

	var exists bool
	err := m.db.QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}
