package categoryservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yqhuang/forumist/internal/common"
)

// ErrDuplicateName signals a category name collision; names are unique.
var ErrDuplicateName = errors.New("duplicate category name")

func newCategoryModel(db *sql.DB) *CategoryModel {
	return &CategoryModel{db: db}
}

func (m *CategoryModel) insert(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at, version`

	err := m.db.QueryRowContext(ctx, query, c.Name, c.Description).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.Version)
	if err != nil {
		switch {
		case err.Error() == `pq: duplicate key value violates unique constraint "categories_name_key"`:
			return ErrDuplicateName
		default:
			return err
		}
	}

	return nil
}

func (m *CategoryModel) getByID(ctx context.Context, id int) (*Category, error) {
	query := `
		SELECT id, name, description, created_at, updated_at, version
		FROM categories
		WHERE id = $1`

	var c Category
	err := m.db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.Version)
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

func (m *CategoryModel) getAll(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name, description, created_at, updated_at, version
		FROM categories
		ORDER BY name ASC`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.Version)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

func (m *CategoryModel) update(ctx context.Context, c *Category) error {
	query := `
		UPDATE categories
		SET name = $1, description = $2, version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version, updated_at`

	err := m.db.QueryRowContext(ctx, query, c.Name, c.Description, c.ID, c.Version).
		Scan(&c.Version, &c.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrRecordNotFound
		case err.Error() == `pq: duplicate key value violates unique constraint "categories_name_key"`:
			return ErrDuplicateName
		default:
			return err
		}
	}

	return nil
}

func (m *CategoryModel) delete(ctx context.Context, id int) error {
	query := `
		DELETE FROM categories
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

func (m *CategoryModel) existsByName(ctx context.Context, name string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM categories WHERE name = $1)`

	var exists bool
	err := m.db.QueryRowContext(ctx, query, name).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}
