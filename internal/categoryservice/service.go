package categoryservice

import (
	"context"
	"database/sql"
	"strings"

	"github.com/yqhuang/forumist/internal/common"
)

// CategoryService caches the full category list under a single key and each
// category under category:<id>. Writes evict only what a write can affect: a
// brand-new row cannot change any other category:<id> entry, so createCategory
// flushes the list alone.

func NewCategoryService(db *sql.DB, c *common.Cache) *CategoryService {
	return &CategoryService{store: newCategoryModel(db), cache: c}
}

// FindAll returns every category. The list is unpaginated and cached whole.
func (s *CategoryService) FindAll(ctx context.Context) ([]Category, error) {
	key := common.CacheKeyCategories()
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]Category), nil
	}

	categories, err := s.store.getAll(ctx)
	if err != nil {
		return nil, err
	}

	if len(categories) > 0 {
		s.cache.Set(key, categories)
	}

	return categories, nil
}

func (s *CategoryService) FindByID(ctx context.Context, id int) (*Category, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	key := common.CacheKeyCategory(id)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*Category), nil
	}

	category, err := s.store.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, category)

	return category, nil
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *CategoryService) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*Category, error) {
	v := common.NewValidator()
	validateName(v, req.Name)
	validateDescription(v, req.Description)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	exists, err := s.store.existsByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateName
	}

	category := &Category{Name: req.Name, Description: req.Description}
	if err := s.store.insert(ctx, category); err != nil {
		return nil, err
	}

	s.cache.EvictCategories()

	return category, nil
}

type UpdateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateCategory renames or redescribes a category. The new name must not
// collide with a different row; keeping the current name is fine.
func (s *CategoryService) UpdateCategory(ctx context.Context, id int, req *UpdateCategoryRequest) (*Category, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	validateName(v, req.Name)
	validateDescription(v, req.Description)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	category, err := s.store.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// names are citext in the store, so a case-only rename is still the same
	// row and must not trip the uniqueness check against itself
	if !strings.EqualFold(category.Name, req.Name) {
		exists, err := s.store.existsByName(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateName
		}
	}

	category.Name = req.Name
	category.Description = req.Description

	if err := s.store.update(ctx, category); err != nil {
		return nil, err
	}

	s.cache.EvictCategory(id)
	s.cache.EvictCategories()

	return category, nil
}

func (s *CategoryService) DeleteCategory(ctx context.Context, id int) error {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return v.ValidationError()
	}

	if err := s.store.delete(ctx, id); err != nil {
		return err
	}

	s.cache.EvictCategory(id)
	s.cache.EvictCategories()

	return nil
}

// ExistsByName always hits the store: it backs real-time uniqueness checks
// and must reflect the latest write.
func (s *CategoryService) ExistsByName(ctx context.Context, name string) (bool, error) {
	v := common.NewValidator()
	validateName(v, name)
	if !v.Valid() {
		return false, v.ValidationError()
	}

	return s.store.existsByName(ctx, name)
}
