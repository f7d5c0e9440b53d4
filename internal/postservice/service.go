package postservice

import (
	"context"
	"database/sql"

	"github.com/yqhuang/forumist/internal/common"
)

// PostService wraps every post read and write with the cache policy: reads go
// through the cache, writes hit the store first and then evict whatever key
// families could have gone stale. Eviction and repopulation are idempotent,
// so no locking is needed around them.

func NewPostService(db *sql.DB, c *common.Cache) *PostService {
	return &PostService{store: newPostModel(db), cache: c}
}

// FindByID returns a post by its ID, read-through cached under post:<id>.
func (s *PostService) FindByID(ctx context.Context, id int) (*Post, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	key := common.CacheKeyPost(id)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*Post), nil
	}

	post, err := s.store.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Summary = Summarize(post.Content)

	s.cache.Set(key, post)

	return post, nil
}

// cachedPage is the shared read-through flow of the paged listings. Empty
// pages are returned but never cached, so a transient "no data yet" state
// cannot poison the cache once rows appear.
func (s *PostService) cachedPage(ctx context.Context, key string, fetch func(context.Context) (common.Page[Post], error)) (common.Page[Post], error) {
	if cached, ok := s.cache.Get(key); ok {
		return cached.(common.Page[Post]), nil
	}

	page, err := fetch(ctx)
	if err != nil {
		return page, err
	}

	for i := range page.Items {
		page.Items[i].Summary = Summarize(page.Items[i].Content)
	}

	if !page.Empty() {
		s.cache.Set(key, page)
	}

	return page, nil
}

// FindAll returns one page of all posts.
func (s *PostService) FindAll(ctx context.Context, pg common.Pageable) (common.Page[Post], error) {
	pg = common.NewPageable(pg.Page, pg.Size, pg.Sort)

	return s.cachedPage(ctx, common.CacheKeyPosts(pg), func(ctx context.Context) (common.Page[Post], error) {
		return s.store.getPage(ctx, pg)
	})
}

// FindByCategoryID returns one page of the posts in a category.
func (s *PostService) FindByCategoryID(ctx context.Context, categoryID int, pg common.Pageable) (common.Page[Post], error) {
	v := common.NewValidator()
	validateInt(v, categoryID, "category_id")
	if !v.Valid() {
		return common.Page[Post]{}, v.ValidationError()
	}

	pg = common.NewPageable(pg.Page, pg.Size, pg.Sort)

	return s.cachedPage(ctx, common.CacheKeyPostsByCategory(categoryID, pg), func(ctx context.Context) (common.Page[Post], error) {
		return s.store.getPageByCategory(ctx, categoryID, pg)
	})
}

// FindByAuthor returns one page of the posts written by a user.
func (s *PostService) FindByAuthor(ctx context.Context, userID int, pg common.Pageable) (common.Page[Post], error) {
	v := common.NewValidator()
	validateInt(v, userID, "user_id")
	if !v.Valid() {
		return common.Page[Post]{}, v.ValidationError()
	}

	pg = common.NewPageable(pg.Page, pg.Size, pg.Sort)

	return s.cachedPage(ctx, common.CacheKeyPostsByAuthor(userID, pg), func(ctx context.Context) (common.Page[Post], error) {
		return s.store.getPageByAuthor(ctx, userID, pg)
	})
}

// Search returns one page of posts whose title or content match the keyword.
func (s *PostService) Search(ctx context.Context, keyword string, pg common.Pageable) (common.Page[Post], error) {
	v := common.NewValidator()
	validateKeyword(v, keyword)
	if !v.Valid() {
		return common.Page[Post]{}, v.ValidationError()
	}

	pg = common.NewPageable(pg.Page, pg.Size, pg.Sort)

	return s.cachedPage(ctx, common.CacheKeySearchPosts(keyword, pg), func(ctx context.Context) (common.Page[Post], error) {
		return s.store.search(ctx, keyword, pg)
	})
}

type CreatePostRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID int    `json:"category_id"`
}

// CreatePost persists a new post and flushes the listing families whole: the
// new row can surface on any page of any listing. The single-post family is
// untouched (no entry can exist for an unborn id) and searchPosts is left to
// age out within its TTL, trading bounded staleness for not flushing search
// results on every write.
func (s *PostService) CreatePost(ctx context.Context, req *CreatePostRequest, authorUsername string) (*Post, error) {
	v := common.NewValidator()
	validateTitle(v, req.Title)
	validateContent(v, req.Content)
	validateInt(v, req.CategoryID, "category_id")
	validateUsername(v, authorUsername)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	authorID, err := s.store.authorIDByUsername(ctx, authorUsername)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.categoryExists(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrRecordNotFound
	}

	post := &Post{
		Title:   req.Title,
		Content: req.Content,
	}
	post.Author.ID = authorID
	post.Category.ID = req.CategoryID

	if err := s.store.insert(ctx, post); err != nil {
		return nil, err
	}

	s.cache.EvictPostListings()

	created, err := s.store.getByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	created.Summary = Summarize(created.Content)

	return created, nil
}

type UpdatePostRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID int    `json:"category_id"`
}

// UpdatePost edits a post. Only the author may update it; the check runs on
// the live row fetched for the mutation, never on a cached DTO. On success
// the single entry and all listing families are evicted (the category may
// have changed, moving the post between category listings).
func (s *PostService) UpdatePost(ctx context.Context, id int, req *UpdatePostRequest, username string) (*Post, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	validateTitle(v, req.Title)
	validateContent(v, req.Content)
	validateInt(v, req.CategoryID, "category_id")
	validateUsername(v, username)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	post, err := s.store.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.Author.Username != username {
		return nil, common.ErrPermissionDenied
	}

	ok, err := s.store.categoryExists(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrRecordNotFound
	}

	post.Title = req.Title
	post.Content = req.Content
	post.Category.ID = req.CategoryID

	if err := s.store.update(ctx, post); err != nil {
		return nil, err
	}

	s.cache.EvictPost(id)
	s.cache.EvictPostListings()

	updated, err := s.store.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated.Summary = Summarize(updated.Content)

	return updated, nil
}

// DeletePost deletes a post. Only the author may delete it.
func (s *PostService) DeletePost(ctx context.Context, id int, username string) error {
	v := common.NewValidator()
	validateInt(v, id, "id")
	validateUsername(v, username)
	if !v.Valid() {
		return v.ValidationError()
	}

	post, err := s.store.getByID(ctx, id)
	if err != nil {
		return err
	}

	if post.Author.Username != username {
		return common.ErrPermissionDenied
	}

	if err := s.store.delete(ctx, id); err != nil {
		return err
	}

	s.cache.EvictPost(id)
	s.cache.EvictPostListings()

	return nil
}

// IncrementViewCount bumps the view counter by one. The counter is surfaced
// in listings, so the listing families are evicted along with the single
// entry.
func (s *PostService) IncrementViewCount(ctx context.Context, id int) error {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return v.ValidationError()
	}

	if err := s.store.incrementViewCount(ctx, id); err != nil {
		return err
	}

	s.cache.EvictPost(id)
	s.cache.EvictPostListings()

	return nil
}
