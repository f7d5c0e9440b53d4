package commentservice

import (
	"context"
	"database/sql"

	"github.com/yqhuang/forumist/internal/common"
)

// CommentService caches comment pages per post and scopes every eviction to
// the owning post: writing a comment on one post never touches the cached
// pages of another.

func NewCommentService(db *sql.DB, c *common.Cache) *CommentService {
	return &CommentService{store: newCommentModel(db), cache: c}
}

// FindByPostID returns one page of a post's comments, read-through cached
// under commentsByPost:<postID>:<page>:<size>. Empty pages are never cached.
func (s *CommentService) FindByPostID(ctx context.Context, postID int, pg common.Pageable) (common.Page[Comment], error) {
	v := common.NewValidator()
	validateInt(v, postID, "post_id")
	if !v.Valid() {
		return common.Page[Comment]{}, v.ValidationError()
	}

	pg = common.NewPageable(pg.Page, pg.Size, pg.Sort)

	key := common.CacheKeyCommentsByPost(postID, pg.Page, pg.Size)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(common.Page[Comment]), nil
	}

	page, err := s.store.getPageByPost(ctx, postID, pg)
	if err != nil {
		return page, err
	}

	if !page.Empty() {
		s.cache.Set(key, page)
	}

	return page, nil
}

type CreateCommentRequest struct {
	Content string `json:"content"`
	PostID  int    `json:"post_id"`
}

func (s *CommentService) CreateComment(ctx context.Context, req *CreateCommentRequest, authorUsername string) (*Comment, error) {
	v := common.NewValidator()
	validateContent(v, req.Content)
	validateInt(v, req.PostID, "post_id")
	validateUsername(v, authorUsername)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	authorID, err := s.store.authorIDByUsername(ctx, authorUsername)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.postExists(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrRecordNotFound
	}

	comment := &Comment{Content: req.Content, PostID: req.PostID}
	comment.Author.ID = authorID

	if err := s.store.insert(ctx, comment); err != nil {
		return nil, err
	}

	s.cache.EvictCommentsByPost(req.PostID)

	created, err := s.store.getByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	return created, nil
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// UpdateComment edits a comment. Only the author may edit it; the check runs
// on the live row, never on a cached page.
func (s *CommentService) UpdateComment(ctx context.Context, id int, req *UpdateCommentRequest, username string) (*Comment, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	validateContent(v, req.Content)
	validateUsername(v, username)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	comment, err := s.store.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if comment.Author.Username != username {
		return nil, common.ErrPermissionDenied
	}

	comment.Content = req.Content

	if err := s.store.update(ctx, comment); err != nil {
		return nil, err
	}

	s.cache.EvictCommentsByPost(comment.PostID)

	return comment, nil
}

// DeleteComment removes a comment. The owning post id is only known from the
// row itself, so the flow is fetch, then delete, then evict with the fetched
// id. A concurrent write can land inside that window; the eventual-consistency
// contract of the cache absorbs it.
func (s *CommentService) DeleteComment(ctx context.Context, id int, username string) error {
	v := common.NewValidator()
	validateInt(v, id, "id")
	validateUsername(v, username)
	if !v.Valid() {
		return v.ValidationError()
	}

	comment, err := s.store.getByID(ctx, id)
	if err != nil {
		return err
	}

	if comment.Author.Username != username {
		return common.ErrPermissionDenied
	}

	if err := s.store.delete(ctx, id); err != nil {
		return err
	}

	s.cache.EvictCommentsByPost(comment.PostID)

	return nil
}
