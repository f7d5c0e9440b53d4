package common

import (
	"testing"
	"time"
)

func setupTestEnvironment(t *testing.T) (*Cache, func()) {
	t.Helper()

	cache := NewCache(0, 0)

	cleanup := func() {
		cache.Flush()
	}

	return cache, cleanup
}

func TestCache_SetGet(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set("key", "value")

	if _, ok := cache.Get("key"); !ok {
		t.Error("expected key to be set")
	}
}

func TestCache_SetWithTTL(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set("key", "value", 10*time.Millisecond)

	if _, ok := cache.Get("key"); !ok {
		t.Error("expected key to be set")
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok := cache.Get("key"); ok {
		t.Error("expected key to have expired")
	}
}

func TestCache_Delete(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set("key", "value")
	cache.Delete("key")

	if _, ok := cache.Get("key"); ok {
		t.Error("expected key to be deleted")
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set(CacheKeyCommentsByPost(1, 1, 10), "a")
	cache.Set(CacheKeyCommentsByPost(1, 2, 10), "b")
	cache.Set(CacheKeyCommentsByPost(2, 1, 10), "c")

	cache.EvictCommentsByPost(1)

	if _, ok := cache.Get(CacheKeyCommentsByPost(1, 1, 10)); ok {
		t.Error("expected page 1 of post 1 comments to be evicted")
	}
	if _, ok := cache.Get(CacheKeyCommentsByPost(1, 2, 10)); ok {
		t.Error("expected page 2 of post 1 comments to be evicted")
	}
	if _, ok := cache.Get(CacheKeyCommentsByPost(2, 1, 10)); !ok {
		t.Error("expected post 2 comments to remain cached")
	}
}

func TestCache_EvictPostListings(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	p := NewPageable(1, 10, Sort{})

	cache.Set(CacheKeyPost(7), "single")
	cache.Set(CacheKeyPosts(p), "all")
	cache.Set(CacheKeyPostsByCategory(3, p), "cat")
	cache.Set(CacheKeyPostsByAuthor(4, p), "author")
	cache.Set(CacheKeySearchPosts("go", p), "search")

	cache.EvictPostListings()

	if _, ok := cache.Get(CacheKeyPosts(p)); ok {
		t.Error("expected posts listing to be evicted")
	}
	if _, ok := cache.Get(CacheKeyPostsByCategory(3, p)); ok {
		t.Error("expected category listing to be evicted")
	}
	if _, ok := cache.Get(CacheKeyPostsByAuthor(4, p)); ok {
		t.Error("expected author listing to be evicted")
	}
	if _, ok := cache.Get(CacheKeyPost(7)); !ok {
		t.Error("expected single post entry to remain cached")
	}
	if _, ok := cache.Get(CacheKeySearchPosts("go", p)); !ok {
		t.Error("expected search entry to remain cached")
	}
}

func TestCacheKeySearchPosts_SeparatorInSegments(t *testing.T) {
	// A keyword or sort property containing the separator must not make two
	// distinct (keyword, page, size, sort) tuples concatenate to one key.
	a := CacheKeySearchPosts("go:1:10", NewPageable(1, 10, Sort{Property: "title"}))
	b := CacheKeySearchPosts("go", NewPageable(1, 10, Sort{Property: "1:10:title"}))

	if a == b {
		t.Errorf("expected distinct keys, both resolved to %q", a)
	}
}

func TestCache_Flush(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set("key", "value")
	cache.Flush()

	if _, ok := cache.Get("key"); ok {
		t.Error("expected cache to be flushed")
	}
}
