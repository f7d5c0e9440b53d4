package common

import (
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultCacheTTL is the absolute expiry for every cache family. It is a hard
// upper bound on staleness regardless of eviction.
const DefaultCacheTTL = 30 * time.Minute

// Cache family prefixes. A family groups every entry of one logical read
// operation; evicting a family means deleting every key under its prefix.
const (
	familyPost            = "post"
	familyPosts           = "posts"
	familyPostsByCategory = "postsByCategory"
	familyPostsByAuthor   = "postsByAuthor"
	familySearchPosts     = "searchPosts"
	familyCategory        = "category"
	familyCategories      = "categories"
	familyCommentsByPost  = "commentsByPost"
	familyDashboard       = "dashboard"
)

type Cache struct {
	*cache.Cache
}

func NewCache(expirationTime, cleanupTime time.Duration) *Cache {
	return &Cache{cache.New(expirationTime, cleanupTime)}
}

func (c *Cache) Set(key string, value interface{}, expiration ...time.Duration) {
	if len(expiration) > 0 {
		c.Cache.Set(key, value, expiration[0])
		return
	}
	c.Cache.Set(key, value, cache.DefaultExpiration)
}

func (c *Cache) Get(key string) (interface{}, bool) {
	return c.Cache.Get(key)
}

func (c *Cache) Delete(key string) {
	c.Cache.Delete(key)
}

// DeletePrefix removes every entry whose key starts with prefix. Evictions
// are idempotent, so concurrent calls for the same prefix are safe.
func (c *Cache) DeletePrefix(prefix string) {
	for key := range c.Cache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.Cache.Delete(key)
		}
	}
}

func (c *Cache) Flush() {
	c.Cache.Flush()
}

// keySegment length-prefixes a caller-supplied string so that segment
// boundaries stay unambiguous even when the value contains the separator.
// Without it ("a:1", page 1) and ("a", page 1:1...) could land on one key.
func keySegment(s string) string {
	return strconv.Itoa(len(s)) + "~" + s
}

// Single-entry keys. The "post" prefix never collides with the listing
// families because every composed key carries its own separator.

func CacheKeyPost(id int) string {
	return familyPost + ":" + strconv.Itoa(id)
}

func CacheKeyPosts(p Pageable) string {
	return familyPosts + ":" + p.key()
}

func CacheKeyPostsByCategory(categoryID int, p Pageable) string {
	return familyPostsByCategory + ":" + strconv.Itoa(categoryID) + ":" + p.key()
}

func CacheKeyPostsByAuthor(userID int, p Pageable) string {
	return familyPostsByAuthor + ":" + strconv.Itoa(userID) + ":" + p.key()
}

func CacheKeySearchPosts(keyword string, p Pageable) string {
	return familySearchPosts + ":" + keySegment(keyword) + ":" + p.key()
}

func CacheKeyCategory(id int) string {
	return familyCategory + ":" + strconv.Itoa(id)
}

func CacheKeyCategories() string {
	return familyCategories
}

func CacheKeyCommentsByPost(postID, page, size int) string {
	return familyCommentsByPost + ":" + strconv.Itoa(postID) + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(size)
}

func CacheKeyDashboard() string {
	return familyDashboard
}

func CacheKeyUserByAccessToken(token []byte) string {
	return "user_by_access_token:" + string(token)
}

// Family evictions. A new, changed or deleted post can shift every page
// boundary of the listing families (ordering is created_at descending), so
// listings are always flushed whole rather than per key.

func (c *Cache) EvictPost(id int) {
	c.Delete(CacheKeyPost(id))
}

func (c *Cache) EvictPostListings() {
	c.DeletePrefix(familyPosts + ":")
	c.DeletePrefix(familyPostsByCategory + ":")
	c.DeletePrefix(familyPostsByAuthor + ":")
}

func (c *Cache) EvictSearchPosts() {
	c.DeletePrefix(familySearchPosts + ":")
}

func (c *Cache) EvictCategory(id int) {
	c.Delete(CacheKeyCategory(id))
}

func (c *Cache) EvictCategories() {
	c.Delete(CacheKeyCategories())
}

// EvictCommentsByPost removes the comment pages of a single post. Comments on
// other posts are unaffected.
func (c *Cache) EvictCommentsByPost(postID int) {
	c.DeletePrefix(familyCommentsByPost + ":" + strconv.Itoa(postID) + ":")
}
