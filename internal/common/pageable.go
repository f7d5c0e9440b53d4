package common

import (
	"fmt"
	"strconv"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Sort describes the ordering of a paged query. Property is a logical field
// name; each service maps it to a real column through its own whitelist.
type Sort struct {
	Property string
	Desc     bool
}

func (s Sort) String() string {
	dir := "asc"
	if s.Desc {
		dir = "desc"
	}
	return s.Property + "." + dir
}

// Pageable carries page number, page size and sort for a paged read. All three
// are part of the cache key because they affect result identity.
type Pageable struct {
	Page int
	Size int
	Sort Sort
}

// NewPageable normalizes page/size and applies the created-at descending
// default ordering used across the forum.
func NewPageable(page, size int, sort Sort) Pageable {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if sort.Property == "" {
		sort = Sort{Property: "created_at", Desc: true}
	}
	return Pageable{Page: page, Size: size, Sort: sort}
}

func (p Pageable) Limit() int {
	return p.Size
}

func (p Pageable) Offset() int {
	return (p.Page - 1) * p.Size
}

// key returns the cache key segment for this pageable. The sort segment is
// length-prefixed because the property name is caller-supplied.
func (p Pageable) key() string {
	return strconv.Itoa(p.Page) + ":" + strconv.Itoa(p.Size) + ":" + keySegment(p.Sort.String())
}

// Page is one page of results together with the total row count.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	Size       int `json:"size"`
}

func (p Page[T]) Empty() bool {
	return len(p.Items) == 0
}

func (p Page[T]) TotalPages() int {
	if p.Size == 0 {
		return 0
	}
	return (p.TotalCount + p.Size - 1) / p.Size
}

func (p Page[T]) String() string {
	return fmt.Sprintf("page %d/%d (%d items)", p.Page, p.TotalPages(), len(p.Items))
}
