// Package catalog keeps the site's content collections in memory and applies
// content change events to them.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/BRO3886/sitesearch/internal/types"
)

var (
	ErrNotFound    = errors.New("content not found")
	ErrUnsupported = errors.New("unsupported content event")
)

// DefaultRecentCount is the number of posts RecentBlogPosts returns for a
// non-positive count.
const DefaultRecentCount = 5

type Catalog struct {
	mu          sync.RWMutex
	collections types.Collections
}

func New(c types.Collections) *Catalog {
	return &Catalog{collections: clone(c)}
}

// Snapshot returns the collections in their stored order. The returned slices
// are copies; the records themselves are shared and must not be modified.
func (c *Catalog) Snapshot() types.Collections {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.collections)
}

func (c *Catalog) Replace(collections types.Collections) {
	c.mu.Lock()
	c.collections = clone(collections)
	c.mu.Unlock()
}

// Apply upserts or deletes the record named by the event key. Upserts keep the
// position of an existing slug and append new ones.
func (c *Catalog) Apply(event types.ContentEvent) error {
	subject := event.Subject()
	if subject == nil {
		return nil
	}
	_, kind, slug, err := types.ParseKey(subject.Key)
	if err != nil {
		return err
	}

	switch event.Op {
	case types.OpDelete:
		c.mu.Lock()
		defer c.mu.Unlock()
		switch kind {
		case types.KindService:
			c.collections.Services = remove(c.collections.Services, slug)
		case types.KindLocation:
			c.collections.Locations = remove(c.collections.Locations, slug)
		case types.KindBlog:
			c.collections.BlogPosts = remove(c.collections.BlogPosts, slug)
		}
		return nil
	case types.OpCreate, types.OpUpdate, types.OpRead:
		return c.upsert(kind, slug, subject.Value.Object)
	}
	return fmt.Errorf("%w: op %q", ErrUnsupported, event.Op)
}

func (c *Catalog) upsert(kind types.Kind, slug string, object map[string]any) error {
	if object == nil {
		return fmt.Errorf("%w: empty object for %s %s", ErrUnsupported, kind, slug)
	}
	switch kind {
	case types.KindService:
		record, err := decode[types.Service](object, slug)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.collections.Services = upsert(c.collections.Services, record)
		c.mu.Unlock()
	case types.KindLocation:
		record, err := decode[types.Location](object, slug)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.collections.Locations = upsert(c.collections.Locations, record)
		c.mu.Unlock()
	case types.KindBlog:
		record, err := decode[types.BlogPost](object, slug)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.collections.BlogPosts = upsert(c.collections.BlogPosts, record)
		c.mu.Unlock()
	}
	return nil
}

func (c *Catalog) ServiceBySlug(slug string) (types.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return find(c.collections.Services, slug)
}

func (c *Catalog) LocationBySlug(slug string) (types.Location, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return find(c.collections.Locations, slug)
}

func (c *Catalog) BlogPostBySlug(slug string) (types.BlogPost, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return find(c.collections.BlogPosts, slug)
}

// RecentBlogPosts returns up to count posts, newest first.
func (c *Catalog) RecentBlogPosts(count int) []types.BlogPost {
	if count <= 0 {
		count = DefaultRecentCount
	}
	c.mu.RLock()
	posts := slices.Clone(c.collections.BlogPosts)
	c.mu.RUnlock()

	slices.SortStableFunc(posts, func(a, b types.BlogPost) int {
		switch {
		case a.PublishedAt > b.PublishedAt:
			return -1
		case a.PublishedAt < b.PublishedAt:
			return 1
		}
		return 0
	})
	if len(posts) > count {
		posts = posts[:count]
	}
	return posts
}

type record interface {
	types.Service | types.Location | types.BlogPost
	RecordSlug() string
}

func decode[T record](object map[string]any, slug string) (T, error) {
	r, err := types.DecodeObject[T](object)
	if err != nil {
		return r, fmt.Errorf("decode %s: %w", slug, err)
	}
	if r.RecordSlug() != slug {
		return r, fmt.Errorf("%w: key slug %q does not match record slug %q", ErrUnsupported, slug, r.RecordSlug())
	}
	return r, nil
}

func upsert[T record](list []T, r T) []T {
	for i := range list {
		if list[i].RecordSlug() == r.RecordSlug() {
			out := slices.Clone(list)
			out[i] = r
			return out
		}
	}
	return append(slices.Clip(list), r)
}

func remove[T record](list []T, slug string) []T {
	return slices.DeleteFunc(slices.Clone(list), func(r T) bool {
		return r.RecordSlug() == slug
	})
}

func find[T record](list []T, slug string) (T, error) {
	for _, r := range list {
		if r.RecordSlug() == slug {
			return r, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s", ErrNotFound, slug)
}

func clone(c types.Collections) types.Collections {
	return types.Collections{
		Services:  slices.Clone(c.Services),
		Locations: slices.Clone(c.Locations),
		BlogPosts: slices.Clone(c.BlogPosts),
	}
}
