package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BRO3886/sitesearch/internal/search"
	"github.com/BRO3886/sitesearch/internal/types"
)

func seed() types.Collections {
	return types.Collections{
		Services: []types.Service{
			{Slug: "water", Title: "Water Damage Restoration"},
			{Slug: "fire", Title: "Fire Damage Restoration"},
		},
		Locations: []types.Location{
			{Slug: "acworth", City: "Acworth", State: "GA"},
		},
		BlogPosts: []types.BlogPost{
			{Slug: "old", Title: "Old", PublishedAt: "2023-01-10"},
			{Slug: "new", Title: "New", PublishedAt: "2024-06-01"},
			{Slug: "mid", Title: "Mid", PublishedAt: "2023-09-15"},
		},
	}
}

func TestApplyUpsertKeepsPosition(t *testing.T) {
	c := New(seed())

	event, err := types.NewUpsertEvent("production", types.KindService, "water", types.Service{Slug: "water", Title: "Flood Cleanup"})
	require.NoError(t, err)
	require.NoError(t, c.Apply(event))

	services := c.Snapshot().Services
	require.Len(t, services, 2)
	assert.Equal(t, "Flood Cleanup", services[0].Title)
	assert.Equal(t, "fire", services[1].Slug)
}

func TestApplyUpsertAppendsNewSlug(t *testing.T) {
	c := New(seed())

	loc := types.Location{Slug: "marietta", City: "Marietta", State: "GA", Neighborhoods: []string{"East Cobb"}}
	event, err := types.NewUpsertEvent("production", types.KindLocation, loc.Slug, loc)
	require.NoError(t, err)
	require.NoError(t, c.Apply(event))

	got, err := c.LocationBySlug("marietta")
	require.NoError(t, err)
	assert.Equal(t, loc, got)
	assert.Len(t, c.Snapshot().Locations, 2)
}

func TestApplyDelete(t *testing.T) {
	c := New(seed())
	require.NoError(t, c.Apply(types.NewDeleteEvent("production", types.KindBlog, "mid")))

	_, err := c.BlogPostBySlug("mid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, c.Snapshot().BlogPosts, 2)
}

func TestApplyDeleteKeyedByBefore(t *testing.T) {
	c := New(seed())
	event := types.ContentEvent{
		Op:     types.OpDelete,
		Before: &types.After{Key: "production/service/fire"},
	}
	require.NoError(t, c.Apply(event))

	_, err := c.ServiceBySlug("fire")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, c.Snapshot().Services, 1)
}

func TestApplyIgnoresBeforeOnUpsert(t *testing.T) {
	c := New(seed())
	event := types.ContentEvent{
		Op:     types.OpUpdate,
		Before: &types.After{Key: "production/service/fire"},
	}
	require.NoError(t, c.Apply(event))
	assert.Equal(t, seed(), c.Snapshot())
}

func TestApplyRejectsBadEvents(t *testing.T) {
	c := New(seed())

	t.Run("unknown op", func(t *testing.T) {
		err := c.Apply(types.ContentEvent{Op: "x", After: &types.After{Key: "production/service/water"}})
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("slug mismatch", func(t *testing.T) {
		event, err := types.NewUpsertEvent("production", types.KindService, "water", types.Service{Slug: "other"})
		require.NoError(t, err)
		assert.ErrorIs(t, c.Apply(event), ErrUnsupported)
	})

	t.Run("bad key", func(t *testing.T) {
		err := c.Apply(types.ContentEvent{Op: types.OpCreate, After: &types.After{Key: "x"}})
		assert.ErrorIs(t, err, types.ErrInvalidKey)
	})

	t.Run("nil after is ignored", func(t *testing.T) {
		assert.NoError(t, c.Apply(types.ContentEvent{Op: types.OpDelete}))
	})

	assert.Equal(t, seed(), c.Snapshot())
}

func TestSnapshotIsIsolated(t *testing.T) {
	c := New(seed())
	snap := c.Snapshot()

	require.NoError(t, c.Apply(types.NewDeleteEvent("production", types.KindService, "water")))

	assert.Len(t, snap.Services, 2)
	assert.Len(t, c.Snapshot().Services, 1)
}

func TestRecentBlogPosts(t *testing.T) {
	c := New(seed())

	recent := c.RecentBlogPosts(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "new", recent[0].Slug)
	assert.Equal(t, "mid", recent[1].Slug)

	assert.Len(t, c.RecentBlogPosts(0), 3)
	// stored order is untouched
	assert.Equal(t, "old", c.Snapshot().BlogPosts[0].Slug)
}

func TestBySlugNotFound(t *testing.T) {
	c := New(seed())
	_, err := c.ServiceBySlug("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogFeedsMatcherConcurrently(t *testing.T) {
	c := New(seed())
	m := search.NewMatcher(c)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			got, err := m.Search(context.Background(), "restoration")
			assert.NoError(t, err)
			assert.Equal(t, len(got.Services)+len(got.Locations)+len(got.Blog), got.Total)
		}()
		go func() {
			defer wg.Done()
			event, _ := types.NewUpsertEvent("production", types.KindService, "fire", types.Service{Slug: "fire", Title: "Fire Restoration"})
			assert.NoError(t, c.Apply(event))
		}()
	}
	wg.Wait()

	got := search.SearchSite("fire restoration", c.Snapshot())
	assert.Equal(t, 1, got.Total)
}
