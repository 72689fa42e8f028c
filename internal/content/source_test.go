package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BRO3886/sitesearch/internal/types"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestFileSourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "services.yaml"), `
- slug: water-damage-restoration
  title: Water Damage Restoration
  excerpt: Fast water extraction.
  description: Water damage can strike at any moment.
`)
	writeFile(t, filepath.Join(dir, "locations.yaml"), `
- slug: acworth
  city: Acworth
  state: GA
  county: Cobb County
  neighborhoods: [Lake Acworth, Brookstone]
  zipCodes: ["30101", "30102"]
`)
	writeFile(t, filepath.Join(dir, "blog.yaml"), `
- slug: plain-post
  title: Plain Post
  content: "# Heading\n\nBody"
`)
	writeFile(t, filepath.Join(dir, "blog", "Storm Season Prep.md"), "---\ntitle: Storm Season Prep\n---\nBoard up windows.\n")

	c, err := NewFileSource(dir).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, c.Services, 1)
	assert.Equal(t, "Water Damage Restoration", c.Services[0].Title)

	require.Len(t, c.Locations, 1)
	assert.Equal(t, []string{"30101", "30102"}, c.Locations[0].ZipCodes)

	require.Len(t, c.BlogPosts, 2)
	assert.Equal(t, "# Heading\n\nBody", c.BlogPosts[0].Content.Text())
	assert.False(t, c.BlogPosts[0].Content.IsStructured())
	assert.Equal(t, "storm-season-prep", c.BlogPosts[1].Slug)
	assert.True(t, c.BlogPosts[1].Content.IsStructured())
}

func TestFileSourceMissingFilesAreEmpty(t *testing.T) {
	c, err := NewFileSource(t.TempDir()).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c.Services)
	assert.Empty(t, c.Locations)
	assert.Empty(t, c.BlogPosts)
}

func TestFileSourceErrors(t *testing.T) {
	t.Run("missing dir", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "nope")).Load(context.Background())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "services.yaml"), "- slug: [unclosed")
		_, err := NewFileSource(dir).Load(context.Background())
		assert.Error(t, err)
	})
}

func TestSampleContentLoads(t *testing.T) {
	c, err := NewFileSource(filepath.Join("..", "..", "content")).Load(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, c.Services)
	assert.NotEmpty(t, c.Locations)
	assert.NotEmpty(t, c.BlogPosts)
}

const cmsResponse = `{
  "ms": 4,
  "result": {
    "services": [
      {"_id": "svc-1", "title": "Mold Remediation", "slug": {"_type": "slug", "current": "mold-remediation"},
       "excerpt": "Certified mold removal.",
       "description": [{"_type": "block", "children": [{"_type": "span", "text": "Musty"}, {"_type": "span", "text": "odors."}]}]}
    ],
    "locations": [
      {"_id": "loc-1", "city": "Smyrna", "state": "GA", "county": "Cobb County", "zipCodes": ["30080"],
       "description": [{"_type": "block", "children": [{"_type": "span", "text": "Near the river."}]}]}
    ],
    "blogPosts": [
      {"_id": "post-1", "title": "Storm Prep", "slug": "storm-prep", "author": {"name": "Dana"},
       "publishedAt": "2024-05-01T13:00:00Z",
       "content": [{"_type": "block", "children": [{"_type": "span", "text": "Clear gutters."}]}]},
      {"_id": "post-2", "title": "Untitled Draft"}
    ]
  }
}`

func TestCMSSourceLoad(t *testing.T) {
	var gotPath, gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cmsResponse))
	}))
	defer srv.Close()

	src := NewCMSSource(srv.URL+"/v2021-10-21/", "production", "secret", true, time.Second)
	src.now = func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }

	c, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/v2021-10-21/data/query/production", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Contains(t, gotQuery, `_type == "service"`)

	require.Len(t, c.Services, 1)
	assert.Equal(t, types.Service{
		Slug:        "mold-remediation",
		Title:       "Mold Remediation",
		Excerpt:     "Certified mold removal.",
		Description: "Musty odors.",
	}, c.Services[0])

	require.Len(t, c.Locations, 1)
	assert.Equal(t, "smyrna", c.Locations[0].Slug)
	assert.Equal(t, "Near the river.", c.Locations[0].Description)

	require.Len(t, c.BlogPosts, 2)
	assert.Equal(t, "storm-prep", c.BlogPosts[0].Slug)
	assert.Equal(t, "Dana", c.BlogPosts[0].Author)
	assert.Equal(t, "2024-05-01", c.BlogPosts[0].PublishedAt)
	assert.Equal(t, 1, c.BlogPosts[0].ReadTime)
	assert.Equal(t, DefaultCategory, c.BlogPosts[0].Category)

	draft := c.BlogPosts[1]
	assert.Equal(t, "untitled-draft", draft.Slug)
	assert.Equal(t, "", draft.Excerpt)
	assert.Equal(t, DefaultAuthor, draft.Author)
	assert.Equal(t, "2025-01-02", draft.PublishedAt)
	assert.Equal(t, 5, draft.ReadTime)
}

func TestCMSSourceErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		_, err := NewCMSSource("", "production", "", false, time.Second).Load(context.Background())
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewCMSSource(srv.URL, "production", "", true, time.Second).Load(context.Background())
		assert.ErrorContains(t, err, "500")
	})
}

type stubSource struct {
	c     types.Collections
	err   error
	calls int
}

func (s *stubSource) Load(context.Context) (types.Collections, error) {
	s.calls++
	return s.c, s.err
}

func TestWithFallback(t *testing.T) {
	local := types.Collections{
		Services:  []types.Service{{Slug: "local-svc"}},
		Locations: []types.Location{{Slug: "local-loc"}},
		BlogPosts: []types.BlogPost{{Slug: "local-post"}},
	}
	nop := zerolog.Nop()

	t.Run("primary complete", func(t *testing.T) {
		remote := types.Collections{
			Services:  []types.Service{{Slug: "cms-svc"}},
			Locations: []types.Location{{Slug: "cms-loc"}},
			BlogPosts: []types.BlogPost{{Slug: "cms-post"}},
		}
		fallback := &stubSource{c: local}
		got, err := WithFallback(&stubSource{c: remote}, fallback, nop).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, remote, got)
		assert.Zero(t, fallback.calls)
	})

	t.Run("empty collections filled per collection", func(t *testing.T) {
		remote := types.Collections{BlogPosts: []types.BlogPost{{Slug: "cms-post"}}}
		got, err := WithFallback(&stubSource{c: remote}, &stubSource{c: local}, nop).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, local.Services, got.Services)
		assert.Equal(t, local.Locations, got.Locations)
		assert.Equal(t, remote.BlogPosts, got.BlogPosts)
	})

	t.Run("primary error", func(t *testing.T) {
		got, err := WithFallback(&stubSource{err: errors.New("timeout")}, &stubSource{c: local}, nop).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, local, got)
	})

	t.Run("not configured", func(t *testing.T) {
		got, err := WithFallback(&stubSource{err: ErrNotConfigured}, &stubSource{c: local}, nop).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, local, got)
	})

	t.Run("nil primary", func(t *testing.T) {
		got, err := WithFallback(nil, &stubSource{c: local}, nop).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, local, got)
	})

	t.Run("fallback error surfaces", func(t *testing.T) {
		_, err := WithFallback(&stubSource{err: errors.New("down")}, &stubSource{err: os.ErrNotExist}, nop).Load(context.Background())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
