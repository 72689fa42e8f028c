package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/BRO3886/sitesearch/internal/catalog"
	"github.com/BRO3886/sitesearch/internal/search"
	"github.com/BRO3886/sitesearch/internal/types"
)

// Store is the read side of the content catalog.
type Store interface {
	ServiceBySlug(slug string) (types.Service, error)
	LocationBySlug(slug string) (types.Location, error)
	BlogPostBySlug(slug string) (types.BlogPost, error)
	RecentBlogPosts(count int) []types.BlogPost
}

type Handler struct {
	store    Store
	searcher search.Searcher
	mirror   search.Mirror
	log      zerolog.Logger
}

// NewHandler wires the HTTP handlers. mirror may be nil.
func NewHandler(store Store, searcher search.Searcher, mirror search.Mirror, log zerolog.Logger) *Handler {
	return &Handler{
		store:    store,
		searcher: searcher,
		mirror:   mirror,
		log:      log,
	}
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Search answers GET /api/search?q=. Short or missing queries yield the
// empty grouping, never an error.
func (h *Handler) Search(c echo.Context) error {
	results, err := h.searcher.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		h.log.Error().Err(err).Msg("search")
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, results)
}

// MirrorSearch answers GET /api/search/mirror?q= from the external index.
func (h *Handler) MirrorSearch(c echo.Context) error {
	if h.mirror == nil {
		return echo.NewHTTPError(http.StatusNotFound, "search mirror disabled")
	}
	docs, err := h.mirror.Query(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		h.log.Error().Err(err).Msg("mirror search")
		return echo.NewHTTPError(http.StatusBadGateway, "search mirror unavailable")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

func (h *Handler) Service(c echo.Context) error {
	s, err := h.store.ServiceBySlug(c.Param("slug"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) Location(c echo.Context) error {
	l, err := h.store.LocationBySlug(c.Param("slug"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) BlogPost(c echo.Context) error {
	p, err := h.store.BlogPostBySlug(c.Param("slug"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// RecentBlogPosts answers GET /api/blog?recent=N.
func (h *Handler) RecentBlogPosts(c echo.Context) error {
	count := catalog.DefaultRecentCount
	if raw := c.QueryParam("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "recent must be a positive integer")
		}
		count = n
	}
	return c.JSON(http.StatusOK, h.store.RecentBlogPosts(count))
}

func mapStoreError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
