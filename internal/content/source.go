// Package content loads the site's services, locations and blog posts from
// the CMS, falling back to the local content files.
package content

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/BRO3886/sitesearch/internal/types"
)

// ErrNotConfigured is returned by a source that has nothing to fetch from.
var ErrNotConfigured = errors.New("content source not configured")

type Source interface {
	Load(ctx context.Context) (types.Collections, error)
}

type fallbackSource struct {
	primary  Source
	fallback Source
	log      zerolog.Logger
}

// WithFallback serves each collection from primary, and from fallback when
// primary fails or returns no records for that collection.
func WithFallback(primary, fallback Source, log zerolog.Logger) Source {
	return &fallbackSource{primary: primary, fallback: fallback, log: log}
}

func (s *fallbackSource) Load(ctx context.Context) (types.Collections, error) {
	if s.primary == nil {
		return s.fallback.Load(ctx)
	}

	remote, err := s.primary.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			s.log.Debug().Msg("cms not configured, using local content")
		} else {
			s.log.Warn().Err(err).Msg("failed to fetch from cms, using local content")
		}
		return s.fallback.Load(ctx)
	}

	if len(remote.Services) > 0 && len(remote.Locations) > 0 && len(remote.BlogPosts) > 0 {
		return remote, nil
	}

	local, err := s.fallback.Load(ctx)
	if err != nil {
		return types.Collections{}, err
	}
	if len(remote.Services) == 0 {
		s.log.Info().Str("collection", "services").Msg("cms returned no records, using local content")
		remote.Services = local.Services
	}
	if len(remote.Locations) == 0 {
		s.log.Info().Str("collection", "locations").Msg("cms returned no records, using local content")
		remote.Locations = local.Locations
	}
	if len(remote.BlogPosts) == 0 {
		s.log.Info().Str("collection", "blog").Msg("cms returned no records, using local content")
		remote.BlogPosts = local.BlogPosts
	}
	return remote, nil
}
