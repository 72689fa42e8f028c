package search

import (
	"context"

	"github.com/BRO3886/sitesearch/internal/types"
)

type Document map[string]any

// Searcher answers site search queries with results grouped by kind.
type Searcher interface {
	Search(ctx context.Context, query string) (types.GroupedSearchResults, error)
}

// Mirror is an external index that receives a copy of the content documents.
type Mirror interface {
	Index(ctx context.Context, doc types.IndexableDocument) error
	DeIndex(ctx context.Context, doc types.IndexableDocument) error
	Query(ctx context.Context, query string) ([]Document, error)
}

// CollectionSource yields the current content collections.
type CollectionSource interface {
	Snapshot() types.Collections
}
