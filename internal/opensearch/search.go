package opensearch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	external "github.com/opensearch-project/opensearch-go/v2"
	api "github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/rs/zerolog"

	"github.com/BRO3886/sitesearch/internal/config"
	"github.com/BRO3886/sitesearch/internal/search"
	"github.com/BRO3886/sitesearch/internal/types"
)

// MaxHits caps the documents returned by Query.
const MaxHits = 50

var indexNames = []string{"services", "locations", "blog", "default"}

const indexSettings = `{
	"settings": {
		"index": {
			"number_of_shards": 1,
			"number_of_replicas": 0
		}
	},
	"mappings": {
		"properties": {
			"kind":    {"type": "keyword"},
			"slug":    {"type": "keyword"},
			"url":     {"type": "keyword"},
			"title":   {"type": "text", "fields": {"raw": {"type": "keyword", "ignore_above": 8191}}},
			"excerpt": {"type": "text", "fields": {"raw": {"type": "keyword", "ignore_above": 8191}}},
			"body":    {"type": "text", "fields": {"raw": {"type": "keyword", "ignore_above": 8191}}}
		}
	}
}`

type Client struct {
	client        *external.Client
	prefix        string
	buff          []types.IndexableDocument
	flushInterval time.Duration
	buffSize      int
	m             sync.Mutex
	// flushMu orders bulk writes and deletes on the cluster.
	flushMu sync.Mutex
	log     zerolog.Logger
}

var _ search.Mirror = (*Client)(nil)

func New(ctx context.Context, c *config.Config, log zerolog.Logger) (*Client, error) {
	client, err := external.NewClient(external.Config{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		Addresses:  c.Opensearch.URLs,
		Username:   c.Opensearch.Username,
		Password:   c.Opensearch.Password,
		MaxRetries: c.Opensearch.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	s := &Client{
		client:        client,
		prefix:        c.Opensearch.Index.Prefix,
		buff:          make([]types.IndexableDocument, 0, c.Opensearch.Index.BuffSize),
		flushInterval: time.Second * time.Duration(c.Opensearch.Index.FlushInterval),
		buffSize:      c.Opensearch.Index.BuffSize,
		log:           log.With().Str("component", "opensearch").Logger(),
	}

	for _, name := range indexNames {
		if err := s.checkAndCreateIndex(ctx, s.indexName(name)); err != nil {
			return nil, err
		}
	}

	go s.startFlushTicker(ctx)

	return s, nil
}

func (s *Client) indexName(name string) string {
	if name == "" {
		name = "default"
	}
	return s.prefix + "-" + name
}

func (s *Client) checkAndCreateIndex(ctx context.Context, index string) error {
	if resp, err := s.client.Indices.Exists([]string{index}, s.client.Indices.Exists.WithContext(ctx)); err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}

	req := api.IndicesCreateRequest{
		Index: index,
		Body:  strings.NewReader(indexSettings),
	}

	resp, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.IsError() {
		return fmt.Errorf("failed to create index %s: %s %s", index, resp.Status(), string(body))
	}

	if resp.HasWarnings() {
		s.log.Warn().Strs("warnings", resp.Warnings()).Msg("create index")
	}

	s.log.Info().Str("index", index).Msg("index created")

	return nil
}

// Index buffers doc until the next flush. A full buffer flushes immediately.
func (s *Client) Index(ctx context.Context, doc types.IndexableDocument) error {
	s.m.Lock()
	s.buff = append(s.buff, doc)
	full := s.buffSize > 0 && len(s.buff) >= s.buffSize
	s.m.Unlock()

	if full {
		return s.Flush(ctx)
	}
	return nil
}

func (s *Client) startFlushTicker(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.log.Error().Err(err).Msg("failed to flush documents")
			}
		case <-ctx.Done():
			return
		}
	}
}

// Flush sends the buffered documents in one bulk request. Documents from a
// failed request are put back at the head of the buffer.
func (s *Client) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.m.Lock()
	docs := s.buff
	s.buff = make([]types.IndexableDocument, 0, s.buffSize)
	s.m.Unlock()

	if len(docs) == 0 {
		return nil
	}

	if err := s.bulk(ctx, docs); err != nil {
		s.m.Lock()
		s.buff = append(docs, s.buff...)
		s.m.Unlock()
		return err
	}
	return nil
}

func (s *Client) bulk(ctx context.Context, docs []types.IndexableDocument) error {
	s.log.Debug().Int("count", len(docs)).Msg("flushing documents")

	reqBody, skipped := buildBulkBody(s.prefix, docs)
	for _, id := range skipped {
		s.log.Warn().Str("id", id).Msg("skipping document")
	}
	if reqBody == "" {
		return nil
	}

	req := api.BulkRequest{
		Body: strings.NewReader(reqBody),
	}

	resp, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.IsError() {
		return fmt.Errorf("failed to flush documents: %s %s", resp.Status(), string(body))
	}

	var result bulkResponse
	if err := json.Unmarshal(body, &result); err == nil && result.Errors {
		for _, item := range result.failedItems() {
			s.log.Error().
				Str("id", item.ID).
				Int("status", item.Status).
				Str("error", string(item.Error)).
				Msg("document rejected")
		}
	}

	s.log.Info().Int("count", len(docs)-len(skipped)).Msg("flushed documents")

	return nil
}

// DeIndex drops any pending write for doc and deletes it from its index. It
// waits for an in-flight flush so the delete always lands last.
func (s *Client) DeIndex(ctx context.Context, doc types.IndexableDocument) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.m.Lock()
	s.buff = dropPending(s.buff, doc)
	s.m.Unlock()

	index := s.indexName(doc.IndexName)
	req := api.DeleteRequest{
		Index:      index,
		DocumentID: doc.Id,
	}

	resp, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		s.log.Debug().Str("index", index).Str("id", doc.Id).Msg("document already absent")
		return nil
	}
	if resp.IsError() {
		return fmt.Errorf("failed to delete document: %s %s", resp.Status(), string(body))
	}

	s.log.Info().Str("index", index).Str("id", doc.Id).Msg("document deleted")

	return nil
}

// Query runs a case-insensitive substring match over the mirrored title,
// excerpt and body fields of every site index.
func (s *Client) Query(ctx context.Context, query string) ([]search.Document, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < search.MinQueryLength {
		return []search.Document{}, nil
	}

	body, err := buildQueryBody(query, MaxHits)
	if err != nil {
		return nil, err
	}

	req := api.SearchRequest{
		Index: []string{s.prefix + "-*"},
		Body:  strings.NewReader(body),
	}

	resp, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to search: %s %s", resp.Status(), string(raw))
	}

	var result searchResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]search.Document, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}
