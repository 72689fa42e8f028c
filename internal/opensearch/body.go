package opensearch

import (
	"encoding/json"
	"strings"

	"github.com/BRO3886/sitesearch/internal/search"
	"github.com/BRO3886/sitesearch/internal/types"
)

// queryFields hold whole values up to 8191 characters. Longer bodies are only
// reachable through the phrase match on the analyzed body field.
var queryFields = []string{"title.raw", "excerpt.raw", "body.raw"}

type bulkAction struct {
	Index bulkTarget `json:"index"`
}

type bulkTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

type bulkResponse struct {
	Errors bool                         `json:"errors"`
	Items  []map[string]bulkItemOutcome `json:"items"`
}

type bulkItemOutcome struct {
	ID     string          `json:"_id"`
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error,omitempty"`
}

func (r bulkResponse) failedItems() []bulkItemOutcome {
	var out []bulkItemOutcome
	for _, item := range r.Items {
		for _, outcome := range item {
			if outcome.Status >= 300 {
				out = append(out, outcome)
			}
		}
	}
	return out
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source search.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// buildBulkBody renders docs as NDJSON index actions. Documents without data
// or that fail to encode are returned in skipped.
func buildBulkBody(prefix string, docs []types.IndexableDocument) (string, []string) {
	var (
		b       strings.Builder
		skipped []string
	)
	for _, doc := range docs {
		if len(doc.Data) == 0 {
			skipped = append(skipped, doc.Id)
			continue
		}
		data, err := json.Marshal(doc.Data)
		if err != nil {
			skipped = append(skipped, doc.Id)
			continue
		}
		name := doc.IndexName
		if name == "" {
			name = "default"
		}
		action, err := json.Marshal(bulkAction{Index: bulkTarget{Index: prefix + "-" + name, ID: doc.Id}})
		if err != nil {
			skipped = append(skipped, doc.Id)
			continue
		}
		b.Write(action)
		b.WriteByte('\n')
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String(), skipped
}

// buildQueryBody matches query anywhere inside any of the query fields.
func buildQueryBody(query string, size int) (string, error) {
	pattern := "*" + escapeWildcard(query) + "*"
	should := make([]map[string]any, 0, len(queryFields)+1)
	for _, field := range queryFields {
		should = append(should, map[string]any{
			"wildcard": map[string]any{
				field: map[string]any{
					"value":            pattern,
					"case_insensitive": true,
				},
			},
		})
	}
	should = append(should, map[string]any{
		"match_phrase": map[string]any{
			"body": query,
		},
	})
	body := map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"should":               should,
				"minimum_should_match": 1,
			},
		},
	}
	out, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}

// dropPending removes buffered writes that target the same document as doc.
func dropPending(buff []types.IndexableDocument, doc types.IndexableDocument) []types.IndexableDocument {
	out := buff[:0]
	for _, pending := range buff {
		if pending.Id == doc.Id && pending.IndexName == doc.IndexName {
			continue
		}
		out = append(out, pending)
	}
	return out
}
