package search

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/BRO3886/sitesearch/internal/types"
)

const (
	// MinQueryLength is the shortest trimmed query that is matched at all.
	MinQueryLength = 2
	// SnippetLength bounds service, location and blog excerpt snippets.
	SnippetLength = 150
	// ContentSnippetLength bounds snippets taken from a blog post body.
	ContentSnippetLength = 200
)

// Matcher runs substring searches over the collections of a source.
type Matcher struct {
	source CollectionSource
}

func NewMatcher(source CollectionSource) *Matcher {
	return &Matcher{source: source}
}

func (m *Matcher) Search(ctx context.Context, query string) (types.GroupedSearchResults, error) {
	if err := ctx.Err(); err != nil {
		return types.GroupedSearchResults{}, err
	}
	return SearchSite(query, m.source.Snapshot()), nil
}

// SearchSite matches query against every collection. Queries shorter than
// MinQueryLength after trimming yield an empty result.
func SearchSite(query string, c types.Collections) types.GroupedSearchResults {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < MinQueryLength {
		return types.NewGroupedSearchResults(nil, nil, nil)
	}
	return types.NewGroupedSearchResults(
		searchServices(q, c.Services),
		searchLocations(q, c.Locations),
		searchBlogPosts(q, c.BlogPosts),
	)
}

func searchServices(query string, services []types.Service) []types.SearchResult {
	lq := lower(query)
	var results []types.SearchResult
	for _, s := range services {
		var matched string
		switch {
		case contains(s.Title, lq):
			matched = s.Title
		case contains(s.Excerpt, lq):
			matched = Truncate(s.Excerpt, query, SnippetLength)
		case contains(s.Description, lq):
			matched = Truncate(s.Description, query, SnippetLength)
		default:
			continue
		}
		results = append(results, types.SearchResult{
			Kind:        types.KindService,
			Title:       s.Title,
			Excerpt:     s.Excerpt,
			URL:         types.KindService.URL(s.Slug),
			MatchedText: matched,
		})
	}
	return results
}

func searchLocations(query string, locations []types.Location) []types.SearchResult {
	lq := lower(query)
	var results []types.SearchResult
	for _, l := range locations {
		neighborhood, inNeighborhood := firstMatch(l.Neighborhoods, lq)
		var matched string
		switch {
		case contains(l.City, lq):
			matched = fmt.Sprintf("%s, %s - %s", l.City, l.State, l.County)
		case inNeighborhood:
			matched = fmt.Sprintf("Serving %s in %s", neighborhood, l.City)
		case contains(l.County, lq), contains(l.Description, lq), zipMatches(l.ZipCodes, query):
			matched = Truncate(l.Description, query, SnippetLength)
		default:
			continue
		}
		results = append(results, types.SearchResult{
			Kind:        types.KindLocation,
			Title:       fmt.Sprintf("%s, %s", l.City, l.State),
			Excerpt:     prefix(l.Description, SnippetLength),
			URL:         types.KindLocation.URL(l.Slug),
			MatchedText: matched,
		})
	}
	return results
}

func searchBlogPosts(query string, posts []types.BlogPost) []types.SearchResult {
	lq := lower(query)
	var results []types.SearchResult
	for _, p := range posts {
		var matched string
		switch {
		case contains(p.Title, lq):
			matched = p.Title
		case contains(p.Excerpt, lq):
			matched = Truncate(p.Excerpt, query, SnippetLength)
		default:
			body := p.Content.Text()
			if !contains(body, lq) {
				continue
			}
			matched = Truncate(body, query, ContentSnippetLength)
		}
		results = append(results, types.SearchResult{
			Kind:        types.KindBlog,
			Title:       p.Title,
			Excerpt:     p.Excerpt,
			URL:         types.KindBlog.URL(p.Slug),
			MatchedText: matched,
		})
	}
	return results
}

// Truncate returns at most maxLength characters of text. When query occurs in
// text (ignoring case) and text is longer than maxLength, the window is
// centered on the first occurrence and "..." marks each cut side.
func Truncate(text, query string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	runes := []rune(text)
	index := indexRunes(lowerRunes(text), lowerRunes(query))
	if index < 0 || len(runes) <= maxLength {
		return string(runes[:min(len(runes), maxLength)])
	}

	start := max(0, index-maxLength/2)
	end := min(len(runes), start+maxLength)

	excerpt := string(runes[start:end])
	if start > 0 {
		excerpt = "..." + excerpt
	}
	if end < len(runes) {
		excerpt += "..."
	}
	return excerpt
}

// zipMatches compares the query as typed; ZIP codes are digits so case does
// not apply, and a partial code such as "301" matches "30101".
func zipMatches(zips []string, query string) bool {
	for _, z := range zips {
		if strings.Contains(z, query) {
			return true
		}
	}
	return false
}

func firstMatch(values []string, lowerQuery string) (string, bool) {
	for _, v := range values {
		if contains(v, lowerQuery) {
			return v, true
		}
	}
	return "", false
}

func contains(field, lowerQuery string) bool {
	return strings.Contains(lower(field), lowerQuery)
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// lowerRunes lowercases rune by rune so that rune offsets in the result line
// up with offsets in the input.
func lowerRunes(s string) []rune {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}

func lower(s string) string {
	return string(lowerRunes(s))
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if equalRunes(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
