package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/BRO3886/sitesearch/internal/search"
	"github.com/BRO3886/sitesearch/internal/types"
)

var (
	Accent     = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))
	Muted      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	Bold       = lipgloss.NewStyle().Bold(true)
	AccentBold = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true)

	indent = lipgloss.NewStyle().PaddingLeft(2)
)

type section struct {
	heading string
	results []types.SearchResult
}

// Results writes grouped search results for query to w. Empty groups are
// skipped.
func Results(w io.Writer, query string, r types.GroupedSearchResults) error {
	var b strings.Builder
	if r.Total == 0 {
		b.WriteString(Muted.Render(fmt.Sprintf("No results for %q", strings.TrimSpace(query))))
		b.WriteByte('\n')
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(Bold.Render(fmt.Sprintf("%d results for %q", r.Total, strings.TrimSpace(query))))
	b.WriteByte('\n')

	sections := []section{
		{"Services", r.Services},
		{"Locations", r.Locations},
		{"Blog", r.Blog},
	}
	for _, s := range sections {
		if len(s.results) == 0 {
			continue
		}
		b.WriteByte('\n')
		b.WriteString(AccentBold.Render(fmt.Sprintf("%s (%d)", s.heading, len(s.results))))
		b.WriteByte('\n')
		for _, res := range s.results {
			b.WriteString(indent.Render(Bold.Render(res.Title) + "  " + Accent.Render(res.URL)))
			b.WriteByte('\n')
			if res.MatchedText != "" {
				b.WriteString(indent.Render(Muted.Render(res.MatchedText)))
				b.WriteByte('\n')
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Documents writes raw documents returned by a search mirror, one per line,
// with their fields in key order.
func Documents(w io.Writer, docs []search.Document) error {
	var b strings.Builder
	if len(docs) == 0 {
		b.WriteString(Muted.Render("No documents"))
		b.WriteByte('\n')
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, doc := range docs {
		title, _ := doc["title"].(string)
		url, _ := doc["url"].(string)
		b.WriteString(Bold.Render(title) + "  " + Accent.Render(url))
		b.WriteByte('\n')

		keys := make([]string, 0, len(doc))
		for k := range doc {
			if k == "title" || k == "url" || k == "body" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(indent.Render(Muted.Render(fmt.Sprintf("%s: %v", k, doc[k]))))
			b.WriteByte('\n')
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
