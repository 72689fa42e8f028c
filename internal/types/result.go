package types

import "fmt"

type Kind string

const (
	KindService  Kind = "service"
	KindLocation Kind = "location"
	KindBlog     Kind = "blog"
)

// ParseKind accepts the singular kind name or its URL path segment.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "service", "services":
		return KindService, nil
	case "location", "locations":
		return KindLocation, nil
	case "blog", "post", "blogPost":
		return KindBlog, nil
	}
	return "", fmt.Errorf("unknown content kind: %q", s)
}

// Path is the URL path segment pages of this kind live under.
func (k Kind) Path() string {
	switch k {
	case KindService:
		return "services"
	case KindLocation:
		return "locations"
	}
	return "blog"
}

func (k Kind) URL(slug string) string {
	return "/" + k.Path() + "/" + slug
}

type SearchResult struct {
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	URL         string `json:"url"`
	MatchedText string `json:"matchedText"`
}

type GroupedSearchResults struct {
	Services  []SearchResult `json:"services"`
	Locations []SearchResult `json:"locations"`
	Blog      []SearchResult `json:"blog"`
	Total     int            `json:"total"`
}

// NewGroupedSearchResults groups the per-kind matches and computes the total.
// Nil lists are replaced with empty ones so the value always encodes as arrays.
func NewGroupedSearchResults(services, locations, blog []SearchResult) GroupedSearchResults {
	if services == nil {
		services = []SearchResult{}
	}
	if locations == nil {
		locations = []SearchResult{}
	}
	if blog == nil {
		blog = []SearchResult{}
	}
	return GroupedSearchResults{
		Services:  services,
		Locations: locations,
		Blog:      blog,
		Total:     len(services) + len(locations) + len(blog),
	}
}
