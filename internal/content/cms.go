package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BRO3886/sitesearch/internal/types"
)

// exportQuery fetches all three collections in one round trip, in the order
// the site lists them.
const exportQuery = `{
  "services": *[_type == "service"] | order(featured desc, title asc) {
    _id, title, shortTitle, slug, excerpt, description
  },
  "locations": *[_type == "location"] | order(featured desc, city asc) {
    _id, city, slug, state, county, zipCodes, neighborhoods, description,
    responseTime, projectsCompleted, featured
  },
  "blogPosts": *[_type == "blogPost"] | order(publishedAt desc) {
    _id, title, slug, author, publishedAt, excerpt, content, category
  }
}`

// CMSSource queries the headless CMS HTTP API and maps its documents onto
// the site's record types.
type CMSSource struct {
	// BaseURL is the versioned API root, e.g. https://<project>.api.sanity.io/v2021-10-21.
	BaseURL    string
	Dataset    string
	Token      string
	Configured bool
	Client     *http.Client

	now func() time.Time
}

func NewCMSSource(baseURL, dataset, token string, configured bool, timeout time.Duration) *CMSSource {
	return &CMSSource{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Dataset:    dataset,
		Token:      token,
		Configured: configured,
		Client:     &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func (s *CMSSource) Load(ctx context.Context) (types.Collections, error) {
	if !s.Configured {
		return types.Collections{}, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/data/query/%s?query=%s", s.BaseURL, url.PathEscape(s.Dataset), url.QueryEscape(exportQuery))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.Collections{}, err
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return types.Collections{}, fmt.Errorf("cms query: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Collections{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return types.Collections{}, fmt.Errorf("cms query: %s %s", resp.Status, string(body))
	}

	var envelope struct {
		Result cmsExport `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return types.Collections{}, fmt.Errorf("cms query: decode: %w", err)
	}
	return envelope.Result.collections(s.now()), nil
}

type cmsExport struct {
	Services  []cmsService  `json:"services"`
	Locations []cmsLocation `json:"locations"`
	BlogPosts []cmsBlogPost `json:"blogPosts"`
}

// cmsSlug accepts both {"current": "x"} and a bare "x".
type cmsSlug string

func (s *cmsSlug) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = cmsSlug(v)
		return nil
	}
	var v struct {
		Current string `json:"current"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = cmsSlug(v.Current)
	return nil
}

// cmsAuthor accepts a name or an author object.
type cmsAuthor string

func (a *cmsAuthor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*a = cmsAuthor(v)
		return nil
	}
	var v struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = cmsAuthor(v.Name)
	return nil
}

type cmsService struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	ShortTitle  string        `json:"shortTitle"`
	Slug        cmsSlug       `json:"slug"`
	Excerpt     string        `json:"excerpt"`
	Description types.Content `json:"description"`
}

type cmsLocation struct {
	ID                string        `json:"_id"`
	City              string        `json:"city"`
	Slug              cmsSlug       `json:"slug"`
	State             string        `json:"state"`
	County            string        `json:"county"`
	ZipCodes          []string      `json:"zipCodes"`
	Neighborhoods     []string      `json:"neighborhoods"`
	Description       types.Content `json:"description"`
	ResponseTime      string        `json:"responseTime"`
	ProjectsCompleted int           `json:"projectsCompleted"`
	Featured          bool          `json:"featured"`
}

type cmsBlogPost struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	Slug        cmsSlug       `json:"slug"`
	Author      cmsAuthor     `json:"author"`
	PublishedAt string        `json:"publishedAt"`
	Excerpt     string        `json:"excerpt"`
	Content     types.Content `json:"content"`
	Category    string        `json:"category"`
}

func (e cmsExport) collections(now time.Time) types.Collections {
	c := types.Collections{
		Services:  make([]types.Service, 0, len(e.Services)),
		Locations: make([]types.Location, 0, len(e.Locations)),
		BlogPosts: make([]types.BlogPost, 0, len(e.BlogPosts)),
	}
	for _, s := range e.Services {
		c.Services = append(c.Services, types.Service{
			Slug:        slugOr(s.Slug, s.Title, s.ID),
			Title:       s.Title,
			ShortTitle:  s.ShortTitle,
			Excerpt:     s.Excerpt,
			Description: s.Description.Text(),
		})
	}
	for _, l := range e.Locations {
		c.Locations = append(c.Locations, types.Location{
			Slug:              slugOr(l.Slug, l.City, l.ID),
			City:              l.City,
			State:             l.State,
			County:            l.County,
			Featured:          l.Featured,
			Description:       l.Description.Text(),
			Neighborhoods:     l.Neighborhoods,
			ZipCodes:          l.ZipCodes,
			ResponseTime:      l.ResponseTime,
			ProjectsCompleted: l.ProjectsCompleted,
		})
	}
	for _, p := range e.BlogPosts {
		post := types.BlogPost{
			Slug:        slugOr(p.Slug, p.Title, p.ID),
			Title:       p.Title,
			Excerpt:     p.Excerpt,
			Content:     p.Content,
			Category:    p.Category,
			Author:      string(p.Author),
			PublishedAt: publishedDate(p.PublishedAt, now),
			ReadTime:    EstimateReadTime(p.Content),
		}
		if post.Category == "" {
			post.Category = DefaultCategory
		}
		if post.Author == "" {
			post.Author = DefaultAuthor
		}
		c.BlogPosts = append(c.BlogPosts, post)
	}
	return c
}

func slugOr(s cmsSlug, name, id string) string {
	if s != "" {
		return string(s)
	}
	if name != "" {
		return slugify(name)
	}
	return id
}

func publishedDate(raw string, now time.Time) string {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC().Format(time.DateOnly)
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.Format(time.DateOnly)
	}
	return now.UTC().Format(time.DateOnly)
}
