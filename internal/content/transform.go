package content

import (
	"strings"

	goslug "github.com/gosimple/slug"

	"github.com/BRO3886/sitesearch/internal/types"
)

const (
	DefaultAuthor   = "Atlas Mitigation Team"
	DefaultCategory = "tips"

	wordsPerMinute  = 200
	defaultReadTime = 5
)

// EstimateReadTime returns whole minutes of reading at 200 words a minute,
// at least 1. Only structured content is measured; anything else gets the
// default of 5.
func EstimateReadTime(c types.Content) int {
	if !c.IsStructured() {
		return defaultReadTime
	}
	words := len(strings.Fields(c.Text()))
	return max(1, (words+wordsPerMinute-1)/wordsPerMinute)
}

func slugify(s string) string {
	slugged := goslug.Make(s)
	if slugged == "" {
		slugged = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "-"))
	}
	return slugged
}
