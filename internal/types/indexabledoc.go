package types

import (
	"fmt"
	"strings"
)

type IndexableDocument struct {
	Id        string
	IndexName string
	DeIndex   bool
	Data      map[string]any
}

// GetIndexableDoc turns a content event into the document mirrored in the
// external search index. It returns nil for events that name no record.
func GetIndexableDoc(event ContentEvent) (*IndexableDocument, error) {
	subject := event.Subject()
	if subject == nil {
		return nil, nil
	}

	_, kind, slug, err := ParseKey(subject.Key)
	if err != nil {
		return nil, err
	}

	doc := &IndexableDocument{
		Id:        EscapeSlug(slug),
		IndexName: getIndexName(kind),
	}

	if event.Op == OpDelete {
		doc.DeIndex = true
		return doc, nil
	}

	object := subject.Value.Object
	if object == nil {
		return nil, fmt.Errorf("object is nil for %s", subject.Key)
	}

	data, err := searchDocument(kind, slug, object)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", subject.Key, err)
	}
	doc.Data = data
	return doc, nil
}

func searchDocument(kind Kind, slug string, object map[string]any) (map[string]any, error) {
	var title, excerpt, body string
	switch kind {
	case KindService:
		s, err := DecodeObject[Service](object)
		if err != nil {
			return nil, err
		}
		title, excerpt, body = s.Title, s.Excerpt, s.Description
	case KindLocation:
		l, err := DecodeObject[Location](object)
		if err != nil {
			return nil, err
		}
		title = fmt.Sprintf("%s, %s", l.City, l.State)
		excerpt = l.County
		parts := append([]string{l.Description}, l.Neighborhoods...)
		body = strings.Join(append(parts, l.ZipCodes...), " ")
	case KindBlog:
		p, err := DecodeObject[BlogPost](object)
		if err != nil {
			return nil, err
		}
		title, excerpt, body = p.Title, p.Excerpt, p.Content.Text()
	}
	return map[string]any{
		"kind":    string(kind),
		"slug":    slug,
		"title":   title,
		"excerpt": excerpt,
		"body":    body,
		"url":     kind.URL(slug),
	}, nil
}

func getIndexName(kind Kind) string {
	var indexName string
	switch kind {
	case KindService:
		indexName = "services"
	case KindLocation:
		indexName = "locations"
	case KindBlog:
		indexName = "blog"
	default:
		indexName = "default"
	}
	return indexName
}
