package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	OpCreate = "c"
	OpUpdate = "u"
	OpDelete = "d"
	// OpRead marks snapshot events emitted by a full content export.
	OpRead = "r"
)

var ErrInvalidKey = errors.New("invalid content key")

// ContentEvent is a change to one content record. The key of After has the form
// "<dataset>/<kind>/<slug>"; Object carries the record for creates and updates
// and is empty for deletes. Deletes may instead name the record in Before.
type ContentEvent struct {
	ID        string `json:"id,omitempty"`
	Before    *After `json:"before"`
	After     *After `json:"after"`
	Op        string `json:"op"`
	TimeStamp int64  `json:"ts_ms"`
}

// Subject is the record the event applies to: After, or Before for a delete
// that carries no After.
func (e ContentEvent) Subject() *After {
	if e.After == nil && e.Op == OpDelete {
		return e.Before
	}
	return e.After
}

type After struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

type Value struct {
	Kind   Kind           `json:"kind"`
	Object map[string]any `json:"object"`
}

// NewUpsertEvent wraps record in a content event for the given dataset.
func NewUpsertEvent(dataset string, kind Kind, slug string, record any) (ContentEvent, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return ContentEvent{}, fmt.Errorf("marshal %s %s: %w", kind, slug, err)
	}
	var object map[string]any
	if err := json.Unmarshal(data, &object); err != nil {
		return ContentEvent{}, fmt.Errorf("unmarshal %s %s: %w", kind, slug, err)
	}
	return ContentEvent{
		ID: uuid.NewString(),
		After: &After{
			Key:   Key(dataset, kind, slug),
			Value: Value{Kind: kind, Object: object},
		},
		Op:        OpCreate,
		TimeStamp: time.Now().UnixMilli(),
	}, nil
}

func NewDeleteEvent(dataset string, kind Kind, slug string) ContentEvent {
	return ContentEvent{
		ID: uuid.NewString(),
		After: &After{
			Key:   Key(dataset, kind, slug),
			Value: Value{Kind: kind},
		},
		Op:        OpDelete,
		TimeStamp: time.Now().UnixMilli(),
	}
}

func Key(dataset string, kind Kind, slug string) string {
	return fmt.Sprintf("%s/%s/%s", dataset, kind, slug)
}

// ParseKey splits a content key. Slugs may themselves contain "/".
func ParseKey(key string) (dataset string, kind Kind, slug string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return "", "", "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	kind, err = ParseKind(parts[1])
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %s: %v", ErrInvalidKey, key, err)
	}
	slug = strings.Join(parts[2:], "/")
	if slug == "" {
		return "", "", "", fmt.Errorf("%w: empty slug in %s", ErrInvalidKey, key)
	}
	return parts[0], kind, slug, nil
}

// DecodeObject converts an event object into a typed record.
func DecodeObject[T any](object map[string]any) (T, error) {
	var record T
	data, err := json.Marshal(object)
	if err != nil {
		return record, err
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, err
	}
	return record, nil
}

// EscapeSlug makes a slug safe to use as a single path segment or document id.
func EscapeSlug(slug string) string {
	if strings.Contains(slug, "/") {
		return url.PathEscape(slug)
	}
	return slug
}
