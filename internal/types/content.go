package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Service struct {
	Slug        string `json:"slug" yaml:"slug"`
	Title       string `json:"title" yaml:"title"`
	ShortTitle  string `json:"shortTitle,omitempty" yaml:"shortTitle"`
	Excerpt     string `json:"excerpt" yaml:"excerpt"`
	Description string `json:"description" yaml:"description"`
}

func (s Service) RecordSlug() string { return s.Slug }

type Location struct {
	Slug              string   `json:"slug" yaml:"slug"`
	City              string   `json:"city" yaml:"city"`
	State             string   `json:"state" yaml:"state"`
	County            string   `json:"county" yaml:"county"`
	Featured          bool     `json:"featured" yaml:"featured"`
	Description       string   `json:"description" yaml:"description"`
	Neighborhoods     []string `json:"neighborhoods" yaml:"neighborhoods"`
	ZipCodes          []string `json:"zipCodes" yaml:"zipCodes"`
	ResponseTime      string   `json:"responseTime,omitempty" yaml:"responseTime"`
	ProjectsCompleted int      `json:"projectsCompleted,omitempty" yaml:"projectsCompleted"`
}

func (l Location) RecordSlug() string { return l.Slug }

type BlogPost struct {
	Slug     string  `json:"slug" yaml:"slug"`
	Title    string  `json:"title" yaml:"title"`
	Excerpt  string  `json:"excerpt" yaml:"excerpt"`
	Content  Content `json:"content" yaml:"content"`
	Category string  `json:"category,omitempty" yaml:"category"`
	Author   string  `json:"author,omitempty" yaml:"author"`
	// PublishedAt is an ISO date (YYYY-MM-DD) so that lexical order is date order.
	PublishedAt string `json:"publishedAt,omitempty" yaml:"publishedAt"`
	ReadTime    int    `json:"readTime,omitempty" yaml:"readTime"`
}

func (p BlogPost) RecordSlug() string { return p.Slug }

// Collections is the read-only input of a site search.
type Collections struct {
	Services  []Service
	Locations []Location
	BlogPosts []BlogPost
}

// Snapshot lets a fixed Collections value serve as its own source.
func (c Collections) Snapshot() Collections { return c }

// Block is one node of a structured rich-text document. The set of
// implementations is closed: TextBlock, ImageBlock and EmbedBlock.
type Block interface {
	blockType() string
}

// Span is an inline run of text inside a TextBlock.
type Span struct {
	Text  string
	Marks []string
}

type TextBlock struct {
	Style string
	Spans []Span
}

type ImageBlock struct {
	Ref string
	Alt string
}

// EmbedBlock holds any other non-text node (code, video, custom objects).
type EmbedBlock struct {
	Type string
}

func (TextBlock) blockType() string    { return "block" }
func (ImageBlock) blockType() string   { return "image" }
func (b EmbedBlock) blockType() string { return b.Type }

// Content is a blog body: either a plain string or a structured document.
// The zero value is empty plain content.
type Content struct {
	plain      string
	blocks     []Block
	structured bool
}

func PlainContent(s string) Content {
	return Content{plain: s}
}

func StructuredContent(blocks ...Block) Content {
	return Content{blocks: blocks, structured: true}
}

func (c Content) IsStructured() bool { return c.structured }

func (c Content) Blocks() []Block { return c.blocks }

func (c Content) IsEmpty() bool {
	if c.structured {
		return len(c.blocks) == 0
	}
	return c.plain == ""
}

// Text flattens the content into one plain string. Plain content is returned
// unchanged; for structured content the spans of every text block are joined
// with a single space, and the blocks are joined with a single space.
func (c Content) Text() string {
	if !c.structured {
		return c.plain
	}
	parts := make([]string, 0, len(c.blocks))
	for _, b := range c.blocks {
		tb, ok := b.(TextBlock)
		if !ok {
			continue
		}
		spans := make([]string, 0, len(tb.Spans))
		for _, s := range tb.Spans {
			spans = append(spans, s.Text)
		}
		parts = append(parts, strings.Join(spans, " "))
	}
	return strings.Join(parts, " ")
}

// wireBlock is the portable-text shape used by the CMS and the content files.
type wireBlock struct {
	Type     string     `json:"_type" yaml:"_type"`
	Key      string     `json:"_key,omitempty" yaml:"_key,omitempty"`
	Style    string     `json:"style,omitempty" yaml:"style,omitempty"`
	Children []wireSpan `json:"children,omitempty" yaml:"children,omitempty"`
	Asset    *wireAsset `json:"asset,omitempty" yaml:"asset,omitempty"`
	Alt      string     `json:"alt,omitempty" yaml:"alt,omitempty"`
}

type wireSpan struct {
	Type  string   `json:"_type" yaml:"_type"`
	Text  string   `json:"text" yaml:"text"`
	Marks []string `json:"marks,omitempty" yaml:"marks,omitempty"`
}

type wireAsset struct {
	Ref string `json:"_ref" yaml:"_ref"`
}

func fromWire(in []wireBlock) []Block {
	blocks := make([]Block, 0, len(in))
	for _, w := range in {
		switch w.Type {
		case "block":
			spans := make([]Span, 0, len(w.Children))
			for _, c := range w.Children {
				spans = append(spans, Span{Text: c.Text, Marks: c.Marks})
			}
			blocks = append(blocks, TextBlock{Style: w.Style, Spans: spans})
		case "image":
			img := ImageBlock{Alt: w.Alt}
			if w.Asset != nil {
				img.Ref = w.Asset.Ref
			}
			blocks = append(blocks, img)
		default:
			blocks = append(blocks, EmbedBlock{Type: w.Type})
		}
	}
	return blocks
}

func toWire(in []Block) []wireBlock {
	out := make([]wireBlock, 0, len(in))
	for _, b := range in {
		switch v := b.(type) {
		case TextBlock:
			children := make([]wireSpan, 0, len(v.Spans))
			for _, s := range v.Spans {
				children = append(children, wireSpan{Type: "span", Text: s.Text, Marks: s.Marks})
			}
			out = append(out, wireBlock{Type: "block", Style: v.Style, Children: children})
		case ImageBlock:
			out = append(out, wireBlock{Type: "image", Asset: &wireAsset{Ref: v.Ref}, Alt: v.Alt})
		case EmbedBlock:
			out = append(out, wireBlock{Type: v.Type})
		}
	}
	return out
}

func (c Content) MarshalJSON() ([]byte, error) {
	if !c.structured {
		return json.Marshal(c.plain)
	}
	return json.Marshal(toWire(c.blocks))
}

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = Content{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = PlainContent(s)
		return nil
	case data[0] == '[':
		var wire []wireBlock
		if err := json.Unmarshal(data, &wire); err != nil {
			return err
		}
		*c = StructuredContent(fromWire(wire)...)
		return nil
	}
	return fmt.Errorf("content: expected string or block list, got %q", data[:1])
}

func (c *Content) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*c = PlainContent(s)
		return nil
	case yaml.SequenceNode:
		var wire []wireBlock
		if err := node.Decode(&wire); err != nil {
			return err
		}
		*c = StructuredContent(fromWire(wire)...)
		return nil
	}
	return fmt.Errorf("content: line %d: expected string or block list", node.Line)
}
