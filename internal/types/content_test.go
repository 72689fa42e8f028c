package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestContentText(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		want    string
	}{
		{
			name:    "zero value",
			content: Content{},
			want:    "",
		},
		{
			name:    "plain content is returned as-is",
			content: PlainContent("  # Heading\n\nBody  "),
			want:    "  # Heading\n\nBody  ",
		},
		{
			name: "spans and blocks joined with single spaces",
			content: StructuredContent(
				TextBlock{Spans: []Span{{Text: "Mold"}, {Text: "grows fast."}}},
				TextBlock{Spans: []Span{{Text: "Call us."}}},
			),
			want: "Mold grows fast. Call us.",
		},
		{
			name: "image and embed blocks contribute nothing",
			content: StructuredContent(
				TextBlock{Spans: []Span{{Text: "before"}}},
				ImageBlock{Ref: "image-abc", Alt: "musty basement"},
				EmbedBlock{Type: "code"},
				TextBlock{Spans: []Span{{Text: "after"}}},
			),
			want: "before after",
		},
		{
			name:    "structured without blocks",
			content: StructuredContent(),
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.content.Text())
		})
	}
}

func TestContentUnmarshalJSON(t *testing.T) {
	t.Run("string becomes plain content", func(t *testing.T) {
		var c Content
		require.NoError(t, json.Unmarshal([]byte(`"hello"`), &c))
		assert.False(t, c.IsStructured())
		assert.Equal(t, "hello", c.Text())
	})

	t.Run("portable text becomes structured content", func(t *testing.T) {
		raw := `[
			{"_type":"block","style":"h2","children":[{"_type":"span","text":"Signs"},{"_type":"span","text":"of mold"}]},
			{"_type":"image","asset":{"_ref":"image-1"},"alt":"wall"},
			{"_type":"block","children":[{"_type":"span","text":"musty odors"}]}
		]`
		var c Content
		require.NoError(t, json.Unmarshal([]byte(raw), &c))
		require.True(t, c.IsStructured())
		require.Len(t, c.Blocks(), 3)
		assert.Equal(t, ImageBlock{Ref: "image-1", Alt: "wall"}, c.Blocks()[1])
		assert.Equal(t, "Signs of mold musty odors", c.Text())
	})

	t.Run("null is empty", func(t *testing.T) {
		var c Content
		require.NoError(t, json.Unmarshal([]byte(`null`), &c))
		assert.True(t, c.IsEmpty())
	})

	t.Run("object is rejected", func(t *testing.T) {
		var c Content
		assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &c))
	})
}

func TestContentMarshalJSONRoundTrip(t *testing.T) {
	post := BlogPost{
		Slug:  "mold",
		Title: "Mold",
		Content: StructuredContent(
			TextBlock{Style: "normal", Spans: []Span{{Text: "one"}, {Text: "two", Marks: []string{"strong"}}}},
			ImageBlock{Ref: "image-9"},
		),
	}

	data, err := json.Marshal(post)
	require.NoError(t, err)

	var decoded BlogPost
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, post.Content.Text(), decoded.Content.Text())
	assert.Equal(t, post.Content.Blocks(), decoded.Content.Blocks())
}

func TestContentUnmarshalYAML(t *testing.T) {
	src := `
- slug: plain
  title: Plain
  content: |
    Water everywhere.
- slug: blocks
  title: Blocks
  content:
    - _type: block
      children:
        - _type: span
          text: Smoke
        - _type: span
          text: odor
`
	var posts []BlogPost
	require.NoError(t, yaml.Unmarshal([]byte(src), &posts))
	require.Len(t, posts, 2)

	assert.False(t, posts[0].Content.IsStructured())
	assert.Equal(t, "Water everywhere.\n", posts[0].Content.Text())

	assert.True(t, posts[1].Content.IsStructured())
	assert.Equal(t, "Smoke odor", posts[1].Content.Text())
}
