package content

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/BRO3886/sitesearch/internal/types"
)

var errUnterminatedFrontMatter = errors.New("front matter: missing closing ---")

type frontMatter struct {
	Slug        string `yaml:"slug"`
	Title       string `yaml:"title"`
	Excerpt     string `yaml:"excerpt"`
	Category    string `yaml:"category"`
	Author      string `yaml:"author"`
	PublishedAt string `yaml:"publishedAt"`
	ReadTime    int    `yaml:"readTime"`
}

// ParseMarkdownPost reads a blog post written as markdown with an optional YAML
// front matter block. The body becomes structured content.
func ParseMarkdownPost(data []byte) (types.BlogPost, error) {
	meta, body, err := splitFrontMatter(data)
	if err != nil {
		return types.BlogPost{}, err
	}

	var fm frontMatter
	if len(meta) > 0 {
		if err := yaml.Unmarshal(meta, &fm); err != nil {
			return types.BlogPost{}, fmt.Errorf("front matter: %w", err)
		}
	}

	content := types.StructuredContent(MarkdownBlocks(body)...)
	post := types.BlogPost{
		Slug:        fm.Slug,
		Title:       fm.Title,
		Excerpt:     fm.Excerpt,
		Content:     content,
		Category:    fm.Category,
		Author:      fm.Author,
		PublishedAt: fm.PublishedAt,
		ReadTime:    fm.ReadTime,
	}
	if post.ReadTime == 0 {
		post.ReadTime = EstimateReadTime(content)
	}
	return post, nil
}

func splitFrontMatter(data []byte) (meta, body []byte, err error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return nil, data, nil
	}
	rest := data[len("---\n"):]
	if bytes.HasPrefix(rest, []byte("---\n")) {
		return nil, rest[len("---\n"):], nil
	}
	end := bytes.Index(rest, []byte("\n---\n"))
	if end < 0 {
		if bytes.HasSuffix(rest, []byte("\n---")) {
			return rest[:len(rest)-len("\n---")], nil, nil
		}
		return nil, nil, errUnterminatedFrontMatter
	}
	return rest[:end], rest[end+len("\n---\n"):], nil
}

// MarkdownBlocks converts markdown into rich-text blocks: headings, paragraphs
// and list items become text blocks, images become image blocks and code or
// raw HTML become embeds.
func MarkdownBlocks(source []byte) []types.Block {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []types.Block
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			blocks = append(blocks, inlineBlocks(v, fmt.Sprintf("h%d", v.Level), source)...)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			blocks = append(blocks, inlineBlocks(v, blockStyle(v), source)...)
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			blocks = append(blocks, types.EmbedBlock{Type: "code"})
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			blocks = append(blocks, types.EmbedBlock{Type: "html"})
			return ast.WalkSkipChildren, nil
		case *ast.ThematicBreak:
			blocks = append(blocks, types.EmbedBlock{Type: "break"})
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

func blockStyle(n ast.Node) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch v := p.(type) {
		case *ast.ListItem:
			if list, ok := v.Parent().(*ast.List); ok && list.IsOrdered() {
				return "number"
			}
			return "bullet"
		case *ast.Blockquote:
			return "blockquote"
		}
	}
	return "normal"
}

// inlineBlocks returns the text block for n's inline content followed by any
// images it contains.
func inlineBlocks(n ast.Node, style string, source []byte) []types.Block {
	var spans []types.Span
	var images []types.Block

	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || c == n {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Image:
			images = append(images, types.ImageBlock{
				Ref: string(v.Destination),
				Alt: plainText(v, source),
			})
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			spans = append(spans, types.Span{Text: string(v.URL(source))})
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if t := string(v.Segment.Value(source)); t != "" {
				spans = append(spans, types.Span{Text: t, Marks: marks(v)})
			}
		case *ast.String:
			if len(v.Value) > 0 {
				spans = append(spans, types.Span{Text: string(v.Value), Marks: marks(v)})
			}
		}
		return ast.WalkContinue, nil
	})

	var blocks []types.Block
	if len(spans) > 0 {
		blocks = append(blocks, types.TextBlock{Style: style, Spans: spans})
	}
	return append(blocks, images...)
}

func marks(n ast.Node) []string {
	var out []string
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch v := p.(type) {
		case *ast.Emphasis:
			if v.Level >= 2 {
				out = append(out, "strong")
			} else {
				out = append(out, "em")
			}
		case *ast.CodeSpan:
			out = append(out, "code")
		case *ast.Link:
			out = append(out, "link")
		}
		if p.Type() == ast.TypeBlock {
			break
		}
	}
	return out
}

func plainText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(source))
		case *ast.String:
			buf.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
