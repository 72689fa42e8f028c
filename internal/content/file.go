package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/BRO3886/sitesearch/internal/types"
)

const (
	servicesFile  = "services.yaml"
	locationsFile = "locations.yaml"
	blogFile      = "blog.yaml"
	blogDir       = "blog"
)

// FileSource reads content from a directory laid out as
//
//	services.yaml
//	locations.yaml
//	blog.yaml
//	blog/*.md
//
// Missing files are treated as empty collections; a missing directory is an error.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) Load(ctx context.Context) (types.Collections, error) {
	if info, err := os.Stat(s.Dir); err != nil {
		return types.Collections{}, fmt.Errorf("content dir: %w", err)
	} else if !info.IsDir() {
		return types.Collections{}, fmt.Errorf("content dir %s is not a directory", s.Dir)
	}

	var c types.Collections
	if err := readYAML(filepath.Join(s.Dir, servicesFile), &c.Services); err != nil {
		return c, err
	}
	if err := readYAML(filepath.Join(s.Dir, locationsFile), &c.Locations); err != nil {
		return c, err
	}
	if err := readYAML(filepath.Join(s.Dir, blogFile), &c.BlogPosts); err != nil {
		return c, err
	}

	posts, err := s.markdownPosts(ctx)
	if err != nil {
		return c, err
	}
	c.BlogPosts = append(c.BlogPosts, posts...)
	return c, nil
}

func (s *FileSource) markdownPosts(ctx context.Context) ([]types.BlogPost, error) {
	paths, err := filepath.Glob(filepath.Join(s.Dir, blogDir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	posts := make([]types.BlogPost, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		post, err := ParseMarkdownPost(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if post.Slug == "" {
			post.Slug = slugify(trimExt(filepath.Base(path)))
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
