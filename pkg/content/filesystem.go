package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/site-feed/pkg/filesystem"
)

func init() {
	MustRegister("filesystem", func(opts Options) (Source, error) {
		return NewDirSource(opts.ContentDir), nil
	})
}

// DirSource reads collections from <root>/<collection>/ on disk.
type DirSource struct {
	root string
}

// NewDirSource creates a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// Root returns the content directory.
func (s *DirSource) Root() string {
	return s.root
}

// ListEntries walks the collection directory in lexical order.
func (s *DirSource) ListEntries(ctx context.Context, collection string) ([]Entry, error) {
	dir := filepath.Join(s.root, collection)
	if err := filesystem.RequireDir(dir); err != nil {
		return nil, unavailable(collection, err)
	}

	slog.Debug("Reading collection from disk", "collection", collection, "dir", dir)

	var entries []Entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if path != dir && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isEntryFile(name) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		entry, err := readEntry(path, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		entry.Collection = collection
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, unavailable(collection, err)
	}

	if err := checkUnique(collection, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func isEntryFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".mdx", ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func readEntry(path, rel string) (Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read %s: %w", rel, err)
	}

	var (
		data map[string]any
		body string
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return Entry{}, fmt.Errorf("failed to parse %s: %w", rel, err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &data); err != nil {
			return Entry{}, fmt.Errorf("failed to parse %s: %w", rel, err)
		}
	default:
		rest, err := frontmatter.Parse(bytes.NewReader(raw), &data)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to parse front matter in %s: %w", rel, err)
		}
		body = string(rest)
	}

	data = normalizeData(data)

	slug := SlugFromPath(rel)
	if v, ok := data["slug"]; ok {
		s, isString := v.(string)
		if !isString || strings.TrimSpace(s) == "" {
			return Entry{}, fmt.Errorf("%s: slug must be a non-empty string", rel)
		}
		slug = strings.Trim(s, "/")
		delete(data, "slug")
	}
	if slug == "" {
		return Entry{}, fmt.Errorf("%s: cannot derive a slug", rel)
	}

	return Entry{Slug: slug, Data: data, Body: body}, nil
}
