package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lepinkainen/site-feed/pkg/filesystem"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}

func TestDirSource_ListEntries(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"gamedev/space-game.md":     "---\ntitle: Space Game Devlog\ndescription: Week one\n---\nShipped the *thrusters*.\n",
		"gamedev/another.md":        "---\ntitle: Another\nslug: custom-slug\n---\n",
		"gamedev/data.yaml":         "title: Yaml Entry\ncategories: [devlog, godot]\n",
		"gamedev/sub/index.md":      "---\ntitle: Nested\n---\n",
		"gamedev/_draft.md":         "---\ntitle: Draft\n---\n",
		"gamedev/.hidden.md":        "---\ntitle: Hidden\n---\n",
		"gamedev/_drafts/x.md":      "---\ntitle: Draft in dir\n---\n",
		"gamedev/notes.txt":         "not an entry",
		"writing/hello.json":        `{"title": "Hello", "pubDate": "2024-01-02"}`,
		"writing/no-frontmatter.md": "# Just markdown\n",
	})

	src := NewDirSource(root)
	ctx := context.Background()

	entries, err := src.ListEntries(ctx, "gamedev")
	if err != nil {
		t.Fatalf("ListEntries(gamedev) error = %v", err)
	}

	var slugs []string
	for _, e := range entries {
		slugs = append(slugs, e.Slug)
		if e.Collection != "gamedev" {
			t.Errorf("entry %s has collection %q", e.Slug, e.Collection)
		}
	}
	want := []string{"custom-slug", "data", "space-game", "sub"}
	if strings.Join(slugs, ",") != strings.Join(want, ",") {
		t.Fatalf("slugs = %v, want %v", slugs, want)
	}

	if _, ok := entries[0].Data["slug"]; ok {
		t.Error("slug key should be removed from the payload")
	}
	if got := entries[2].Data["title"]; got != "Space Game Devlog" {
		t.Errorf("title = %v, want %q", got, "Space Game Devlog")
	}
	if !strings.Contains(entries[2].Body, "Shipped the *thrusters*.") {
		t.Errorf("body = %q, want markdown body", entries[2].Body)
	}
	if cats, ok := entries[1].Data["categories"].([]any); !ok || len(cats) != 2 {
		t.Errorf("categories = %#v, want two values", entries[1].Data["categories"])
	}

	entries, err = src.ListEntries(ctx, "writing")
	if err != nil {
		t.Fatalf("ListEntries(writing) error = %v", err)
	}
	if len(entries) != 2 || entries[0].Slug != "hello" || entries[1].Slug != "no-frontmatter" {
		t.Fatalf("writing entries = %+v", entries)
	}
	if len(entries[1].Data) != 0 {
		t.Errorf("no-frontmatter data = %v, want empty", entries[1].Data)
	}
}

func TestDirSource_EmptyCollection(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "writing"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries, err := NewDirSource(root).ListEntries(context.Background(), "writing")
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("ListEntries() = %v, want none", entries)
	}
}

func TestDirSource_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		cause error
	}{
		{
			name:  "missing collection",
			files: map[string]string{"gamedev/a.md": "---\ntitle: A\n---\n"},
			cause: filesystem.ErrDirNotFound,
		},
		{
			name:  "malformed front matter",
			files: map[string]string{"writing/bad.md": "---\ntitle: [unclosed\n---\n"},
		},
		{
			name:  "malformed json",
			files: map[string]string{"writing/bad.json": "{"},
		},
		{
			name: "duplicate slug",
			files: map[string]string{
				"writing/post.md":   "---\ntitle: One\n---\n",
				"writing/post.yaml": "title: Two\n",
			},
			cause: ErrDuplicateSlug,
		},
		{
			name:  "non-string slug",
			files: map[string]string{"writing/a.md": "---\ntitle: A\nslug: 42\n---\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFiles(t, root, tt.files)

			_, err := NewDirSource(root).ListEntries(context.Background(), "writing")
			if !errors.Is(err, ErrSourceUnavailable) {
				t.Fatalf("ListEntries() error = %v, want ErrSourceUnavailable", err)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("ListEntries() error = %v, want cause %v", err, tt.cause)
			}
		})
	}
}
