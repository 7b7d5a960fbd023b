package content

import (
	"context"
	"errors"
	"testing"
)

func TestSourceError_Unwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := unavailable("writing", cause)

	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("errors.Is(%v, ErrSourceUnavailable) = false", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(%v, cause) = false", err)
	}

	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("errors.As(%v, *SourceError) = false", err)
	}
	if srcErr.Collection != "writing" {
		t.Errorf("Collection = %q, want %q", srcErr.Collection, "writing")
	}
}

func TestNormalize(t *testing.T) {
	in := map[string]any{
		"source": map[any]any{"title": "Elsewhere", "url": "https://elsewhere.example"},
		"tags":   []any{"go", map[any]any{"nested": true}},
	}

	out := normalizeData(in)

	source, ok := out["source"].(map[string]any)
	if !ok {
		t.Fatalf("source = %T, want map[string]any", out["source"])
	}
	if source["title"] != "Elsewhere" {
		t.Errorf("source.title = %v, want Elsewhere", source["title"])
	}

	tags := out["tags"].([]any)
	if _, ok := tags[1].(map[string]any); !ok {
		t.Errorf("tags[1] = %T, want map[string]any", tags[1])
	}

	if got := normalizeData(nil); got == nil || len(got) != 0 {
		t.Errorf("normalizeData(nil) = %v, want empty map", got)
	}
}

func TestMemorySource(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource().
		Set("gamedev", Entry{Slug: "space-game", Data: map[string]any{"title": "Space Game Devlog"}}).
		Set("writing").
		Fail("broken", errors.New("boom"))

	entries, err := src.ListEntries(ctx, "gamedev")
	if err != nil {
		t.Fatalf("ListEntries(gamedev) error = %v", err)
	}
	if len(entries) != 1 || entries[0].Collection != "gamedev" || entries[0].Slug != "space-game" {
		t.Errorf("ListEntries(gamedev) = %+v", entries)
	}

	entries, err = src.ListEntries(ctx, "writing")
	if err != nil || len(entries) != 0 {
		t.Errorf("ListEntries(writing) = %v, %v; want empty, nil", entries, err)
	}

	tests := []struct {
		collection string
		cause      error
	}{
		{collection: "missing", cause: ErrCollectionNotFound},
		{collection: "broken"},
	}
	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			_, err := src.ListEntries(ctx, tt.collection)
			if !errors.Is(err, ErrSourceUnavailable) {
				t.Errorf("ListEntries(%s) error = %v, want ErrSourceUnavailable", tt.collection, err)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("ListEntries(%s) error = %v, want %v", tt.collection, err, tt.cause)
			}
		})
	}
}

func TestCheckUnique(t *testing.T) {
	entries := []Entry{{Slug: "a"}, {Slug: "b"}, {Slug: "a"}}
	err := checkUnique("gamedev", entries)
	if !errors.Is(err, ErrDuplicateSlug) || !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("checkUnique() error = %v, want duplicate slug", err)
	}
	if err := checkUnique("gamedev", entries[:2]); err != nil {
		t.Errorf("checkUnique() unexpected error = %v", err)
	}
}
