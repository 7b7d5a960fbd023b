// Package content reads the site's content collections. Every backend
// satisfies Source and reports enumeration failures as ErrSourceUnavailable.
package content

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSourceUnavailable is returned when a collection cannot be enumerated
	ErrSourceUnavailable = errors.New("content source unavailable")
	// ErrCollectionNotFound is the cause when a backend has no such collection
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrDuplicateSlug is the cause when two entries in a collection share a slug
	ErrDuplicateSlug = errors.New("duplicate slug")
)

// Entry is one item of a content collection.
type Entry struct {
	Collection string
	Slug       string
	Data       map[string]any
	Body       string
}

// Source lists the entries of a named collection in collection order.
type Source interface {
	ListEntries(ctx context.Context, collection string) ([]Entry, error)
}

// Options configures the registered backends.
type Options struct {
	ContentDir string
	Database   string
	RemoteURL  string
	Timeout    time.Duration
	MaxRetries int
}

// SourceError reports a collection that could not be read. It matches both
// ErrSourceUnavailable and the underlying cause.
type SourceError struct {
	Collection string
	Err        error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("collection %q: %v", e.Collection, ErrSourceUnavailable)
	}
	return fmt.Sprintf("collection %q: %v: %v", e.Collection, ErrSourceUnavailable, e.Err)
}

func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSourceUnavailable}
	}
	return []error{ErrSourceUnavailable, e.Err}
}

func unavailable(collection string, err error) error {
	return &SourceError{Collection: collection, Err: err}
}

// checkUnique fails on the first slug that appears twice.
func checkUnique(collection string, entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Slug]; ok {
			return unavailable(collection, fmt.Errorf("%w: %s", ErrDuplicateSlug, e.Slug))
		}
		seen[e.Slug] = struct{}{}
	}
	return nil
}

// normalize converts the map[interface{}]interface{} values produced by YAML
// decoders into map[string]any, recursively.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

func normalizeData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return normalize(data).(map[string]any)
}
