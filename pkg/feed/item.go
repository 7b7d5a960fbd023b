package feed

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/site-feed/pkg/urlutils"
)

var (
	errWrongType = errors.New("wrong type")
	errMissing   = errors.New("required")
)

// dateLayouts are tried in order for string pubDate values. Numeric values
// are Unix milliseconds.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 02 2006",
	"Jan 2 2006",
	"January 2 2006",
	"January 2, 2006",
}

// ParseItems validates raw items and resolves their links against site.
func ParseItems(site *url.URL, raw []RawItem) ([]Item, error) {
	items := make([]Item, 0, len(raw))
	for i, r := range raw {
		item, err := ParseItem(site, r)
		if err != nil {
			var serr *SerializationError
			if errors.As(err, &serr) {
				serr.Index = i
			}
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ParseItem converts one raw item. The returned error is a *SerializationError
// with Index 0; ParseItems fills in the real position.
func ParseItem(site *url.URL, raw RawItem) (Item, error) {
	fail := func(field string, err error) (Item, error) {
		return Item{}, &SerializationError{Field: field, Err: err}
	}

	var (
		item Item
		err  error
	)

	if item.Title, err = stringField(raw, "title"); err != nil {
		return fail("title", err)
	}
	if item.Description, err = stringField(raw, "description"); err != nil {
		return fail("description", err)
	}
	if strings.TrimSpace(item.Title) == "" && strings.TrimSpace(item.Description) == "" {
		return fail("title", fmt.Errorf("%w: an item needs a title or a description", errMissing))
	}

	if item.Content, err = stringField(raw, "content"); err != nil {
		return fail("content", err)
	}
	if item.Author, err = stringField(raw, "author"); err != nil {
		return fail("author", err)
	}
	if item.CommentsURL, err = stringField(raw, "commentsUrl"); err != nil {
		return fail("commentsUrl", err)
	}
	if item.CustomData, err = stringField(raw, "customData"); err != nil {
		return fail("customData", err)
	}
	if err := checkFragment(item.CustomData); err != nil {
		return fail("customData", err)
	}

	link, err := stringField(raw, "link")
	if err != nil {
		return fail("link", err)
	}
	if link != "" {
		if item.Link, err = urlutils.ResolveURL(site, link); err != nil {
			return fail("link", err)
		}
	}

	if v, ok := raw["pubDate"]; ok && v != nil {
		if item.PubDate, err = parseDate(v); err != nil {
			return fail("pubDate", err)
		}
	}

	if v, ok := raw["categories"]; ok && v != nil {
		if item.Categories, err = stringList(v); err != nil {
			return fail("categories", err)
		}
	}

	if v, ok := raw["source"]; ok && v != nil {
		if item.Source, err = parseSource(v); err != nil {
			return fail("source", err)
		}
	}

	if v, ok := raw["enclosure"]; ok && v != nil {
		if item.Enclosure, err = parseEnclosure(site, v); err != nil {
			return fail("enclosure", err)
		}
	}

	return item, nil
}

// checkFragment fails unless s is a sequence of well-formed XML nodes.
func checkFragment(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	dec := xml.NewDecoder(strings.NewReader("<fragment>" + s + "</fragment>"))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("malformed XML: %w", err)
		}
	}
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %T", errWrongType, v)
	}
	return s, nil
}

func parseDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", t)
	case int:
		return time.UnixMilli(int64(t)).UTC(), nil
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return time.Time{}, fmt.Errorf("invalid timestamp %v", t)
		}
		return time.UnixMilli(int64(t)).UTC(), nil
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", t, err)
		}
		return time.UnixMilli(ms).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%w: expected date, got %T", errWrongType, v)
	}
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected list of strings, found %T", errWrongType, e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected list of strings, got %T", errWrongType, v)
	}
}

func asMap(v any) (map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case RawItem:
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected object, got %T", errWrongType, v)
	}
}

func parseSource(v any) (*Source, error) {
	m, err := asMap(v)
	if err != nil {
		return nil, err
	}
	title, err := stringField(m, "title")
	if err != nil {
		return nil, fmt.Errorf("title: %w", err)
	}
	u, err := stringField(m, "url")
	if err != nil {
		return nil, fmt.Errorf("url: %w", err)
	}
	if !urlutils.IsValidURL(u) {
		return nil, fmt.Errorf("url: %w: absolute URL", errMissing)
	}
	return &Source{Title: title, URL: u}, nil
}

func parseEnclosure(site *url.URL, v any) (*Enclosure, error) {
	m, err := asMap(v)
	if err != nil {
		return nil, err
	}

	u, err := stringField(m, "url")
	if err != nil {
		return nil, fmt.Errorf("url: %w", err)
	}
	if u == "" {
		return nil, fmt.Errorf("url: %w", errMissing)
	}
	if u, err = urlutils.ResolveURL(site, u); err != nil {
		return nil, fmt.Errorf("url: %w", err)
	}

	typ, err := stringField(m, "type")
	if err != nil {
		return nil, fmt.Errorf("type: %w", err)
	}
	if typ == "" {
		return nil, fmt.Errorf("type: %w", errMissing)
	}

	raw, ok := m["length"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("length: %w", errMissing)
	}
	length, err := toLength(raw)
	if err != nil {
		return nil, fmt.Errorf("length: %w", err)
	}

	return &Enclosure{URL: u, Length: length, Type: typ}, nil
}

func toLength(v any) (int64, error) {
	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int64:
		n = t
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("length %d out of range", t)
		}
		n = int64(t)
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("length %v is not an integer", t)
		}
		n = int64(t)
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, err
		}
		n = i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", errWrongType, t)
		}
		n = i
	default:
		return 0, fmt.Errorf("%w: expected number, got %T", errWrongType, v)
	}
	if n < 0 {
		return 0, fmt.Errorf("length %d is negative", n)
	}
	return n, nil
}
