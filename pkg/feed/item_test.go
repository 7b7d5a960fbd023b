package feed

import (
	"errors"
	"math"
	"net/url"
	"testing"
	"time"
)

func mustSite(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", raw, err)
	}
	return u
}

func TestParseItem(t *testing.T) {
	site := mustSite(t, "https://example.com")
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     RawItem
		check   func(t *testing.T, item Item)
		field   string
		wantErr bool
	}{
		{
			name: "title and link",
			raw:  RawItem{"title": "Space Game Devlog", "link": "/gamedev/space-game/"},
			check: func(t *testing.T, item Item) {
				if item.Title != "Space Game Devlog" {
					t.Errorf("Title = %q", item.Title)
				}
				if item.Link != "https://example.com/gamedev/space-game/" {
					t.Errorf("Link = %q", item.Link)
				}
			},
		},
		{
			name: "description only",
			raw:  RawItem{"description": "No title here"},
			check: func(t *testing.T, item Item) {
				if item.Link != "" {
					t.Errorf("Link = %q, want empty", item.Link)
				}
			},
		},
		{
			name: "time pubDate",
			raw:  RawItem{"title": "x", "pubDate": march},
			check: func(t *testing.T, item Item) {
				if !item.PubDate.Equal(march) {
					t.Errorf("PubDate = %v, want %v", item.PubDate, march)
				}
			},
		},
		{
			name: "date-only string pubDate",
			raw:  RawItem{"title": "x", "pubDate": "2024-03-01"},
			check: func(t *testing.T, item Item) {
				if !item.PubDate.Equal(march) {
					t.Errorf("PubDate = %v, want %v", item.PubDate, march)
				}
			},
		},
		{
			name: "epoch milliseconds pubDate",
			raw:  RawItem{"title": "x", "pubDate": march.UnixMilli()},
			check: func(t *testing.T, item Item) {
				if !item.PubDate.Equal(march) {
					t.Errorf("PubDate = %v, want %v", item.PubDate, march)
				}
			},
		},
		{
			name: "epoch milliseconds pubDate from JSON",
			raw:  RawItem{"title": "x", "pubDate": float64(march.UnixMilli())},
			check: func(t *testing.T, item Item) {
				if !item.PubDate.Equal(march) {
					t.Errorf("PubDate = %v, want %v", item.PubDate, march)
				}
			},
		},
		{
			name: "epoch milliseconds pubDate as int",
			raw:  RawItem{"title": "x", "pubDate": int(march.UnixMilli())},
			check: func(t *testing.T, item Item) {
				if !item.PubDate.Equal(march) {
					t.Errorf("PubDate = %v, want %v", item.PubDate, march)
				}
			},
		},
		{
			name: "long form pubDate",
			raw:  RawItem{"title": "x", "pubDate": "March 1, 2024"},
			check: func(t *testing.T, item Item) {
				if !item.PubDate.Equal(march) {
					t.Errorf("PubDate = %v, want %v", item.PubDate, march)
				}
			},
		},
		{
			name: "categories from any slice",
			raw:  RawItem{"title": "x", "categories": []any{"devlog", "godot"}},
			check: func(t *testing.T, item Item) {
				if len(item.Categories) != 2 || item.Categories[1] != "godot" {
					t.Errorf("Categories = %v", item.Categories)
				}
			},
		},
		{
			name: "source and enclosure",
			raw: RawItem{
				"title":     "x",
				"source":    map[string]any{"title": "Elsewhere", "url": "https://elsewhere.example/rss.xml"},
				"enclosure": map[any]any{"url": "/media/ep1.mp3", "length": float64(1234), "type": "audio/mpeg"},
			},
			check: func(t *testing.T, item Item) {
				if item.Source == nil || item.Source.Title != "Elsewhere" {
					t.Errorf("Source = %+v", item.Source)
				}
				if item.Enclosure == nil || item.Enclosure.URL != "https://example.com/media/ep1.mp3" || item.Enclosure.Length != 1234 {
					t.Errorf("Enclosure = %+v", item.Enclosure)
				}
			},
		},
		{
			name: "customData kept verbatim",
			raw:  RawItem{"title": "x", "customData": "<itunes:explicit>no</itunes:explicit>"},
			check: func(t *testing.T, item Item) {
				if item.CustomData != "<itunes:explicit>no</itunes:explicit>" {
					t.Errorf("CustomData = %q", item.CustomData)
				}
			},
		},
		{
			name: "unknown keys ignored",
			raw:  RawItem{"title": "x", "heroImage": "/img.png", "draft": false},
		},
		{name: "missing title and description", raw: RawItem{"pubDate": "2024-03-01"}, field: "title", wantErr: true},
		{name: "blank title", raw: RawItem{"title": "   "}, field: "title", wantErr: true},
		{name: "non-string title", raw: RawItem{"title": 42}, field: "title", wantErr: true},
		{name: "bad pubDate", raw: RawItem{"title": "x", "pubDate": "someday"}, field: "pubDate", wantErr: true},
		{name: "bool pubDate", raw: RawItem{"title": "x", "pubDate": true}, field: "pubDate", wantErr: true},
		{name: "non-finite pubDate", raw: RawItem{"title": "x", "pubDate": math.Inf(1)}, field: "pubDate", wantErr: true},
		{name: "categories not a list", raw: RawItem{"title": "x", "categories": "devlog"}, field: "categories", wantErr: true},
		{name: "source without url", raw: RawItem{"title": "x", "source": map[string]any{"title": "t"}}, field: "source", wantErr: true},
		{name: "enclosure without length", raw: RawItem{"title": "x", "enclosure": map[string]any{"url": "/a.mp3", "type": "audio/mpeg"}}, field: "enclosure", wantErr: true},
		{name: "negative enclosure length", raw: RawItem{"title": "x", "enclosure": map[string]any{"url": "/a.mp3", "type": "audio/mpeg", "length": -1}}, field: "enclosure", wantErr: true},
		{name: "malformed customData", raw: RawItem{"title": "x", "customData": "<a><b></a>"}, field: "customData", wantErr: true},
		{name: "customData wrong type", raw: RawItem{"title": "x", "customData": 3}, field: "customData", wantErr: true},
		{name: "link wrong type", raw: RawItem{"title": "x", "link": []any{"/a/"}}, field: "link", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := ParseItem(site, tt.raw)
			if tt.wantErr {
				var serr *SerializationError
				if !errors.As(err, &serr) {
					t.Fatalf("ParseItem() error = %v, want *SerializationError", err)
				}
				if serr.Field != tt.field {
					t.Errorf("Field = %q, want %q", serr.Field, tt.field)
				}
				if !errors.Is(err, ErrSerialization) {
					t.Errorf("errors.Is(err, ErrSerialization) = false")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseItem() unexpected error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, item)
			}
		})
	}
}

func TestParseItems_ReportsIndex(t *testing.T) {
	site := mustSite(t, "https://example.com")
	raw := []RawItem{
		{"title": "ok"},
		{"title": "also ok"},
		{"link": "/writing/untitled/"},
	}

	_, err := ParseItems(site, raw)
	var serr *SerializationError
	if !errors.As(err, &serr) {
		t.Fatalf("ParseItems() error = %v, want *SerializationError", err)
	}
	if serr.Index != 2 {
		t.Errorf("Index = %d, want 2", serr.Index)
	}
}

func TestToLength(t *testing.T) {
	tests := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{in: 10, want: 10},
		{in: int64(11), want: 11},
		{in: uint64(12), want: 12},
		{in: float64(13), want: 13},
		{in: "14", want: 14},
		{in: 1.5, wantErr: true},
		{in: "abc", wantErr: true},
		{in: true, wantErr: true},
	}

	for _, tt := range tests {
		got, err := toLength(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("toLength(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("toLength(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
