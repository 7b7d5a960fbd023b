package preview

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lepinkainen/site-feed/pkg/feed"
)

func sampleItem() feed.Item {
	return feed.Item{
		Title:       "Space Game Devlog",
		Description: "<p>Progress on the <em>space</em> game</p>",
		Link:        "https://example.com/gamedev/space-game/",
		PubDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Categories:  []string{"devlog", "space"},
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{name: "fits", text: "short text", width: 20, want: "short text"},
		{name: "wraps", text: "one two three four", width: 9, want: "one two\nthree\nfour"},
		{name: "empty", text: "", width: 10, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapText(tt.text, tt.width); got != tt.want {
				t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestSection(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{link: "https://example.com/gamedev/space-game/", want: "gamedev"},
		{link: "https://example.com/writing/hello/", want: "writing"},
		{link: "https://example.com/", want: ""},
		{link: "", want: ""},
	}

	for _, tt := range tests {
		if got := Section(tt.link); got != tt.want {
			t.Errorf("Section(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}

func TestHTMLToText(t *testing.T) {
	got := HTMLToText("<p>Hello <strong>world</strong></p><p>Again &amp; again</p>")
	if !strings.Contains(got, "Hello world") {
		t.Errorf("HTMLToText() = %q, want it to contain %q", got, "Hello world")
	}
	if !strings.Contains(got, "Again & again") {
		t.Errorf("HTMLToText() = %q, want unescaped entity", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("HTMLToText() = %q, still contains markup", got)
	}
}

func TestFormatCompactListItem(t *testing.T) {
	got := FormatCompactListItem(0, sampleItem())
	want := " 1. [gamedev ] 2024-03-01  Space Game Devlog"
	if got != want {
		t.Errorf("FormatCompactListItem() = %q, want %q", got, want)
	}

	undated := FormatCompactListItem(9, feed.Item{Description: "<b>Only</b> a description"})
	if !strings.Contains(undated, "10.") || !strings.Contains(undated, "----------") {
		t.Errorf("FormatCompactListItem() = %q, want index and placeholder date", undated)
	}
	if !strings.Contains(undated, "Only a description") {
		t.Errorf("FormatCompactListItem() = %q, want description fallback", undated)
	}
}

func TestFormatDetailedItem(t *testing.T) {
	now := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	got := FormatDetailedItem(sampleItem(), now)

	for _, want := range []string{
		"Title: Space Game Devlog",
		"Link: https://example.com/gamedev/space-game/",
		"Published: 2024-03-01 (2 days ago)",
		"Categories: devlog, space",
		"Progress on the space game",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatDetailedItem() missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Author:") {
		t.Errorf("FormatDetailedItem() printed empty author:\n%s", got)
	}
}

func TestFormatXMLItem(t *testing.T) {
	meta := feed.Metadata{Title: "My Site", Description: "Posts", Site: "https://example.com"}
	got := FormatXMLItem(sampleItem(), meta)

	if !strings.HasPrefix(got, "<item>") {
		t.Errorf("FormatXMLItem() should start with <item>, got:\n%s", got)
	}
	if !strings.Contains(got, "<title>Space Game Devlog</title>") {
		t.Errorf("FormatXMLItem() missing title:\n%s", got)
	}
	if strings.Contains(got, "<channel>") {
		t.Errorf("FormatXMLItem() leaked channel elements:\n%s", got)
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{ago: 10 * time.Second, want: "just now"},
		{ago: time.Minute, want: "1 minute ago"},
		{ago: 5 * time.Minute, want: "5 minutes ago"},
		{ago: time.Hour, want: "1 hour ago"},
		{ago: 3 * time.Hour, want: "3 hours ago"},
		{ago: 24 * time.Hour, want: "1 day ago"},
		{ago: 30 * 24 * time.Hour, want: "2024-02-09"},
		{ago: -time.Hour, want: "scheduled"},
	}

	for _, tt := range tests {
		if got := formatTimeAgo(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("formatTimeAgo(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestModelNavigation(t *testing.T) {
	items := []feed.Item{sampleItem(), {Title: "Second"}, {Title: "Third"}}
	var m tea.Model = NewModel(items, feed.Metadata{Title: "My Site"})

	press := func(key string) {
		var msg tea.KeyMsg
		switch key {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}
		m, _ = m.Update(msg)
	}

	press("j")
	press("j")
	press("j")
	if got := m.(Model).cursor; got != 2 {
		t.Fatalf("cursor after three downs = %d, want 2", got)
	}

	press("g")
	if got := m.(Model).cursor; got != 0 {
		t.Fatalf("cursor after home = %d, want 0", got)
	}

	press("enter")
	if got := m.(Model).viewMode; got != DetailViewMode {
		t.Fatalf("mode after enter = %v, want DetailViewMode", got)
	}
	if !strings.Contains(m.View(), "Space Game Devlog") {
		t.Errorf("detail view missing selected item:\n%s", m.View())
	}

	press("x")
	if got := m.(Model).viewMode; got != XMLViewMode {
		t.Fatalf("mode after x = %v, want XMLViewMode", got)
	}

	press("esc")
	if got := m.(Model).viewMode; got != ListViewMode {
		t.Fatalf("mode after esc = %v, want ListViewMode", got)
	}
	if !strings.Contains(m.View(), "Feed Preview - My Site (3 items)") {
		t.Errorf("list view header missing:\n%s", m.View())
	}
}
