// Package preview shows assembled feed items in a Bubble Tea TUI.
package preview

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/lepinkainen/site-feed/pkg/feed"
)

var itemRegex = regexp.MustCompile(`(?s)<item>.*?</item>`)

// wrapText wraps text to the specified width, breaking at word boundaries
func wrapText(text string, width int) string {
	if width <= 0 {
		width = 70
	}

	var result strings.Builder
	var line strings.Builder
	lineLen := 0

	words := strings.Fields(text)
	for i, word := range words {
		wordLen := len([]rune(word))

		if lineLen > 0 && lineLen+1+wordLen > width {
			result.WriteString(line.String())
			result.WriteString("\n")
			line.Reset()
			lineLen = 0
		}

		if lineLen > 0 {
			line.WriteString(" ")
			lineLen++
		}

		line.WriteString(word)
		lineLen += wordLen

		if i == len(words)-1 {
			result.WriteString(line.String())
		}
	}

	return result.String()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// Section returns the first path segment of an item link, e.g. "gamedev".
func Section(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	section, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	return section
}

// HTMLToText strips markup, keeping paragraph breaks.
func HTMLToText(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "p", "br", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "pre", "blockquote":
				b.WriteString("\n")
			}
		}
	}
}

// FormatCompactListItem formats a single feed item in compact list format
// Example: " 1. [gamedev ] 2024-03-01  Space Game Devlog"
func FormatCompactListItem(index int, item feed.Item) string {
	date := "----------"
	if !item.PubDate.IsZero() {
		date = item.PubDate.Format("2006-01-02")
	}

	title := item.Title
	if title == "" {
		title = HTMLToText(item.Description)
	}

	return fmt.Sprintf("%2d. [%-8s] %s  %s", index+1, Section(item.Link), date, truncate(title, 70))
}

// FormatDetailedItem formats a single feed item with all metadata
func FormatDetailedItem(item feed.Item, now time.Time) string {
	var b strings.Builder

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	fmt.Fprintf(&b, "Link: %s\n", item.Link)

	if item.CommentsURL != "" {
		fmt.Fprintf(&b, "Comments: %s\n", item.CommentsURL)
	}
	if item.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", item.Author)
	}
	if !item.PubDate.IsZero() {
		fmt.Fprintf(&b, "Published: %s (%s)\n", item.PubDate.Format("2006-01-02"), formatTimeAgo(item.PubDate, now))
	}
	if len(item.Categories) > 0 {
		fmt.Fprintf(&b, "Categories: %s\n", strings.Join(item.Categories, ", "))
	}
	if item.Source != nil {
		fmt.Fprintf(&b, "Source: %s <%s>\n", item.Source.Title, item.Source.URL)
	}
	if item.Enclosure != nil {
		fmt.Fprintf(&b, "Enclosure: %s (%s, %d bytes)\n", item.Enclosure.URL, item.Enclosure.Type, item.Enclosure.Length)
	}

	if item.Description != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", wrapText(HTMLToText(item.Description), 70))
	}

	if item.Content != "" {
		content := truncate(HTMLToText(item.Content), 1000)
		fmt.Fprintf(&b, "\nContent:\n%s\n", wrapText(content, 70))
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// FormatXMLItem renders a one-item feed and returns its <item> element
func FormatXMLItem(item feed.Item, meta feed.Metadata) string {
	out, err := feed.NewGenerator(feed.RSS).Render(meta, []feed.Item{item})
	if err != nil {
		return fmt.Sprintf("Error generating feed: %s", err)
	}

	match := itemRegex.Find(out.Body)
	if match == nil {
		return "No item found in generated feed"
	}

	return wrapXMLContent(string(match), 80)
}

// wrapXMLContent wraps only the content inside tags, not the tags themselves
func wrapXMLContent(xml string, width int) string {
	var result strings.Builder

	for _, line := range strings.Split(xml, "\n") {
		if len(line) <= width {
			result.WriteString(line)
			result.WriteString("\n")
			continue
		}

		remaining := line
		for len(remaining) > width {
			breakPoint := width
			for i := width; i > width-20 && i > 0; i-- {
				if remaining[i] == ' ' || remaining[i] == '>' {
					breakPoint = i + 1
					break
				}
			}
			result.WriteString(remaining[:breakPoint])
			result.WriteString("\n")
			remaining = remaining[breakPoint:]
		}
		if remaining != "" {
			result.WriteString(remaining)
			result.WriteString("\n")
		}
	}

	return result.String()
}

// formatTimeAgo formats t relative to now as a human-readable "X ago" string
func formatTimeAgo(t, now time.Time) string {
	duration := now.Sub(t)

	switch {
	case duration < 0:
		return "scheduled"
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
