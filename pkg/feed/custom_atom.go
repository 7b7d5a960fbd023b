package feed

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/gorilla/feeds"
)

// CustomAtomCategory represents a category in Atom feed
type CustomAtomCategory struct {
	XMLName xml.Name `xml:"category"`
	Term    string   `xml:"term,attr"`
	Label   string   `xml:"label,attr,omitempty"`
}

// CustomAtomEntry represents an entry in a custom Atom feed
type CustomAtomEntry struct {
	XMLName    xml.Name             `xml:"entry"`
	Title      string               `xml:"title"`
	Updated    string               `xml:"updated"`
	Id         string               `xml:"id"`
	Categories []CustomAtomCategory `xml:"category"`
	Content    *feeds.AtomContent   `xml:"content,omitempty"`
	Published  string               `xml:"published,omitempty"`
	Links      []feeds.AtomLink     `xml:"link"`
	Summary    *feeds.AtomSummary   `xml:"summary,omitempty"`
	Author     *feeds.AtomAuthor    `xml:"author,omitempty"`
}

// CustomAtomFeed represents a custom Atom feed with category support
type CustomAtomFeed struct {
	XMLName  xml.Name           `xml:"feed"`
	Xmlns    string             `xml:"xmlns,attr"`
	Title    string             `xml:"title"`
	Id       string             `xml:"id"`
	Updated  string             `xml:"updated"`
	Link     *feeds.AtomLink    `xml:"link,omitempty"`
	Subtitle string             `xml:"subtitle,omitempty"`
	Entries  []*CustomAtomEntry `xml:"entry"`
}

// convertToCustomAtom converts the gorilla/feeds Atom model and attaches item categories
func convertToCustomAtom(feed *feeds.Feed, items []Item) *CustomAtomFeed {
	standard := (&feeds.Atom{Feed: feed}).AtomFeed()

	customFeed := &CustomAtomFeed{
		Xmlns:    "http://www.w3.org/2005/Atom",
		Title:    standard.Title,
		Id:       standard.Id,
		Updated:  standard.Updated,
		Link:     standard.Link,
		Subtitle: standard.Subtitle,
	}

	for i, entry := range standard.Entries {
		customEntry := &CustomAtomEntry{
			Title:     entry.Title,
			Updated:   entry.Updated,
			Id:        entry.Id,
			Content:   entry.Content,
			Published: entry.Published,
			Links:     entry.Links,
			Summary:   entry.Summary,
			Author:    entry.Author,
		}
		if customEntry.Updated == "" {
			customEntry.Updated = standard.Updated
		}
		if items[i].Link == "" {
			customEntry.Id = fmt.Sprintf("%s#item-%d", standard.Id, i)
		}

		for _, cat := range items[i].Categories {
			customEntry.Categories = append(customEntry.Categories, CustomAtomCategory{
				Term:  cat,
				Label: cat,
			})
		}

		customFeed.Entries = append(customFeed.Entries, customEntry)
	}

	return customFeed
}

func renderAtom(feed *feeds.Feed, items []Item) ([]byte, error) {
	// Atom requires <updated>; the newest item keeps it deterministic
	feed.Updated = NewestItem(items)
	if feed.Updated.IsZero() {
		feed.Updated = time.Unix(0, 0).UTC()
	}

	customFeed := convertToCustomAtom(feed, items)

	xmlData, err := xml.MarshalIndent(customFeed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal atom feed: %w", err)
	}

	return []byte(xml.Header + string(xmlData)), nil
}
