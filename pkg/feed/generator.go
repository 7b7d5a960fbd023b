package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/lepinkainen/site-feed/pkg/urlutils"
)

// Generator serializes feeds of one type.
type Generator struct {
	Type FeedType
}

// NewGenerator creates a new feed generator
func NewGenerator(feedType FeedType) *Generator {
	return &Generator{Type: feedType}
}

// ContentType is the MIME type of the documents this generator produces.
func (g *Generator) ContentType() string {
	return g.Type.ContentType()
}

// Serialize validates raw items and renders the document. Every error matches
// ErrSerialization.
func (g *Generator) Serialize(meta Metadata, raw []RawItem) (*Output, error) {
	site, err := urlutils.ParseSiteURL(meta.Site)
	if err != nil {
		return nil, &SerializationError{Index: -1, Field: "site", Err: err}
	}

	items, err := ParseItems(site, raw)
	if err != nil {
		return nil, err
	}

	return g.render(meta, site, items)
}

// Render renders already parsed items.
func (g *Generator) Render(meta Metadata, items []Item) (*Output, error) {
	site, err := urlutils.ParseSiteURL(meta.Site)
	if err != nil {
		return nil, &SerializationError{Index: -1, Field: "site", Err: err}
	}
	return g.render(meta, site, items)
}

func (g *Generator) render(meta Metadata, site *url.URL, items []Item) (*Output, error) {
	feed := Generate(meta, site, items)

	var (
		body []byte
		err  error
	)
	switch g.Type {
	case RSS, "":
		body, err = renderRSS(feed, meta, items)
	case Atom:
		body, err = renderAtom(feed, items)
	default:
		return nil, &SerializationError{Index: -1, Field: "type", Err: fmt.Errorf("unsupported feed type: %s", g.Type)}
	}
	if err != nil {
		return nil, &SerializationError{Index: -1, Field: "document", Err: err}
	}

	slog.Debug("Generated feed", "type", g.Type, "items", len(items), "bytes", len(body))
	return &Output{Body: body, ContentType: g.ContentType()}, nil
}

// Generate builds the gorilla/feeds model. The channel carries no creation
// stamp, so equal input always yields an equal document.
func Generate(meta Metadata, site *url.URL, items []Item) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       meta.Title,
		Link:        &feeds.Link{Href: site.String()},
		Description: meta.Description,
	}

	for _, item := range items {
		feedItem := &feeds.Item{
			Title:       item.Title,
			Link:        &feeds.Link{Href: item.Link},
			Description: item.Description,
			Id:          item.Link,
			Created:     item.PubDate,
			Content:     item.Content,
		}
		if item.Author != "" {
			feedItem.Author = &feeds.Author{Name: item.Author}
		}
		feed.Items = append(feed.Items, feedItem)
	}

	return feed
}

// NewestItem returns the latest publication date among items.
func NewestItem(items []Item) time.Time {
	var newest time.Time
	for _, item := range items {
		if item.PubDate.After(newest) {
			newest = item.PubDate
		}
	}
	return newest
}

func stylesheetInstruction(href string) string {
	typ := "text/css"
	if strings.HasSuffix(strings.ToLower(href), ".xsl") {
		typ = "text/xsl"
	}
	return fmt.Sprintf(`<?xml-stylesheet href="%s" type="%s"?>`, EscapeXML(href), typ) + "\n"
}
