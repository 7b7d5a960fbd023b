package feed

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/gorilla/feeds"
)

const contentNamespace = "http://purl.org/rss/1.0/modules/content/"

// CustomRssFeed is the <rss> root with the optional content namespace
type CustomRssFeed struct {
	XMLName          xml.Name          `xml:"rss"`
	Version          string            `xml:"version,attr"`
	ContentNamespace string            `xml:"xmlns:content,attr,omitempty"`
	Channel          *CustomRssChannel `xml:"channel"`
}

// CustomRssChannel represents the RSS channel
type CustomRssChannel struct {
	Title       string           `xml:"title"`
	Link        string           `xml:"link"`
	Description string           `xml:"description"`
	Language    string           `xml:"language,omitempty"`
	Items       []*CustomRssItem `xml:"item"`
}

// CustomRssGuid represents an item guid
type CustomRssGuid struct {
	Value       string `xml:",chardata"`
	IsPermaLink string `xml:"isPermaLink,attr,omitempty"`
}

// CustomRssSource represents the channel an item came from
type CustomRssSource struct {
	URL   string `xml:"url,attr"`
	Title string `xml:",chardata"`
}

// CustomRssEnclosure represents an attached media file
type CustomRssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length string `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// CustomRssContent holds full HTML content
type CustomRssContent struct {
	XMLName xml.Name `xml:"content:encoded"`
	Content string   `xml:",cdata"`
}

// CustomRssItem represents an item with category, source and enclosure support
type CustomRssItem struct {
	Title       string              `xml:"title,omitempty"`
	Link        string              `xml:"link,omitempty"`
	Guid        *CustomRssGuid      `xml:"guid,omitempty"`
	Description string              `xml:"description,omitempty"`
	PubDate     string              `xml:"pubDate,omitempty"`
	Author      string              `xml:"author,omitempty"`
	Comments    string              `xml:"comments,omitempty"`
	Categories  []string            `xml:"category"`
	Source      *CustomRssSource    `xml:"source,omitempty"`
	Enclosure   *CustomRssEnclosure `xml:"enclosure,omitempty"`
	Content     *CustomRssContent
	CustomData  string `xml:",innerxml"`
}

// convertToCustomRss converts the gorilla/feeds RSS model and adds the fields it cannot express
func convertToCustomRss(feed *feeds.Feed, meta Metadata, items []Item) *CustomRssFeed {
	standard := (&feeds.Rss{Feed: feed}).RssFeed()

	channel := &CustomRssChannel{
		Title:       standard.Title,
		Link:        standard.Link,
		Description: standard.Description,
		Language:    meta.Language,
	}
	custom := &CustomRssFeed{
		Version: "2.0",
		Channel: channel,
	}

	for i, entry := range standard.Items {
		item := items[i]
		customItem := &CustomRssItem{
			Title:       entry.Title,
			Link:        entry.Link,
			Description: entry.Description,
			PubDate:     entry.PubDate,
			Author:      item.Author,
			Comments:    item.CommentsURL,
			Categories:  item.Categories,
			CustomData:  item.CustomData,
		}

		if item.Link != "" {
			customItem.Guid = &CustomRssGuid{Value: item.Link, IsPermaLink: "true"}
		}
		if item.Source != nil {
			customItem.Source = &CustomRssSource{URL: item.Source.URL, Title: item.Source.Title}
		}
		if item.Enclosure != nil {
			customItem.Enclosure = &CustomRssEnclosure{
				URL:    item.Enclosure.URL,
				Length: strconv.FormatInt(item.Enclosure.Length, 10),
				Type:   item.Enclosure.Type,
			}
		}
		if item.Content != "" {
			customItem.Content = &CustomRssContent{Content: item.Content}
			custom.ContentNamespace = contentNamespace
		}

		channel.Items = append(channel.Items, customItem)
	}

	return custom
}

func renderRSS(feed *feeds.Feed, meta Metadata, items []Item) ([]byte, error) {
	custom := convertToCustomRss(feed, meta, items)

	xmlData, err := xml.MarshalIndent(custom, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rss feed: %w", err)
	}

	doc := xml.Header
	if meta.Stylesheet != "" {
		doc += stylesheetInstruction(meta.Stylesheet)
	}
	return []byte(doc + string(xmlData)), nil
}
