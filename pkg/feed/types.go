// Package feed turns loosely typed item payloads into RSS 2.0 or Atom
// documents, using the gorilla/feeds model.
package feed

import (
	"errors"
	"fmt"
	"html"
	"time"
)

// ErrSerialization is matched by every error returned from Serialize.
var ErrSerialization = errors.New("feed serialization failed")

// SerializationError names the item and field that could not be serialized.
// Index is -1 for channel-level problems.
type SerializationError struct {
	Index int
	Field string
	Err   error
}

func (e *SerializationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: %s: %v", ErrSerialization, e.Field, e.Err)
	}
	return fmt.Sprintf("%v: item %d: %s: %v", ErrSerialization, e.Index, e.Field, e.Err)
}

func (e *SerializationError) Unwrap() []error {
	return []error{ErrSerialization, e.Err}
}

// RawItem is a feed item as produced from content metadata. Recognized keys:
// title, description, pubDate, link, content, categories, author,
// commentsUrl, source, enclosure and customData. Other keys are ignored.
type RawItem map[string]any

// Item is a validated feed item.
type Item struct {
	Title       string
	Description string
	Link        string
	Content     string
	Author      string
	CommentsURL string
	PubDate     time.Time
	Categories  []string
	Source      *Source
	Enclosure   *Enclosure

	// CustomData is well-formed XML appended verbatim to the RSS <item>
	CustomData string
}

// Source is the RSS <source> of an item.
type Source struct {
	Title string
	URL   string
}

// Enclosure is an attached media file.
type Enclosure struct {
	URL    string
	Length int64
	Type   string
}

// Metadata describes the channel.
type Metadata struct {
	Title       string
	Description string
	Site        string
	Language    string
	Stylesheet  string
}

// Output is a serialized document.
type Output struct {
	Body        []byte
	ContentType string
}

// FeedType represents the type of feed to generate
type FeedType string

const (
	RSS  FeedType = "rss"
	Atom FeedType = "atom"
)

// ContentType returns the MIME type served for the feed type.
func (t FeedType) ContentType() string {
	if t == Atom {
		return "application/atom+xml"
	}
	return "application/xml"
}

// EscapeXML escapes XML special characters while avoiding double-encoding of existing HTML entities
func EscapeXML(s string) string {
	s = html.UnescapeString(s)
	return html.EscapeString(s)
}
