package testutil

import (
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
)

// ParseFeed parses an RSS or Atom document and fails the test if it is not
// a valid feed.
func ParseFeed(t *testing.T, body []byte) *gofeed.Feed {
	t.Helper()

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		t.Fatalf("Generated document is not a valid feed: %v\n%s", err, body)
	}
	return parsed
}

// ItemLinks returns the links of the parsed feed items in document order.
func ItemLinks(f *gofeed.Feed) []string {
	links := make([]string, 0, len(f.Items))
	for _, item := range f.Items {
		links = append(links, item.Link)
	}
	return links
}

// CountItems counts <item> elements in an RSS document.
func CountItems(body []byte) int {
	return strings.Count(string(body), "<item>")
}
