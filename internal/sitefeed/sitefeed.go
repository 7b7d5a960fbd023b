// Package sitefeed assembles the site's RSS feed from its content collections.
package sitefeed

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/site-feed/pkg/content"
	"github.com/lepinkainen/site-feed/pkg/feed"
)

// DefaultCollections are read, in this order, when Config.Collections is empty.
var DefaultCollections = []string{"gamedev", "writing"}

// Serializer renders feed items into a document.
type Serializer interface {
	Serialize(meta feed.Metadata, items []feed.RawItem) (*feed.Output, error)
}

// Config is fixed for the lifetime of an Assembler.
type Config struct {
	Metadata    feed.Metadata
	Collections []string
	// IncludeContent renders entry bodies into the item content field.
	IncludeContent bool
}

// Assembler reads the collections and hands their items to the serializer.
type Assembler struct {
	source     content.Source
	serializer Serializer
	config     Config
}

// New creates an Assembler.
func New(source content.Source, serializer Serializer, config Config) *Assembler {
	if len(config.Collections) == 0 {
		config.Collections = DefaultCollections
	}
	config.Collections = slices.Clone(config.Collections)

	return &Assembler{
		source:     source,
		serializer: serializer,
		config:     config,
	}
}

// Collections returns the collection names in output order.
func (a *Assembler) Collections() []string {
	return slices.Clone(a.config.Collections)
}

// Metadata returns the channel metadata.
func (a *Assembler) Metadata() feed.Metadata {
	return a.config.Metadata
}

// ItemLink is the site-relative link of an entry.
func ItemLink(collection, slug string) string {
	return "/" + collection + "/" + slug + "/"
}

// ToFeedItem copies the entry payload and sets the derived link, replacing
// any link the payload carried.
func ToFeedItem(collection string, entry content.Entry) feed.RawItem {
	item := make(feed.RawItem, len(entry.Data)+1)
	maps.Copy(item, entry.Data)
	item["link"] = ItemLink(collection, entry.Slug)
	return item
}

// Items reads every collection concurrently and returns the items in
// collection order, each collection in its own order.
func (a *Assembler) Items(ctx context.Context) ([]feed.RawItem, error) {
	entries, err := a.listAll(ctx)
	if err != nil {
		return nil, err
	}

	perCollection := lo.Map(a.config.Collections, func(name string, i int) []feed.RawItem {
		return lo.Map(entries[i], func(entry content.Entry, _ int) feed.RawItem {
			return ToFeedItem(name, entry)
		})
	})
	items := lo.Flatten(perCollection)

	if a.config.IncludeContent {
		if err := addContent(items, lo.Flatten(entries)); err != nil {
			return nil, err
		}
	}

	return items, nil
}

// ProduceFeed builds the feed document. Source failures match
// content.ErrSourceUnavailable and serializer failures match
// feed.ErrSerialization; no partial document is returned.
func (a *Assembler) ProduceFeed(ctx context.Context) (*feed.Output, error) {
	items, err := a.Items(ctx)
	if err != nil {
		return nil, err
	}

	out, err := a.serializer.Serialize(a.config.Metadata, items)
	if err != nil {
		if !errors.Is(err, feed.ErrSerialization) {
			err = &feed.SerializationError{Index: -1, Field: "document", Err: err}
		}
		return nil, err
	}

	if out.ContentType == "" {
		out.ContentType = feed.RSS.ContentType()
	}

	slog.Debug("Produced feed", "items", len(items), "bytes", len(out.Body))
	return out, nil
}

func (a *Assembler) listAll(ctx context.Context) ([][]content.Entry, error) {
	results := make([][]content.Entry, len(a.config.Collections))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range a.config.Collections {
		g.Go(func() error {
			slog.Debug("Listing collection", "collection", name)

			entries, err := a.source.ListEntries(gctx, name)
			if err != nil {
				if !errors.Is(err, content.ErrSourceUnavailable) {
					err = &content.SourceError{Collection: name, Err: err}
				}
				return err
			}
			results[i] = entries
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// addContent renders markdown bodies into items that have no content of their own.
func addContent(items []feed.RawItem, entries []content.Entry) error {
	for i, entry := range entries {
		if entry.Body == "" {
			continue
		}
		if _, ok := items[i]["content"]; ok {
			continue
		}

		html, err := content.RenderMarkdown(entry.Body)
		if err != nil {
			return &feed.SerializationError{Index: i, Field: "content", Err: err}
		}
		items[i]["content"] = html
	}
	return nil
}
