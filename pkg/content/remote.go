package content

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	httputil "github.com/lepinkainen/site-feed/pkg/http"
)

func init() {
	MustRegister("remote", func(opts Options) (Source, error) {
		return NewRemoteSource(opts)
	})
}

// RemoteSource reads collections exported as JSON by another site build.
type RemoteSource struct {
	baseURL string
	client  *httputil.Client
}

type remoteEntry struct {
	Slug string         `json:"slug"`
	Data map[string]any `json:"data"`
	Body string         `json:"body"`
}

// NewRemoteSource creates a RemoteSource for opts.RemoteURL.
func NewRemoteSource(opts Options) (*RemoteSource, error) {
	base, err := url.Parse(opts.RemoteURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid remote content URL %q", opts.RemoteURL)
	}

	return &RemoteSource{
		baseURL: strings.TrimRight(base.String(), "/"),
		client: httputil.NewClient(httputil.Options{
			Timeout: opts.Timeout,
			Retries: opts.MaxRetries,
			Accept:  "application/json",
		}),
	}, nil
}

// CollectionURL returns the export URL of collection.
func (s *RemoteSource) CollectionURL(collection string) string {
	return s.baseURL + "/" + url.PathEscape(collection) + ".json"
}

// ListEntries fetches and decodes the collection export.
func (s *RemoteSource) ListEntries(ctx context.Context, collection string) ([]Entry, error) {
	resp, err := s.client.Get(ctx, s.CollectionURL(collection))
	if err != nil {
		return nil, unavailable(collection, err)
	}

	var raw []remoteEntry
	if err := httputil.DecodeJSONResponse(resp, &raw); err != nil {
		if httputil.IsNotFound(err) {
			return nil, unavailable(collection, fmt.Errorf("%w: %v", ErrCollectionNotFound, err))
		}
		return nil, unavailable(collection, err)
	}

	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		if strings.TrimSpace(r.Slug) == "" {
			return nil, unavailable(collection, fmt.Errorf("entry %d has no slug", i))
		}
		entries = append(entries, Entry{
			Collection: collection,
			Slug:       r.Slug,
			Data:       normalizeData(r.Data),
			Body:       r.Body,
		})
	}

	if err := checkUnique(collection, entries); err != nil {
		return nil, err
	}
	return entries, nil
}
