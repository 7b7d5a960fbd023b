// Package urlutils provides URL helpers for site and item links.
package urlutils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidSiteURL is returned when a site URL is not absolute
var ErrInvalidSiteURL = errors.New("site URL must be absolute")

// IsValidURL checks if a URL is valid
func IsValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// ParseSiteURL parses a site base URL and requires a scheme and host
func ParseSiteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSiteURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSiteURL, raw)
	}
	return u, nil
}

// ResolveURL resolves a relative URL against a base URL.
// If the URL is already absolute, it returns it unchanged
func ResolveURL(base *url.URL, ref string) (string, error) {
	rel, err := url.Parse(ref)
	if err != nil {
		return "", err
	}

	if rel.IsAbs() {
		return ref, nil
	}

	return base.ResolveReference(rel).String(), nil
}
