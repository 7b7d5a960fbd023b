// Package configs embeds the example site-feed configuration.
package configs

import _ "embed"

// ExampleConfig is written out by `site-feed init`.
//
//go:embed site-feed.yaml
var ExampleConfig []byte
