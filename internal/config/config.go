// Package config loads site-feed settings from an optional YAML file and
// SITEFEED_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/lepinkainen/site-feed/internal/sitefeed"
	"github.com/lepinkainen/site-feed/pkg/content"
	"github.com/lepinkainen/site-feed/pkg/feed"
	"github.com/lepinkainen/site-feed/pkg/filesystem"
	"github.com/lepinkainen/site-feed/pkg/urlutils"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigName is the base name searched for when no path is given
const ConfigName = "site-feed"

// Config holds the central application configuration
type Config struct {
	Site struct {
		Title       string `mapstructure:"title"`
		Description string `mapstructure:"description"`
		URL         string `mapstructure:"url"`        // absolute site base URL
		Language    string `mapstructure:"language"`   // channel <language>
		Stylesheet  string `mapstructure:"stylesheet"` // xml-stylesheet href
	} `mapstructure:"site"`

	// Collections are read in this order
	Collections []string `mapstructure:"collections"`

	Source struct {
		Type           string        `mapstructure:"type"` // filesystem | sqlite | remote
		ContentDir     string        `mapstructure:"content_dir"`
		Database       string        `mapstructure:"database"`
		RemoteURL      string        `mapstructure:"remote_url"`
		Timeout        time.Duration `mapstructure:"timeout"`
		MaxRetries     int           `mapstructure:"max_retries"`
		IncludeContent bool          `mapstructure:"include_content"`
	} `mapstructure:"source"`

	Server struct {
		Addr     string        `mapstructure:"addr"`
		FeedPath string        `mapstructure:"feed_path"`
		AtomPath string        `mapstructure:"atom_path"` // empty disables the Atom route
		CacheTTL time.Duration `mapstructure:"cache_ttl"` // 0 disables the response cache
		CacheDB  string        `mapstructure:"cache_db"`
		Watch    bool          `mapstructure:"watch"`
	} `mapstructure:"server"`

	Build struct {
		Outfile string `mapstructure:"outfile"`
	} `mapstructure:"build"`

	file string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.title", "")
	v.SetDefault("site.description", "")
	v.SetDefault("site.url", "")
	v.SetDefault("site.language", "")
	v.SetDefault("site.stylesheet", "")

	v.SetDefault("collections", sitefeed.DefaultCollections)

	v.SetDefault("source.type", "filesystem")
	v.SetDefault("source.content_dir", filepath.Join("src", "content"))
	v.SetDefault("source.database", "site.db")
	v.SetDefault("source.remote_url", "")
	v.SetDefault("source.timeout", 10*time.Second)
	v.SetDefault("source.max_retries", 0)
	v.SetDefault("source.include_content", false)

	v.SetDefault("server.addr", ":4321")
	v.SetDefault("server.feed_path", "/rss.xml")
	v.SetDefault("server.atom_path", "")
	v.SetDefault("server.cache_ttl", time.Duration(0))
	v.SetDefault("server.cache_db", "feed-cache.db")
	v.SetDefault("server.watch", false)

	v.SetDefault("build.outfile", filepath.Join("public", "rss.xml"))
}

// LoadConfig loads the configuration. An explicit path must exist; with no
// path, site-feed.yaml is looked up in the working directory and next to the
// executable, and missing files are fine.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SITEFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, filesystem.ErrFileNotFound)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if exeDir, err := filesystem.GetDefaultPath(""); err == nil {
			v.AddConfigPath(exeDir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.file = v.ConfigFileUsed()

	return &config, nil
}

// File returns the config file that was read, if any
func (c *Config) File() string {
	return c.file
}

// Validate reports every problem at once
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if strings.TrimSpace(c.Site.Title) == "" {
		add("site.title is required")
	}
	if _, err := urlutils.ParseSiteURL(c.Site.URL); err != nil {
		add("site.url: %v", err)
	}

	if len(c.Collections) == 0 {
		add("collections must not be empty")
	}
	if slices.Contains(c.Collections, "") {
		add("collections must not contain empty names")
	}
	if dups := lo.FindDuplicates(c.Collections); len(dups) > 0 {
		add("collections listed twice: %v", dups)
	}

	if !slices.Contains(content.Sources(), c.Source.Type) {
		add("source.type %q is not one of %v", c.Source.Type, content.Sources())
	}
	switch c.Source.Type {
	case "filesystem":
		if c.Source.ContentDir == "" {
			add("source.content_dir is required for the filesystem source")
		}
	case "sqlite":
		if c.Source.Database == "" {
			add("source.database is required for the sqlite source")
		}
	case "remote":
		if !urlutils.IsValidURL(c.Source.RemoteURL) {
			add("source.remote_url must be an absolute URL for the remote source")
		}
	}
	if c.Source.MaxRetries < 0 {
		add("source.max_retries must not be negative")
	}

	if !strings.HasPrefix(c.Server.FeedPath, "/") {
		add("server.feed_path must start with /")
	}
	if c.Server.AtomPath != "" {
		if !strings.HasPrefix(c.Server.AtomPath, "/") {
			add("server.atom_path must start with /")
		}
		if c.Server.AtomPath == c.Server.FeedPath {
			add("server.atom_path must differ from server.feed_path")
		}
	}
	if c.Server.CacheTTL < 0 {
		add("server.cache_ttl must not be negative")
	}

	return errors.Join(errs...)
}

// Metadata returns the channel metadata
func (c *Config) Metadata() feed.Metadata {
	return feed.Metadata{
		Title:       c.Site.Title,
		Description: c.Site.Description,
		Site:        c.Site.URL,
		Language:    c.Site.Language,
		Stylesheet:  c.Site.Stylesheet,
	}
}

// SourceOptions returns the options for content.NewSource
func (c *Config) SourceOptions() content.Options {
	return content.Options{
		ContentDir: c.Source.ContentDir,
		Database:   c.Source.Database,
		RemoteURL:  c.Source.RemoteURL,
		Timeout:    c.Source.Timeout,
		MaxRetries: c.Source.MaxRetries,
	}
}

// AssemblerConfig returns the assembler settings
func (c *Config) AssemblerConfig() sitefeed.Config {
	return sitefeed.Config{
		Metadata:       c.Metadata(),
		Collections:    c.Collections,
		IncludeContent: c.Source.IncludeContent,
	}
}
