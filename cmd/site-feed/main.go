// Package main provides the CLI entry point for site-feed.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/lepinkainen/site-feed/configs"
	"github.com/lepinkainen/site-feed/internal/config"
	"github.com/lepinkainen/site-feed/internal/server"
	"github.com/lepinkainen/site-feed/internal/sitefeed"
	"github.com/lepinkainen/site-feed/pkg/content"
	"github.com/lepinkainen/site-feed/pkg/database"
	"github.com/lepinkainen/site-feed/pkg/feed"
	"github.com/lepinkainen/site-feed/pkg/filesystem"
	"github.com/lepinkainen/site-feed/pkg/preview"
	"github.com/lepinkainen/site-feed/pkg/urlutils"
)

// CLI structure
var CLI struct {
	Config string `help:"Configuration file path (default: site-feed.yaml if present)" type:"path"`
	Debug  bool   `help:"Enable debug logging" default:"false"`

	Serve struct {
		Addr string `help:"Listen address (overrides server.addr)"`
	} `cmd:"serve" help:"Serve the feed over HTTP."`

	Build struct {
		Outfile string `help:"Output file path (overrides build.outfile)" short:"o"`
		Atom    bool   `help:"Write an Atom feed instead of RSS" default:"false"`
	} `cmd:"build" help:"Write the feed to a file."`

	Index struct {
		Database string `help:"SQLite database to write (overrides source.database)"`
	} `cmd:"index" help:"Copy filesystem collections into the SQLite content store."`

	Preview struct {
		Index int `help:"Output XML for specific item index (0-based) to stdout" default:"-1"`
	} `cmd:"preview" help:"Preview feed items interactively."`

	Init struct {
		Outfile string `help:"Where to write the example configuration" short:"o" default:"site-feed.yaml"`
		Force   bool   `help:"Overwrite an existing file" default:"false"`
	} `cmd:"init" help:"Write an example configuration file."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("site-feed"),
		kong.Description("Builds an RSS feed from the site's content collections."),
	)

	if CLI.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}

	if ctx.Command() == "init" {
		writeExampleConfig(CLI.Init.Outfile, CLI.Init.Force)
		return
	}

	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		fatal("Failed to load configuration", err)
	}
	if f := cfg.File(); f != "" {
		slog.Debug("Loaded configuration", "file", f)
	}

	if CLI.Serve.Addr != "" {
		cfg.Server.Addr = CLI.Serve.Addr
	}
	if CLI.Build.Outfile != "" {
		cfg.Build.Outfile = CLI.Build.Outfile
	}
	if CLI.Index.Database != "" {
		cfg.Source.Database = CLI.Index.Database
	}

	// index only needs the content directory and database
	if ctx.Command() != "index" {
		if err := cfg.Validate(); err != nil {
			fatal("Invalid configuration", err)
		}
	}

	switch ctx.Command() {
	case "serve":
		serveFeed(cfg)
	case "build":
		buildFeed(cfg)
	case "index":
		indexContent(cfg)
	case "preview":
		previewFeed(cfg, CLI.Preview.Index)
	default:
		panic(ctx.Command())
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

// openSource creates the configured content source; the returned func
// releases it
func openSource(cfg *config.Config) (content.Source, func()) {
	source, err := content.NewSource(cfg.Source.Type, cfg.SourceOptions())
	if err != nil {
		fatal("Failed to create content source", err)
	}
	slog.Debug("Opened content source", "type", cfg.Source.Type)

	return source, func() {
		if c, ok := source.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("Failed to close content source", "error", err)
			}
		}
	}
}

func serveFeed(cfg *config.Config) {
	source, release := openSource(cfg)
	defer release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvConfig := server.Config{
		FeedPath: cfg.Server.FeedPath,
		Feed:     sitefeed.New(source, feed.NewGenerator(feed.RSS), cfg.AssemblerConfig()),
		CacheTTL: cfg.Server.CacheTTL,
	}
	if cfg.Server.AtomPath != "" {
		srvConfig.AtomPath = cfg.Server.AtomPath
		srvConfig.Atom = sitefeed.New(source, feed.NewGenerator(feed.Atom), cfg.AssemblerConfig())
	}

	if cfg.Server.CacheTTL > 0 {
		db, err := database.Open(cfg.Server.CacheDB)
		if err != nil {
			fatal("Failed to open feed cache", err)
		}
		defer db.Close()

		cache := database.NewCache(db, "feed_cache")
		if err := cache.InitializeCache(); err != nil {
			fatal("Failed to initialize feed cache", err)
		}
		// stale documents from a previous run
		if err := cache.Clear(); err != nil {
			slog.Warn("Failed to clear feed cache", "error", err)
		}
		srvConfig.Cache = cache

		if cfg.Server.Watch && cfg.Source.Type == "filesystem" {
			go func() {
				err := server.WatchContent(ctx, cfg.Source.ContentDir, server.DefaultDebounce, func() {
					slog.Info("Content changed, clearing feed cache")
					if err := cache.Clear(); err != nil {
						slog.Warn("Failed to clear feed cache", "error", err)
					}
				})
				if err != nil {
					slog.Error("Content watcher stopped", "error", err)
				}
			}()
		}
	} else if cfg.Server.Watch {
		slog.Warn("server.watch has no effect without server.cache_ttl")
	}

	app := server.New(srvConfig)
	slog.Info("Serving feed", "addr", cfg.Server.Addr, "path", cfg.Server.FeedPath)
	if err := server.Run(ctx, app, cfg.Server.Addr); err != nil {
		fatal("Server failed", err)
	}
}

func buildFeed(cfg *config.Config) {
	source, release := openSource(cfg)
	defer release()

	feedType := feed.RSS
	if CLI.Build.Atom {
		feedType = feed.Atom
	}

	assembler := sitefeed.New(source, feed.NewGenerator(feedType), cfg.AssemblerConfig())
	out, err := assembler.ProduceFeed(context.Background())
	if err != nil {
		fatal("Failed to produce feed", err)
	}

	if err := filesystem.WriteFile(cfg.Build.Outfile, out.Body); err != nil {
		fatal("Failed to write feed", err)
	}
	slog.Info("Wrote feed", "file", cfg.Build.Outfile, "type", feedType, "bytes", len(out.Body))
}

func indexContent(cfg *config.Config) {
	dir := content.NewDirSource(cfg.Source.ContentDir)

	db, err := database.Open(cfg.Source.Database)
	if err != nil {
		fatal("Failed to open content database", err)
	}
	store, err := content.OpenStore(db)
	if err != nil {
		fatal("Failed to open content store", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, collection := range cfg.Collections {
		entries, err := dir.ListEntries(ctx, collection)
		if err != nil {
			fatal("Failed to read collection", err)
		}
		if err := store.ReplaceCollection(ctx, collection, entries); err != nil {
			fatal("Failed to index collection", err)
		}
		fmt.Printf("%s: %d entries\n", collection, len(entries))
	}
}

func previewFeed(cfg *config.Config, index int) {
	source, release := openSource(cfg)
	defer release()

	assembler := sitefeed.New(source, feed.NewGenerator(feed.RSS), cfg.AssemblerConfig())
	raw, err := assembler.Items(context.Background())
	if err != nil {
		fatal("Failed to read items", err)
	}

	site, err := urlutils.ParseSiteURL(cfg.Site.URL)
	if err != nil {
		fatal("Invalid site URL", err)
	}
	items, err := feed.ParseItems(site, raw)
	if err != nil {
		fatal("Failed to parse items", err)
	}

	meta := assembler.Metadata()

	// If index is specified, output XML directly to stdout
	if index >= 0 {
		if index >= len(items) {
			slog.Error("Index out of range", "index", index, "total", len(items))
			os.Exit(1)
		}
		fmt.Println(preview.FormatXMLItem(items[index], meta))
		return
	}

	if err := preview.Run(items, meta); err != nil {
		fatal("Preview failed", err)
	}
}

func writeExampleConfig(path string, force bool) {
	if _, err := os.Stat(path); err == nil && !force {
		slog.Error("Configuration file already exists, use --force to overwrite", "file", path)
		os.Exit(1)
	}
	if err := filesystem.WriteFile(path, configs.ExampleConfig); err != nil {
		fatal("Failed to write configuration", err)
	}
	fmt.Printf("Wrote %s\n", path)
}
