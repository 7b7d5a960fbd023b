// Package server exposes the assembled feed over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/lepinkainen/site-feed/pkg/database"
	"github.com/lepinkainen/site-feed/pkg/feed"
)

// Producer builds a feed document on demand.
type Producer interface {
	ProduceFeed(ctx context.Context) (*feed.Output, error)
}

// Config wires producers to routes.
type Config struct {
	FeedPath string
	Feed     Producer

	// AtomPath and Atom are optional
	AtomPath string
	Atom     Producer

	// Cache holds finished documents for CacheTTL when both are set
	Cache    *database.Cache
	CacheTTL time.Duration
}

// New returns a fiber.App serving the feed routes and /healthz.
func New(config Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(requestid.New(requestid.ConfigDefault))

	// latency logging
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		slog.Debug("Request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start),
			"request_id", c.Locals("requestid"),
		)
		return err
	})

	app.Use(compress.New())

	cache := config.Cache
	if config.CacheTTL <= 0 {
		cache = nil
	}

	app.Get(config.FeedPath, feedHandler(config.Feed, cache, config.CacheTTL))
	if config.AtomPath != "" && config.Atom != nil {
		app.Get(config.AtomPath, feedHandler(config.Atom, cache, config.CacheTTL))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	return app
}

func feedHandler(producer Producer, cache *database.Cache, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Path()

		if cache != nil {
			value, ok, err := cache.Get(key)
			if err != nil {
				slog.Warn("Feed cache read failed", "path", key, "error", err)
			} else if ok {
				contentType, body := decodeCached(value)
				c.Set(fiber.HeaderContentType, contentType)
				c.Set("X-Cache", "HIT")
				return c.Send(body)
			}
		}

		var gen uint64
		if cache != nil {
			gen = cache.Generation()
		}

		out, err := producer.ProduceFeed(c.UserContext())
		if err != nil {
			return err
		}

		if cache != nil {
			// content changed while producing: serve it, but don't cache it
			if _, err := cache.SetIfGeneration(gen, key, encodeCached(out), ttl); err != nil {
				slog.Warn("Feed cache write failed", "path", key, "error", err)
			}
			c.Set("X-Cache", "MISS")
		}

		c.Set(fiber.HeaderContentType, out.ContentType)
		return c.Send(out.Body)
	}
}

// errorHandler turns any failure into a plain-text error response. Feed
// failures never produce a partial document.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fe.Code).SendString(fe.Message)
	}

	slog.Error("Feed request failed",
		"path", c.Path(),
		"request_id", c.Locals("requestid"),
		"error", err,
	)

	c.Response().ResetBody()
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(fiber.StatusInternalServerError).SendString("feed unavailable")
}

// cached values are "<content type>\n<body>"
func encodeCached(out *feed.Output) []byte {
	value := make([]byte, 0, len(out.ContentType)+1+len(out.Body))
	value = append(value, out.ContentType...)
	value = append(value, '\n')
	return append(value, out.Body...)
}

func decodeCached(value []byte) (string, []byte) {
	contentType, body, found := bytes.Cut(value, []byte{'\n'})
	if !found {
		return feed.RSS.ContentType(), value
	}
	return string(contentType), body
}

// Run serves app on addr until ctx is cancelled.
func Run(ctx context.Context, app *fiber.App, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		return <-errCh
	}
}
