// Package diskcache keeps fetched pages on disk, one file per sanitized url,
// and only serves the ones that are still fresh.
package diskcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"boincstats/lib/telemetry"
	"boincstats/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("boincstats/diskcache")

const (
	report_cache_refresh = "cache.refresh"
	report_cache_store   = "cache.store"
	report_cache_lookup  = "cache.lookup"
)

const (
	ExtHTML = ".html"
	ExtXML  = ".xml"
	ExtJPG  = ".jpg"
	ExtPNG  = ".png"
)

const (
	DefaultMaxAge = time.Hour
	LongMaxAge    = time.Hour * 24 * 30
	// LongLivedMarker is the filename substring of pages whose contents
	// never change once published (workunit detail pages).
	LongLivedMarker = "workunit"
)

type Options struct {
	Dir string
	// Preserve keeps stale files on disk, they are still left out of the
	// index.
	Preserve bool
	// defaults to DefaultMaxAge
	MaxAge time.Duration
	// defaults to LongMaxAge
	LongMaxAge time.Duration
	// defaults to LongLivedMarker
	LongLivedMarker string
	// defaults to time.Now
	Now func() time.Time
	Tel telemetry.API
}

// Cache maps sanitized urls to the fresh files of a cache directory.
//
// The index only changes on Refresh, so a file written with Store is not
// served by Lookup until the next Refresh.
type Cache struct {
	dir             string
	preserve        bool
	maxAge          time.Duration
	longMaxAge      time.Duration
	longLivedMarker string
	now             func() time.Time
	tel             telemetry.API

	lock  sync.RWMutex
	index map[string]string
}

func New(opts Options) (*Cache, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("diskcache: no directory given")
	}
	err := os.MkdirAll(opts.Dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("diskcache: create directory: %w", err)
	}

	c := &Cache{
		dir:             opts.Dir,
		preserve:        opts.Preserve,
		maxAge:          opts.MaxAge,
		longMaxAge:      opts.LongMaxAge,
		longLivedMarker: opts.LongLivedMarker,
		now:             opts.Now,
		tel:             telemetry.NewScopedAPI("diskcache", telemetry.OrDefault(opts.Tel)),
		index:           map[string]string{},
	}
	if c.maxAge == 0 {
		c.maxAge = DefaultMaxAge
	}
	if c.longMaxAge == 0 {
		c.longMaxAge = LongMaxAge
	}
	if c.longLivedMarker == "" {
		c.longLivedMarker = LongLivedMarker
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

func (c *Cache) Dir() string {
	return c.dir
}

// Key is the filename an url is cached under.
func Key(url, ext string) string {
	return textutil.Sanitize(url) + ext
}

func isPage(ext string) bool {
	return ext == ExtHTML || ext == ExtXML
}

func isImage(ext string) bool {
	return ext == ExtJPG || ext == ExtPNG
}

// maxAgeOf returns the age budget of a filename, ok is false for images
// which never expire.
func (c *Cache) maxAgeOf(name string) (time.Duration, bool) {
	if isImage(filepath.Ext(name)) {
		return 0, false
	}
	if strings.Contains(name, c.longLivedMarker) {
		return c.longMaxAge, true
	}
	return c.maxAge, true
}

// Refresh rebuilds the index from the files directly under the cache
// directory. Pages older than their budget are left out and deleted (unless
// Preserve is set), images are always indexed. Errors on single files are
// reported and skipped.
func (c *Cache) Refresh(ctx context.Context) int {
	_, span := tracer.Start(ctx, "cache:Refresh")
	defer span.End()

	now := c.now()
	index := map[string]string{}
	evicted := 0

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.tel.ReportWarning(report_cache_refresh, fmt.Errorf("list: %w", err), c.dir)
	}
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		if !isPage(ext) && !isImage(ext) {
			continue
		}
		path := filepath.Join(c.dir, name)
		regular := entry.Type().IsRegular()

		maxAge, expires := c.maxAgeOf(name)
		if !expires {
			if regular {
				index[name] = path
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			c.tel.ReportWarning(report_cache_refresh, fmt.Errorf("stat: %w", err), path)
			continue
		}
		age := now.Sub(info.ModTime())
		if age <= maxAge {
			if regular {
				index[name] = path
			}
			continue
		}

		evicted++
		c.tel.ReportDebug("evict stale file", name, age.Round(time.Second).String())
		if c.preserve {
			continue
		}
		err = os.Remove(path)
		if err != nil {
			c.tel.ReportWarning(report_cache_refresh, fmt.Errorf("delete: %w", err), path)
		}
	}

	c.lock.Lock()
	c.index = index
	c.lock.Unlock()

	span.SetAttributes(
		attribute.Int("custom.indexed", len(index)),
		attribute.Int("custom.evicted", evicted),
	)
	c.tel.ReportCount("indexed", int64(len(index)))
	return len(index)
}

// Lookup returns the contents cached for url, ok is false on a miss.
func (c *Cache) Lookup(url, ext string) ([]byte, bool) {
	key := Key(url, ext)

	c.lock.RLock()
	path, ok := c.index[key]
	c.lock.RUnlock()
	if !ok {
		return nil, false
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		c.tel.ReportWarning(report_cache_lookup, err, path)
		return nil, false
	}
	c.tel.ReportDebug("cache hit", key)
	return contents, true
}

// Store writes contents to the file of url, it does not touch the index.
func (c *Cache) Store(url string, contents []byte, ext string) error {
	return c.WriteFile(Key(url, ext), contents)
}

// WriteFile writes a file by its name under the cache directory.
func (c *Cache) WriteFile(name string, contents []byte) error {
	path := filepath.Join(c.dir, name)
	err := os.WriteFile(path, contents, 0600)
	if err != nil {
		c.tel.ReportWarning(report_cache_store, err, path)
		return err
	}
	return nil
}

// ReadFile reads a file by its name under the cache directory, bypassing
// the index.
func (c *Cache) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(c.dir, name))
}

// Len is the number of indexed entries.
func (c *Cache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.index)
}
