package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	appLog "eventsite/internal/log"
)

// maxDocumentSize bounds how much of a single document is read.
const maxDocumentSize = 16 << 20

// ErrDocumentTooLarge is returned for a document over the size limit.
var ErrDocumentTooLarge = errors.New("document too large")

// Document is the outcome of fetching a single source document.
type Document struct {
	Location  string
	Body      []byte
	FromCache bool // true if the body was reused after a 304
}

// StatusError is returned when an http(s) source answers with a non-success status.
type StatusError struct {
	Location string
	Code     int
	Status   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: %s", Redact(e.Location), e.Status)
}

// cacheEntry holds conditional-request metadata for a single URL.
type cacheEntry struct {
	etag         string
	lastModified string
	body         []byte
}

// Fetcher reads JSON documents from http(s) URLs or local files.
//
// For http(s) sources it honors ETag / Last-Modified with an in-memory
// cache, so a reload of an unchanged document costs a 304.
type Fetcher struct {
	client    *http.Client
	cacheBust bool
	maxSize   int64

	mu    sync.Mutex
	cache map[string]cacheEntry

	// now is used for the cache-busting parameter; overridable in tests.
	now func() time.Time
}

// NewFetcher creates a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, cacheBust bool) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		cacheBust: cacheBust,
		maxSize:   maxDocumentSize,
		cache:     make(map[string]cacheEntry),
		now:       time.Now,
	}
}

// Fetch reads the document at location. Locations with an http:// or
// https:// scheme are fetched over HTTP, "file://" and bare paths are read
// from disk.
func (f *Fetcher) Fetch(ctx context.Context, location string) (Document, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Document{}, errors.New("fetch: source location is empty")
	}

	if isHTTP(location) {
		return f.fetchHTTP(ctx, location)
	}
	return f.fetchFile(location)
}

func (f *Fetcher) fetchFile(location string) (Document, error) {
	path := strings.TrimPrefix(location, "file://")
	body, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", path, err)
	}
	if int64(len(body)) > f.maxSize {
		return Document{}, fmt.Errorf("fetch %s: %w (limit %d bytes)", path, ErrDocumentTooLarge, f.maxSize)
	}
	appLog.Debug("document read from disk", "path", path, "bytes", len(body))
	return Document{Location: location, Body: body}, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, location string) (Document, error) {
	reqURL := location
	if f.cacheBust {
		reqURL = withCacheBust(location, f.now())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", Redact(location), err)
	}
	req.Header.Set("Accept", "application/json")

	f.mu.Lock()
	meta, hasMeta := f.cache[location]
	f.mu.Unlock()

	// Conditional headers from cache metadata.
	if hasMeta {
		if meta.etag != "" {
			req.Header.Set("If-None-Match", meta.etag)
		}
		if meta.lastModified != "" {
			req.Header.Set("If-Modified-Since", meta.lastModified)
		}
	}

	appLog.Debug("document fetch start", "url", Redact(location))

	resp, err := f.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", Redact(location), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if !hasMeta || len(meta.body) == 0 {
			return Document{}, fmt.Errorf("fetch %s: received 304 Not Modified but no cached body available", Redact(location))
		}
		appLog.Debug("document not modified; using cache", "url", Redact(location))
		return Document{Location: location, Body: meta.body, FromCache: true}, nil

	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		// One byte past the limit tells a full document from a truncated one.
		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
		if err != nil {
			return Document{}, fmt.Errorf("fetch %s: read body: %w", Redact(location), err)
		}
		if int64(len(body)) > f.maxSize {
			return Document{}, fmt.Errorf("fetch %s: %w (limit %d bytes)", Redact(location), ErrDocumentTooLarge, f.maxSize)
		}

		etag := resp.Header.Get("ETag")
		lastModified := resp.Header.Get("Last-Modified")
		if etag != "" || lastModified != "" {
			f.mu.Lock()
			f.cache[location] = cacheEntry{etag: etag, lastModified: lastModified, body: body}
			f.mu.Unlock()
		}

		appLog.Debug("document fetch success", "url", Redact(location), "status", resp.StatusCode, "bytes", len(body))
		return Document{Location: location, Body: body}, nil

	default:
		return Document{}, &StatusError{Location: location, Code: resp.StatusCode, Status: resp.Status}
	}
}

func isHTTP(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// withCacheBust appends v=<unix ms> to the query string.
func withCacheBust(location string, now time.Time) string {
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	q := u.Query()
	q.Set("v", strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// Redact hides path and query of a URL for logging purposes.
//
//	https://example.com/path/to/private.json?token=abcd
//	-> https://example.com/...(redacted)
//
// Local paths are returned unchanged.
func Redact(location string) string {
	if !isHTTP(location) {
		return location
	}
	u, err := url.Parse(location)
	if err != nil || u.Host == "" {
		return "http://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
