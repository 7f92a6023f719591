package clock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "eventsite/internal/log"
)

// ErrTimeSourceUnavailable is the cause logged when the remote time service
// cannot be used. Callers never see it; it is recovered by the local fallback.
var ErrTimeSourceUnavailable = errors.New("time source unavailable")

// Source names reported by Resolve.
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Resolver obtains a trusted current time from a remote time service and
// falls back to the local clock on any failure.
type Resolver struct {
	url    string
	client *http.Client

	// local is the fallback clock; overridable in tests.
	local func() time.Time
}

// NewResolver creates a Resolver for the given time service URL.
// An empty URL makes the Resolver always use the local clock.
func NewResolver(url string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
		local:  time.Now,
	}
}

// timeResponse is the subset of the time service payload we rely on.
type timeResponse struct {
	UTCDatetime string `json:"utc_datetime"`
}

// Now returns the resolved current time. It never fails.
func (r *Resolver) Now(ctx context.Context) time.Time {
	t, _ := r.Resolve(ctx)
	return t
}

// Resolve returns the current time and which source produced it.
func (r *Resolver) Resolve(ctx context.Context) (time.Time, string) {
	if r.url == "" {
		now := r.local()
		appLog.Info("using local time; no time service configured", "now", now.Format(time.RFC3339))
		return now, SourceLocal
	}

	t, err := r.fetchRemote(ctx)
	if err != nil {
		now := r.local()
		appLog.Warn("world time service failed; falling back to local time",
			"err", err,
			"now", now.Format(time.RFC3339),
		)
		return now, SourceLocal
	}

	appLog.Info("using reliable world time", "now", t.Format(time.RFC3339))
	return t, SourceRemote
}

func (r *Resolver) fetchRemote(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTimeSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTimeSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return time.Time{}, fmt.Errorf("%w: status %s", ErrTimeSourceUnavailable, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: read body: %v", ErrTimeSourceUnavailable, err)
	}

	var tr timeResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed payload: %v", ErrTimeSourceUnavailable, err)
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(tr.UTCDatetime))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed utc_datetime %q", ErrTimeSourceUnavailable, tr.UTCDatetime)
	}
	return t, nil
}
