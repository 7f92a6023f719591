package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// Default share-preview parameters (Open Graph image size).
const (
	DefaultWidth      = 1200
	DefaultHeight     = 630
	DefaultTimeoutSec = 30
)

// readySelector is exposed by /view once the projection is in the DOM.
const readySelector = `[data-ready="true"]`

// Options defines a headless Chromium capture of a rendered view.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/view?hash=%23event%3D42".
	URL string

	// Width and Height are the viewport size in pixels. Zero means the
	// defaults above.
	Width  int
	Height int

	// Timeout bounds the entire capture. Zero means DefaultTimeoutSec.
	Timeout time.Duration
}

// ViewURL builds the /view address of hash on the site at base.
func ViewURL(base, hash string) string {
	return base + "view?hash=" + url.QueryEscape(hash)
}

// PNG navigates to opts.URL, waits until the page reports data-ready and
// returns a full-page screenshot.
func PNG(parentCtx context.Context, opts Options) ([]byte, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("capture: URL is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		// Let web fonts and images paint.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	return png, nil
}

// WritePNG captures opts.URL into path.
func WritePNG(ctx context.Context, opts Options, path string) error {
	if path == "" {
		return fmt.Errorf("capture: output path is required")
	}
	png, err := PNG(ctx, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
