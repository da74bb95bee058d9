package deploy

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Screenshotter captures one page render. Implementations must be safe for
// sequential reuse within a run.
type Screenshotter interface {
	Capture(ctx context.Context, pageURL string, mobile bool) ([]byte, error)
}

// ChromeShooter renders pages in headless Chrome. Requires Chrome or
// Chromium on the host.
type ChromeShooter struct {
	Timeout time.Duration
}

// Desktop and mobile viewports used for captures.
const (
	desktopWidth  = 1366
	desktopHeight = 900
	mobileWidth   = 390
	mobileHeight  = 844
)

// Capture renders pageURL and returns a PNG. The post-load sleep lets fonts
// and late JavaScript settle before the shot.
func (s *ChromeShooter) Capture(ctx context.Context, pageURL string, mobile bool) ([]byte, error) {
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	width, height := desktopWidth, desktopHeight
	if mobile {
		width, height = mobileWidth, mobileHeight
	}

	var shot []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.CaptureScreenshot(&shot),
	)
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return shot, nil
}

// captureVisuals screenshots every live page at desktop size plus the
// homepage at mobile size. A failed capture is logged and skipped; visuals
// are evidence, not a gating check.
func (p *Prober) captureVisuals(ctx context.Context, pages []PageResult) []Screenshot {
	shots := []Screenshot{}
	if p.shotDir != "" {
		if err := os.MkdirAll(p.shotDir, 0o755); err != nil {
			p.logger.Warn("cannot create screenshot dir", "dir", p.shotDir, "error", err)
			return shots
		}
	}

	for i, page := range pages {
		if !page.OK {
			continue
		}
		if shot := p.captureOne(ctx, page.URL, false); shot != nil {
			shots = append(shots, *shot)
		}
		if i == 0 {
			if shot := p.captureOne(ctx, page.URL, true); shot != nil {
				shots = append(shots, *shot)
			}
		}
	}
	return shots
}

func (p *Prober) captureOne(ctx context.Context, pageURL string, mobile bool) *Screenshot {
	viewport := "desktop"
	if mobile {
		viewport = "mobile"
	}

	png, err := p.shooter.Capture(ctx, pageURL, mobile)
	if err != nil {
		p.logger.Warn("screenshot capture failed", "url", pageURL, "viewport", viewport, "error", err)
		return nil
	}

	name := fmt.Sprintf("%s_%s.png", slugifyURL(pageURL), viewport)
	path := filepath.Join(p.shotDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		p.logger.Warn("cannot write screenshot", "path", path, "error", err)
		return nil
	}
	return &Screenshot{URL: pageURL, Path: path, Viewport: viewport}
}

// slugifyURL turns a page URL into a filesystem-safe name.
func slugifyURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "page"
	}
	slug := u.Host + u.Path
	slug = strings.Trim(slug, "/")
	replacer := strings.NewReplacer("/", "_", ".", "_", ":", "_")
	slug = replacer.Replace(slug)
	if slug == "" {
		return "page"
	}
	return slug
}
