package deploy

import (
	"context"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

const probeConcurrency = 4

// documentExts are link targets worth probing as pages. An empty extension
// covers clean routes and directory indexes.
var documentExts = map[string]bool{
	"":      true,
	".html": true,
	".htm":  true,
	".php":  true,
}

// extractPageLinks parses homepage HTML and returns same-origin links that
// look like documents, resolved to absolute URLs and deduplicated in
// document order.
func extractPageLinks(html, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := map[string]bool{baseURL: true}
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			return
		}
		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(linkURL)
		if abs.Host != base.Host {
			return
		}
		if !documentExts[strings.ToLower(path.Ext(abs.Path))] {
			return
		}
		abs.Fragment = ""
		link := strings.TrimSuffix(abs.String(), "/")
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})
	return links
}

// discoverPages probes the homepage's same-origin document links. The
// homepage is always the first result; the rest keep document order. Probe
// failures mark the page dead rather than aborting discovery.
func (p *Prober) discoverPages(ctx context.Context, baseURL, homepageHTML string, homeStatus int) []PageResult {
	links := extractPageLinks(homepageHTML, baseURL)
	if len(links) > p.maxPages-1 {
		links = links[:p.maxPages-1]
	}

	results := make([]PageResult, len(links))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			res, err := p.fetch(gctx, link)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[i] = PageResult{URL: link}
				return nil
			}
			results[i] = PageResult{URL: link, StatusCode: res.status, OK: usableStatus(res.status)}
			return nil
		})
	}
	_ = g.Wait()

	pages := make([]PageResult, 0, len(results)+1)
	pages = append(pages, PageResult{URL: baseURL, StatusCode: homeStatus, OK: true})
	pages = append(pages, results...)
	return pages
}
