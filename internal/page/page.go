package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrClosed is returned by operations on a page that has been destroyed.
var ErrClosed = errors.New("page is closed")

// Page is one isolated automation session: a fetched document plus a
// private script VM. A page is bound to at most one task at a time; the
// pool enforces that, so the mutex here only guards against misuse.
type Page struct {
	id     string
	opts   Options
	engine *Engine
	vm     *vm

	mu     sync.RWMutex
	url    string
	title  string
	html   string
	doc    *goquery.Document
	closed bool
}

// ID returns the page's instance identifier.
func (p *Page) ID() string { return p.id }

// Navigate fetches a URL, sanitizes the document, and makes it the page's
// current content.
func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()

	resp, err := p.engine.client.R().
		SetContext(reqCtx).
		SetHeader("User-Agent", p.opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		Get(rawURL)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	if resp.IsError() {
		return fmt.Errorf("fetch %s returned status %d", rawURL, resp.StatusCode())
	}

	// Sanitize before anything script-visible is stored.
	html := p.engine.sanitizer.Sanitize(resp.String())

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	p.url = rawURL
	p.html = html
	p.doc = doc
	p.title = strings.TrimSpace(doc.Find("title").First().Text())

	return nil
}

// Evaluate runs a script against the page's current content. The script
// sees a read-only `page` object and is interrupted when ctx is cancelled.
func (p *Page) Evaluate(ctx context.Context, script string) (interface{}, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrClosed
	}
	bindings := map[string]interface{}{
		"url":      p.url,
		"title":    p.title,
		"viewport": map[string]int{"width": p.opts.ViewportWidth, "height": p.opts.ViewportHeight},
		"text":     p.textFunc(),
		"html":     p.htmlFunc(),
	}
	p.mu.RUnlock()

	return p.vm.run(ctx, script, bindings)
}

// Content returns the page's current sanitized document.
func (p *Page) Content() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.html
}

// Title returns the current document title.
func (p *Page) Title() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.title
}

// Screenshot captures a serialized snapshot of the rendered document.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	snap := Snapshot{
		PageID:     p.id,
		URL:        p.url,
		Title:      p.title,
		Viewport:   [2]int{p.opts.ViewportWidth, p.opts.ViewportHeight},
		CapturedAt: time.Now(),
		HTML:       p.html,
	}
	return json.Marshal(snap)
}

// Close releases the page's VM and document. Idempotent.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.vm.close()
	p.doc = nil
	p.html = ""
	return nil
}

// textFunc extracts visible text from the current document.
func (p *Page) textFunc() func(selector string) string {
	doc := p.doc
	return func(selector string) string {
		if doc == nil {
			return ""
		}
		if selector == "" {
			return strings.TrimSpace(doc.Text())
		}
		return strings.TrimSpace(doc.Find(selector).Text())
	}
}

// htmlFunc returns document markup, optionally scoped to a selector.
func (p *Page) htmlFunc() func(selector string) string {
	doc := p.doc
	html := p.html
	return func(selector string) string {
		if selector == "" || doc == nil {
			return html
		}
		fragment, err := doc.Find(selector).Html()
		if err != nil {
			return ""
		}
		return fragment
	}
}
