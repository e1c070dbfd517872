package whoscored

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/fortuna/pitchside/internal/browser"
)

// Client fetches match-centre pages through a shared headless browser.
type Client struct {
	browser *browser.Browser
	logger  *log.Logger
}

// NewClient creates a new WhoScored page client
func NewClient(b *browser.Browser, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{browser: b, logger: logger}
}

// Fetch loads url in a fresh tab, waits for rendering, and returns the page
// with every captured XHR/Fetch/Document body. The tab is closed before
// Fetch returns.
func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	sessCtx, cancel, err := c.browser.Session(ctx)
	if err != nil {
		return nil, &browser.FetchError{URL: url, Attempts: 0, Err: err}
	}
	defer cancel()

	capture := newCapture(sessCtx)
	chromedp.ListenTarget(sessCtx, capture.listen)

	if err := chromedp.Run(sessCtx, network.Enable()); err != nil {
		return nil, &browser.FetchError{URL: url, Attempts: 0, Err: fmt.Errorf("enable network: %w", err)}
	}

	attempts, err := c.browser.Navigate(sessCtx, url, "body")
	if err != nil {
		return nil, err
	}
	if err := c.browser.Settle(sessCtx); err != nil {
		return nil, &browser.FetchError{URL: url, Attempts: attempts, Err: fmt.Errorf("settle: %w", err)}
	}

	var html string
	if err := chromedp.Run(sessCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, &browser.FetchError{URL: url, Attempts: attempts, Err: fmt.Errorf("read DOM: %w", err)}
	}
	if html == "" {
		return nil, &browser.FetchError{URL: url, Attempts: attempts, Err: fmt.Errorf("empty HTML content returned")}
	}

	bodies := capture.collect(sessCtx, c.browser.Config().CaptureWindow)
	c.logger.Printf("✓ Loaded %s (%d bytes HTML, %d captured responses)", url, len(html), len(bodies))

	return NewPage(url, html, bodies)
}

// capture buffers response bodies of interesting resource types.
type capture struct {
	ctx     context.Context
	fetch   func(ctx context.Context, id network.RequestID) ([]byte, error)
	mu      sync.Mutex
	wg      sync.WaitGroup
	closed  bool
	pending map[network.RequestID]bool
	bodies  []string
}

func newCapture(ctx context.Context) *capture {
	return &capture{ctx: ctx, fetch: responseBody, pending: make(map[network.RequestID]bool)}
}

// responseBody reads a finished response through the session's target.
func responseBody(ctx context.Context, id network.RequestID) ([]byte, error) {
	target := chromedp.FromContext(ctx).Target
	return network.GetResponseBody(id).Do(cdp.WithExecutor(ctx, target))
}

func (c *capture) listen(ev interface{}) {
	switch ev := ev.(type) {
	case *network.EventResponseReceived:
		switch ev.Type {
		case network.ResourceTypeXHR, network.ResourceTypeFetch, network.ResourceTypeDocument:
			c.mu.Lock()
			if !c.closed {
				c.pending[ev.RequestID] = true
			}
			c.mu.Unlock()
		}
	case *network.EventLoadingFinished:
		c.mu.Lock()
		defer c.mu.Unlock()
		ok := c.pending[ev.RequestID]
		delete(c.pending, ev.RequestID)
		if !ok || c.closed {
			return
		}
		// Add stays under mu and never follows closed
		c.wg.Add(1)
		// listeners must not block the event loop
		go c.fetchBody(ev.RequestID)
	}
}

func (c *capture) fetchBody(id network.RequestID) {
	defer c.wg.Done()

	body, err := c.fetch(c.ctx, id)
	if err != nil || len(body) == 0 {
		return
	}
	c.mu.Lock()
	c.bodies = append(c.bodies, string(body))
	c.mu.Unlock()
}

// collect keeps buffering for window, stops accepting new responses, waits
// for in-flight body reads, and returns what arrived.
func (c *capture) collect(ctx context.Context, window time.Duration) []string {
	if window > 0 {
		select {
		case <-time.After(window):
		case <-ctx.Done():
		}
	}

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.bodies))
	copy(out, c.bodies)
	return out
}
