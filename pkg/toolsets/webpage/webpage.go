// Package webpage provides browser-automation operations backed by headless
// Chrome. It is a thin wrapper: chromedp owns the browser lifecycle and
// protocol, this package only shapes its results into operation payloads.
// The Chrome process starts lazily on first use and runs in incognito mode.
package webpage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/germanamz/opwire/pkg/ops"
)

// maxContentBytes caps extracted page text (100KB).
const maxContentBytes = 100 * 1024

// opTimeout bounds a single page operation.
const opTimeout = 30 * time.Second

// Toolset exposes page operations over one shared Chrome process.
type Toolset struct {
	parentCtx context.Context
	headless  bool

	mu         sync.Mutex
	started    bool
	browserCtx context.Context
	cancels    []context.CancelFunc
}

// Option configures a Toolset.
type Option func(*Toolset)

// WithHeadless runs Chrome without a visible window.
func WithHeadless() Option {
	return func(ts *Toolset) { ts.headless = true }
}

// New creates a Toolset. The parentCtx is the root context for the Chrome
// process; cancelling it tears Chrome down.
func New(parentCtx context.Context, opts ...Option) *Toolset {
	ts := &Toolset{parentCtx: parentCtx}
	for _, o := range opts {
		o(ts)
	}

	return ts
}

// Specs returns the page operation specs, ready for registration.
func (ts *Toolset) Specs() []ops.Spec {
	return []ops.Spec{
		{
			Name:        "page_navigate",
			Description: "Navigate to a URL and return the page title and clean text content (scripts and styles stripped). The page stays loaded for page_extract.",
			Params: map[string]ops.Param{
				"url": {Type: ops.TypeString, Description: "The URL to navigate to", Required: true},
			},
			Handler: ts.navigate,
		},
		{
			Name:        "page_extract",
			Description: "Extract clean text from the currently loaded page, optionally scoped to a CSS selector.",
			Params: map[string]ops.Param{
				"selector": {Type: ops.TypeString, Description: "CSS selector to extract from", Default: ""},
			},
			Handler: ts.extract,
		},
	}
}

// Close shuts down the Chrome process if it was started.
func (ts *Toolset) Close() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.started {
		return
	}

	for i := len(ts.cancels) - 1; i >= 0; i-- {
		ts.cancels[i]()
	}
	ts.cancels = nil
	ts.browserCtx = nil
	ts.started = false
}

func (ts *Toolset) navigate(_ context.Context, args map[string]any) (any, error) {
	url := args["url"].(string)

	pageCtx, cancel, err := ts.pageContext()
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := chromedp.Run(pageCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("webpage: navigate %s: %w", url, err)
	}

	return ts.pagePayload(pageCtx, "")
}

func (ts *Toolset) extract(_ context.Context, args map[string]any) (any, error) {
	selector, _ := args["selector"].(string)

	pageCtx, cancel, err := ts.pageContext()
	if err != nil {
		return nil, err
	}
	defer cancel()

	return ts.pagePayload(pageCtx, selector)
}

// pageContext returns the shared browser context bounded by the operation
// timeout, starting Chrome on first use.
func (ts *Toolset) pageContext() (context.Context, context.CancelFunc, error) {
	browserCtx, err := ts.ensureBrowser()
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(browserCtx, opTimeout)

	return ctx, cancel, nil
}

// ensureBrowser lazily starts the Chrome process on first call.
func (ts *Toolset) ensureBrowser() (context.Context, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return ts.browserCtx, nil
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	if !ts.headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	opts = append(opts,
		chromedp.Flag("incognito", true),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ts.parentCtx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Force Chrome to start by running a noop.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()

		return nil, fmt.Errorf("webpage: start chrome: %w", err)
	}

	ts.browserCtx = browserCtx
	ts.cancels = []context.CancelFunc{allocCancel, browserCancel}
	ts.started = true

	return ts.browserCtx, nil
}

// pagePayload builds the structured payload for the current page: URL,
// title, and extracted text.
func (ts *Toolset) pagePayload(ctx context.Context, selector string) (any, error) {
	text, err := extractText(ctx, selector)
	if err != nil {
		return nil, err
	}

	var url, title string
	if err := chromedp.Run(ctx,
		chromedp.Location(&url),
		chromedp.Title(&title),
	); err != nil {
		return nil, fmt.Errorf("webpage: page info: %w", err)
	}

	return map[string]any{
		"url":   url,
		"title": title,
		"text":  text,
	}, nil
}

// extractText extracts clean text from the current page or a CSS selector,
// removing script, style, noscript, and svg elements.
func extractText(ctx context.Context, selector string) (string, error) {
	jsCode := `
	(function(sel) {
		var el = sel ? document.querySelector(sel) : document.body;
		if (!el) return "";
		var clone = el.cloneNode(true);
		var tags = ["script", "style", "noscript", "svg"];
		for (var i = 0; i < tags.length; i++) {
			var elems = clone.querySelectorAll(tags[i]);
			for (var j = 0; j < elems.length; j++) {
				elems[j].remove();
			}
		}
		return clone.innerText || "";
	})(%s)
	`

	selArg := "null"
	if selector != "" {
		selArg = fmt.Sprintf("%q", selector)
	}

	var text string
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(jsCode, selArg), &text)); err != nil {
		return "", fmt.Errorf("webpage: extract text: %w", err)
	}

	text = collapseWhitespace(text)

	if len(text) > maxContentBytes {
		text = text[:maxContentBytes] + "\n[content truncated]"
	}

	return text, nil
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// collapseWhitespace trims trailing space per line and squeezes runs of
// blank lines down to one.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}
