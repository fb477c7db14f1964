// File: internal/surface/browser.go
// Package surface is the browser-backed host integration. It drives a live
// Frappe-style web application over the Chrome DevTools Protocol and exposes
// it to the engine through the schemas.Host interfaces. Every read evaluates
// against the page's current state; nothing is cached, because the host
// mutates asynchronously underneath us.
package surface

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Browser owns the DevTools session and implements schemas.Host.
type Browser struct {
	ctx     context.Context
	cancels []context.CancelFunc

	timeout time.Duration
	baseURL string
	log     *zap.Logger

	chrome *chrome
	store  *recordStore
}

// New launches a browser, or attaches to an existing DevTools endpoint when
// cfg.AttachURL is set, and navigates to the application.
func New(ctx context.Context, cfg config.SurfaceConfig, log *zap.Logger) (*Browser, error) {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Browser{
		timeout: cfg.Timeout,
		baseURL: cfg.BaseURL,
		log:     log.Named("surface"),
	}
	if b.timeout <= 0 {
		b.timeout = 30 * time.Second
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.AttachURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.AttachURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-first-run", true),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			log.Sugar().Debugf(format, args...)
		}))
	b.ctx = browserCtx
	b.cancels = []context.CancelFunc{browserCancel, allocCancel}

	if cfg.BaseURL != "" {
		if err := chromedp.Run(browserCtx, chromedp.Navigate(cfg.BaseURL)); err != nil {
			b.Close()
			return nil, fmt.Errorf("opening %s: %w", cfg.BaseURL, err)
		}
	}

	b.chrome = &chrome{b: b}
	b.store = &recordStore{b: b}
	b.log.Info("browser session established",
		zap.Bool("attached", cfg.AttachURL != ""),
		zap.String("base_url", cfg.BaseURL))
	return b, nil
}

// Close tears down the DevTools session and, when we launched it, the browser
// process.
func (b *Browser) Close() {
	for _, cancel := range b.cancels {
		cancel()
	}
}

// opCtx bounds a single DevTools operation. The caller's context wins when it
// is shorter.
func (b *Browser) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = b.ctx
	}
	merged, cancel1 := context.WithTimeout(b.ctx, b.timeout)
	stop := context.AfterFunc(ctx, cancel1)
	return merged, func() {
		stop()
		cancel1()
	}
}

// eval runs a JavaScript expression and decodes its JSON result into out.
// Pass nil to discard the result; the expression is then coerced to a defined
// value so the protocol has something to serialize.
func (b *Browser) eval(ctx context.Context, js string, out any) error {
	opCtx, cancel := b.opCtx(ctx)
	defer cancel()
	if out == nil {
		js = fmt.Sprintf(`((%s), true)`, js)
		var done bool
		out = &done
	}
	return chromedp.Run(opCtx, chromedp.Evaluate(js, out))
}

// evalAsync runs an expression returning a promise and waits for it.
func (b *Browser) evalAsync(ctx context.Context, js string, out any) error {
	opCtx, cancel := b.opCtx(ctx)
	defer cancel()
	if out == nil {
		js = fmt.Sprintf(`Promise.resolve(%s).then(() => true)`, js)
		var done bool
		out = &done
	}
	return chromedp.Run(opCtx, chromedp.Evaluate(js, out, chromedp.EvalAsValue,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
}

// quietRead evaluates a read-only expression and swallows failures; the
// engine's interfaces model reads as snapshots, so a torn read degrades to a
// zero value rather than an error.
func (b *Browser) quietRead(js string, out any) {
	if err := b.eval(nil, js, out); err != nil {
		b.log.Debug("page read failed", zap.String("expr", js), zap.Error(err))
	}
}

// -- schemas.Host --

// CurrentSurface re-resolves the open record editor. It returns nil while no
// editor is active or the page is mid-navigation.
func (b *Browser) CurrentSurface() schemas.DocumentSurface {
	var open bool
	b.quietRead(`!!(window.cur_frm && window.cur_frm.doc)`, &open)
	if !open {
		return nil
	}
	return &docSurface{b: b}
}

func (b *Browser) Chrome() schemas.UIChrome { return b.chrome }

func (b *Browser) Records() schemas.RecordStore { return b.store }

// Navigate routes inside the application using the host's own router, which
// preserves its single-page-app state.
func (b *Browser) Navigate(ctx context.Context, route schemas.Route) error {
	parts := []string{route.View}
	if route.Doctype != "" {
		parts = append(parts, route.Doctype)
	}
	if route.Name != "" {
		parts = append(parts, route.Name)
	}
	raw, err := json.Marshal(parts)
	if err != nil {
		return err
	}
	js := fmt.Sprintf(`frappe.set_route(...%s)`, raw)
	if err := b.evalAsync(ctx, js, nil); err != nil {
		return fmt.Errorf("routing to %v: %w", parts, err)
	}
	return nil
}

// OpenNewRecord opens a blank editor for a record type.
func (b *Browser) OpenNewRecord(ctx context.Context, doctype string) error {
	js := fmt.Sprintf(`frappe.new_doc(%q)`, doctype)
	if err := b.evalAsync(ctx, js, nil); err != nil {
		return fmt.Errorf("opening new %s: %w", doctype, err)
	}
	return nil
}

var _ schemas.Host = (*Browser)(nil)
