package actrec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/actrec/internal/bridge"
	"github.com/hazyhaar/actrec/internal/browser"
	"github.com/hazyhaar/actrec/recorder"
)

// Page is a document a session records on. Close releases it.
type Page interface {
	recorder.Document
	Close() error
}

// Backend opens pages for sessions.
type Backend interface {
	Open(ctx context.Context, url string) (Page, error)
	Close() error
}

// BrowserBackend opens each session in its own Chrome tab, bridged to the
// recorder through an injected page script.
type BrowserBackend struct {
	mgr    *browser.Manager
	logger *slog.Logger
}

// NewBrowserBackend creates a backend over a browser manager. Chrome is
// started on the first Open.
func NewBrowserBackend(cfg browser.Config) *BrowserBackend {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &BrowserBackend{mgr: browser.NewManager(cfg), logger: cfg.Logger}
}

// Open starts Chrome if needed, opens a tab, installs the bridge and
// navigates to url.
func (b *BrowserBackend) Open(ctx context.Context, url string) (Page, error) {
	if _, err := b.mgr.Start(ctx); err != nil {
		return nil, err
	}

	// The bridge outlives the request that opened it.
	bctx := context.WithoutCancel(ctx)

	var bp *bridge.Page
	tab, err := browser.OpenTab(ctx, b.mgr, url, func(p *rod.Page) error {
		var err error
		bp, err = bridge.Attach(bctx, p, b.logger)
		return err
	})
	if err != nil {
		if bp != nil {
			bp.Close()
		}
		return nil, err
	}
	bp.Sync(ctx)
	return &browserPage{Page: bp, tab: tab}, nil
}

// Close shuts Chrome down.
func (b *BrowserBackend) Close() error {
	return b.mgr.Close()
}

type browserPage struct {
	*bridge.Page
	tab *browser.Tab
}

func (p *browserPage) Close() error {
	berr := p.Page.Close()
	if err := p.tab.Close(); err != nil {
		return fmt.Errorf("actrec: close tab: %w", err)
	}
	return berr
}
