package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab is a page opened for one recording session.
type Tab struct {
	Page     *rod.Page
	StartURL string

	router *rod.HijackRouter
}

// OpenTab creates a tab, applies stealth and resource blocking, and
// navigates to pageURL. An empty pageURL leaves the tab on about:blank.
// prepare runs before navigation so scripts registered for new documents
// apply to the first load.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string, prepare func(*rod.Page) error) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	tab := &Tab{Page: page, StartURL: pageURL}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		tab.router = newResourceFilter(mgr.cfg.ResourceBlocking).hijack(page)
	}

	if prepare != nil {
		if err := prepare(page); err != nil {
			tab.Close()
			return nil, fmt.Errorf("browser: prepare tab: %w", err)
		}
	}

	if pageURL == "" {
		return tab, nil
	}

	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return tab, nil
}

// URL returns the tab's current URL, StartURL when the page cannot be
// queried.
func (t *Tab) URL(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	info, err := t.Page.Context(ctx).Info()
	if err != nil {
		return t.StartURL
	}
	return info.URL
}

// Close stops request hijacking and closes the tab.
func (t *Tab) Close() error {
	if t.router != nil {
		t.router.Stop()
		t.router = nil
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
