// CLAUDE:SUMMARY Live-page recorder.Document: injects recorder.js, receives events over a CDP binding.
// Package bridge connects the recorder to a live Chrome page. An embedded
// script installs capture-phase document listeners on request and reports
// every event, with a snapshot of the target's ancestor chain, through a
// Runtime binding. Page implements recorder.Document.
package bridge

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/actrec/action"
)

//go:embed recorder.js
var recorderJS string

// BindingName is the Runtime binding the page script reports through.
const BindingName = "__actrec_binding"

const evalTimeout = 3 * time.Second

// Page is a recorder.Document backed by a rod page.
type Page struct {
	*hub

	page   *rod.Page
	ctx    context.Context
	cancel context.CancelFunc

	removeScript func() error
}

// Attach registers the binding and the page script on page, and starts
// listening for binding calls. The script is also registered for every new
// document, so listeners survive navigations. Call it before navigating.
func Attach(ctx context.Context, page *rod.Page, logger *slog.Logger) (*Page, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Page{page: page, ctx: ctx, cancel: cancel}
	p.hub = newHub(p, logger)

	if err := (proto.RuntimeAddBinding{Name: BindingName}).Call(page); err != nil {
		cancel()
		return nil, fmt.Errorf("bridge: add binding: %w", err)
	}

	// Subscribe before the script runs so its ready message is not lost.
	wait := page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != BindingName {
			return
		}
		p.handle(e.Payload)
	})
	go wait()

	remove, err := page.EvalOnNewDocument(recorderJS)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("bridge: register page script: %w", err)
	}
	p.removeScript = remove

	// Current document.
	if _, err := (proto.RuntimeEvaluate{Expression: recorderJS}).Call(page); err != nil {
		logger.Warn("bridge: inject into current document failed", "error", err)
	}

	p.Sync(ctx)

	logger.Debug("bridge: attached")
	return p, nil
}

// Sync refreshes URL from the page target, for callers that navigated
// before any ready message arrived.
func (p *Page) Sync(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()
	if info, err := p.page.Context(ctx).Info(); err == nil {
		p.setURL(info.URL)
	}
}

func (p *Page) attach(typ action.Type) { p.call("attach", typ) }

func (p *Page) detach(typ action.Type) { p.call("detach", typ) }

func (p *Page) call(fn string, typ action.Type) {
	ctx, cancel := context.WithTimeout(p.ctx, evalTimeout)
	defer cancel()

	js := fmt.Sprintf(`(t) => window.__actrec ? window.__actrec.%s(t) : false`, fn)
	if _, err := p.page.Context(ctx).Eval(js, string(typ)); err != nil {
		// Navigation in flight: the ready message re-arms attach.
		p.logger.Warn("bridge: page call failed", "fn", fn, "type", typ, "error", err)
	}
}

// Close stops listening and unregisters the page script. Listeners still
// registered stay in the hub but receive nothing.
func (p *Page) Close() error {
	var err error
	if p.removeScript != nil {
		err = p.removeScript()
		p.removeScript = nil
	}
	p.cancel()
	return err
}
