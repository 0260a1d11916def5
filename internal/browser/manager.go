// CLAUDE:SUMMARY Manages the Chrome instance recordings run in: local launch or remote attach, optional Xvfb.
// Package browser manages the Chrome instance recordings run in: local
// launch or remote attach via Rod, optional Xvfb display for headful
// sessions on servers, stealth tabs and resource blocking.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Mode controls how Chrome is shown.
type Mode int

const (
	ModeHeadless Mode = iota // no window, scripted sessions
	ModeHeadful              // visible window, a human drives the page
)

// ParseMode maps a config string to a Mode. Unknown values fall back to
// headful: a recorder mostly watches a person.
func ParseMode(s string) Mode {
	if s == "headless" {
		return ModeHeadless
	}
	return ModeHeadful
}

func (m Mode) String() string {
	if m == ModeHeadless {
		return "headless"
	}
	return "headful"
}

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty = launch a local Chrome.
	RemoteURL string

	Mode Mode

	// Xvfb starts a virtual display for headful mode (servers without X).
	Xvfb        bool
	XvfbDisplay string // default ":99"

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	// Stealth applies go-rod/stealth evasions to every tab.
	Stealth bool

	// UserDataDir keeps a Chrome profile between runs (logins, cookies).
	UserDataDir string

	// NavigateTimeout bounds the initial navigation of a tab. Default 30s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one Chrome process (or remote connection).
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	display *display
	closed  bool
}

// NewManager creates a Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to the remote instance). Starting an
// already started manager returns the existing handle.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	b, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Browser returns the current Rod browser handle, nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Close shuts down Chrome and Xvfb.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		m.cfg.Logger.Info("browser: connecting to remote", "url", wsURL)
	} else {
		u, err := m.launchLocal(ctx)
		if err != nil {
			return nil, err
		}
		wsURL = u
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

// launchLocal starts Chrome (and Xvfb when asked) and returns its
// DevTools URL.
func (m *Manager) launchLocal(ctx context.Context) (string, error) {
	l := launcher.New().
		Leakless(true).
		Headless(m.cfg.Mode == ModeHeadless).
		Set("disable-blink-features", "AutomationControlled")

	if m.cfg.Mode == ModeHeadful && m.cfg.Xvfb {
		d, err := startDisplay(m.cfg.XvfbDisplay, m.cfg.Logger)
		if err != nil {
			return "", fmt.Errorf("browser: xvfb: %w", err)
		}
		m.display = d
		l = l.Env(d.env())
	}
	if m.cfg.UserDataDir != "" {
		l = l.UserDataDir(m.cfg.UserDataDir)
	}

	u, err := l.Context(ctx).Launch()
	if err != nil {
		m.display.stop()
		m.display = nil
		return "", fmt.Errorf("browser: launch: %w", err)
	}
	m.lnch = l
	m.cfg.Logger.Info("browser: launched local chrome", "url", u, "mode", m.cfg.Mode)
	return u, nil
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		// A remote Chrome belongs to someone else: disconnect only.
		if m.lnch != nil {
			err = m.browser.Close()
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.display.stop()
	m.display = nil
	return err
}
