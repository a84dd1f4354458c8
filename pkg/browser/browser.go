// Package browser owns the headless Chrome used by the browser-backed
// fallback strategies: launch or connect on first use, hand out stealth
// pages, and shut everything down on Close.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("browser: manager is closed")

// Config configures the browser manager.
type Config struct {
	Logger *slog.Logger

	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty launches a local Chrome via launcher.
	RemoteURL string

	// Bin overrides the Chrome binary used for local launches.
	Bin string
}

// Manager launches Chrome lazily and shares it across pages.
//
// The launch runs in the background, bound to the manager's lifetime. Callers
// wait for it only as long as their own context allows, and never while
// holding the lock.
type Manager struct {
	ctx      context.Context //nolint:containedctx // manager lifetime
	cancel   context.CancelFunc
	browser  *rod.Browser
	lnch     *launcher.Launcher
	starting chan struct{} // closed when the in-flight launch finishes
	startErr error
	cfg      Config
	mu       sync.Mutex
	closed   bool
}

// NewManager creates a Manager. Chrome is not started until the first Page call.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{cfg: cfg, ctx: ctx, cancel: cancel}
}

// Page opens a new tab bound to ctx. With stealthy set, the tab has the
// automation fingerprint patches applied. The caller must close the page.
func (m *Manager) Page(ctx context.Context, stealthy bool) (*rod.Page, error) {
	b, err := m.get(ctx)
	if err != nil {
		return nil, err
	}
	b = b.Context(ctx)

	var page *rod.Page
	if stealthy {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	return page.Context(ctx), nil
}

// Close shuts down Chrome and aborts a launch still in progress.
// Pages still open become unusable.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	err := m.cleanup()
	m.cancel()
	return err
}

func (m *Manager) get(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.browser != nil {
		b := m.browser
		m.mu.Unlock()
		return b, nil
	}
	if m.starting == nil {
		m.starting = make(chan struct{})
		go m.start(m.starting)
	}
	done := m.starting
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("browser: waiting for launch: %w", ctx.Err())
	case <-done:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return nil, ErrClosed
	case m.browser != nil:
		return m.browser, nil
	default:
		return nil, m.startErr
	}
}

// start launches Chrome and publishes the result. A failed launch clears
// the in-flight marker so the next caller tries again.
func (m *Manager) start(done chan struct{}) {
	b, l, err := m.launch(m.ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer close(done)

	m.starting = nil
	if err != nil {
		m.startErr = err
		return
	}
	if m.closed {
		_ = b.Close() //nolint:errcheck // shutting down
		stop(l)
		m.startErr = ErrClosed
		return
	}
	m.browser, m.lnch, m.startErr = b, l, nil
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, *launcher.Launcher, error) {
	log := m.cfg.Logger

	var wsURL string
	var l *launcher.Launcher
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l = launcher.New().Context(ctx).Headless(true)
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			stop(l)
			return nil, nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		log.Info("browser: launched local chrome", "url", wsURL)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		stop(l)
		return nil, nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, l, nil
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return err
}

// stop kills a launched process before removing its profile directory.
func stop(l *launcher.Launcher) {
	if l == nil {
		return
	}
	l.Kill()
	l.Cleanup()
}
