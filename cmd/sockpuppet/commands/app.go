package commands

import (
	"fmt"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/browser"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/extract"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/fallback"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/httpcache"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/session"
)

// app holds the long-lived pieces one process shares across extractions.
type app struct {
	pipeline *extract.Pipeline
	sessions *session.Manager
	browser  *browser.Manager
	cache    *httpcache.Cache
}

func newSessionManager(c *httpcache.Cache) *session.Manager {
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithAPIBase(cfg.Upstream.APIBase),
		session.WithUserAgent(cfg.Upstream.UserAgent),
		session.WithValidateTimeout(cfg.Timeouts.Session),
	}
	if c != nil {
		opts = append(opts, session.WithHTTPCache(c))
	}
	return session.New(session.NewStore(cfg.Sessions.Dir), cfg.Slots(), opts...)
}

func newApp(useCache bool) (*app, error) {
	a := &app{}
	if useCache {
		var err error
		if cfg.CacheDir != "" {
			a.cache, err = httpcache.NewWithPath(cfg.CacheTTL, cfg.CacheDir)
		} else {
			a.cache, err = httpcache.New(cfg.CacheTTL)
		}
		if err != nil {
			logger.Warn("failed to initialize disk cache, continuing without persistence", "error", err)
			a.cache = httpcache.NewNull()
		} else {
			logger.Debug("HTTP cache initialized", "ttl", cfg.CacheTTL.String())
		}
	}

	a.browser = browser.NewManager(browser.Config{
		Logger:    logger,
		RemoteURL: cfg.Browser.RemoteURL,
		Bin:       cfg.Browser.Bin,
	})
	chain, err := fallback.New(cfg, a.browser, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("fallback chain: %w", err)
	}
	logger.Debug("fallback chain ready", "strategies", chain.Names())

	a.sessions = newSessionManager(a.cache)
	a.pipeline = extract.New(a.sessions, chain,
		extract.WithLogger(logger),
		extract.WithPrimaryTimeout(cfg.Timeouts.Primary),
	)
	return a, nil
}

func (a *app) close() {
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}
	stats := httpcache.CacheStats()
	logger.Debug("cache stats", "hits", stats.Hits, "misses", stats.Misses)
}
