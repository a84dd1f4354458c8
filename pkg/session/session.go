// Package session manages the pool of authenticated Instagram sessions and
// hands out the first one that still works.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/auth"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/chain"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/httpcache"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/instagram"
)

// ErrNoSession is returned when no credential slot yields a usable session.
var ErrNoSession = errors.New("no usable session")

// Session is an authenticated client bound to one credential slot.
type Session struct {
	client   *instagram.Client
	Username string
	Slot     int
}

// Client returns the session's Instagram client.
func (s *Session) Client() *instagram.Client { return s.client }

// Manager validates credential slots in order. It holds no state between
// calls, so every Acquire revalidates.
type Manager struct {
	store      *Store
	logger     *slog.Logger
	httpClient *http.Client
	cache      httpcache.Cacher
	apiBase    string
	userAgent  string
	usernames  []string
	timeout    time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithAPIBase points every session at another API host.
func WithAPIBase(base string) Option {
	return func(m *Manager) { m.apiBase = base }
}

// WithUserAgent sets the User-Agent every session's client sends.
func WithUserAgent(ua string) Option {
	return func(m *Manager) { m.userAgent = ua }
}

// WithHTTPClient sets the HTTP client each session copies.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) { m.httpClient = hc }
}

// WithHTTPCache sets the cache used by sessions for profile lookups.
// Validation never uses it.
func WithHTTPCache(c httpcache.Cacher) Option {
	return func(m *Manager) { m.cache = c }
}

// WithValidateTimeout bounds each slot's self-check.
func WithValidateTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// New returns a Manager over the given slot usernames. Empty entries are
// unconfigured slots and are skipped.
func New(store *Store, usernames []string, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		usernames: usernames,
		logger:    slog.Default(),
		apiBase:   instagram.DefaultAPIBase,
		timeout:   15 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns a session from the first slot whose stored cookies load and
// pass a self-lookup. Slots are tried in order, and a failing slot never stops
// the search.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	strategies := make([]chain.Strategy[int, *Session], 0, len(m.usernames))
	for i, name := range m.usernames {
		if name == "" {
			continue
		}
		strategies = append(strategies, chain.Func[int, *Session]{
			Label: name,
			Fn:    func(ctx context.Context, _ int) *Session { return m.try(ctx, i, name) },
		})
	}

	sess, idx := chain.First(ctx, 0, strategies, func(s *Session) bool { return s != nil })
	if idx < 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
		}
		return nil, ErrNoSession
	}
	return sess, nil
}

// Check validates every configured slot and reports each result.
// A nil error means the slot is usable.
func (m *Manager) Check(ctx context.Context) map[string]error {
	out := make(map[string]error, len(m.usernames))
	for i, name := range m.usernames {
		if name == "" {
			continue
		}
		_, err := m.open(ctx, i, name)
		out[name] = err
	}
	return out
}

func (m *Manager) try(ctx context.Context, slot int, username string) *Session {
	sess, err := m.open(ctx, slot, username)
	if err != nil {
		if errors.Is(err, ErrNoBlob) {
			m.logger.WarnContext(ctx, "session missing", "slot", slot+1, "username", username)
		} else {
			m.logger.WarnContext(ctx, "session rejected", "slot", slot+1, "username", username, "error", err)
		}
		return nil
	}
	m.logger.InfoContext(ctx, "session acquired", "slot", slot+1, "username", username)
	return sess
}

func (m *Manager) open(ctx context.Context, slot int, username string) (*Session, error) {
	cookies, err := m.store.Load(username)
	if err != nil {
		return nil, err
	}

	hosts := []string{auth.Domain}
	if u, err := url.Parse(m.apiBase); err == nil && u.Host != "" && u.Hostname() != "i."+auth.Domain {
		hosts = append(hosts, u.Host)
	}
	jar, err := auth.NewCookieJar(cookies, hosts...)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	opts := []instagram.Option{
		instagram.WithLogger(m.logger),
		instagram.WithCookieJar(jar),
		instagram.WithAPIBase(m.apiBase),
		instagram.WithUserAgent(m.userAgent),
	}
	if m.httpClient != nil {
		opts = append(opts, instagram.WithHTTPClient(m.httpClient))
	}
	if m.cache != nil {
		opts = append(opts, instagram.WithHTTPCache(m.cache))
	}
	client, err := instagram.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := client.Validate(vctx, username); err != nil {
		return nil, fmt.Errorf("validate %s: %w", username, err)
	}
	return &Session{client: client, Username: username, Slot: slot + 1}, nil
}
