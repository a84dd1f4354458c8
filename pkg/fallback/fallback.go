// Package fallback recovers a partial profile signal without a session.
//
// Every strategy targets the same thing, the public bio, through a different
// technique. Strategies run one at a time in order and the first positive bio
// length wins.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/chain"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/feature"
)

// DefaultProfileBase is the public profile host.
const DefaultProfileBase = "https://www.instagram.com"

// UserAgent is the minimal agent string the scraping strategies send unless
// told otherwise.
const UserAgent = "Mozilla/5.0"

func agentOrDefault(ua string) string {
	if ua == "" {
		return UserAgent
	}
	return ua
}

// Strategy recovers the bio length of a public profile.
// A zero length with a nil error means the page had no bio.
type Strategy interface {
	Name() string
	BioLength(ctx context.Context, username string) (int, error)
}

// Step is a strategy with its time budget.
type Step struct {
	Strategy Strategy
	Timeout  time.Duration
}

// Chain runs steps in order.
type Chain struct {
	logger *slog.Logger
	steps  []Step
}

// NewChain returns a chain over steps. A nil logger uses slog.Default.
func NewChain(logger *slog.Logger, steps ...Step) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{logger: logger, steps: steps}
}

// Names lists the strategies in run order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.steps))
	for i, st := range c.steps {
		names[i] = st.Strategy.Name()
	}
	return names
}

// Run returns the signal of the first strategy reporting a positive bio
// length, and that strategy's name. When none does, it returns the all-zero
// signal and an empty name. Run never fails.
func (c *Chain) Run(ctx context.Context, username string) (feature.Signal, string) {
	strategies := make([]chain.Strategy[string, feature.Signal], len(c.steps))
	for i, st := range c.steps {
		strategies[i] = chain.Func[string, feature.Signal]{
			Label: st.Strategy.Name(),
			Fn: func(ctx context.Context, username string) feature.Signal {
				return c.attempt(ctx, st, username)
			},
		}
	}

	sig, idx := chain.First(ctx, username, strategies, func(s feature.Signal) bool { return s.BioLength > 0 })
	if idx < 0 {
		c.logger.InfoContext(ctx, "fallback strategies exhausted", "username", username, "tried", len(c.steps))
		return feature.Signal{}, ""
	}
	return sig, c.steps[idx].Strategy.Name()
}

func (c *Chain) attempt(ctx context.Context, st Step, username string) (sig feature.Signal) {
	name := st.Strategy.Name()
	if st.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, st.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "fallback strategy panicked", "strategy", name, "username", username, "panic", r)
			sig = feature.Signal{}
		}
	}()

	c.logger.DebugContext(ctx, "trying fallback strategy", "strategy", name, "username", username)
	n, err := st.Strategy.BioLength(ctx, username)
	if err != nil {
		c.logger.WarnContext(ctx, "fallback strategy failed",
			"strategy", name, "username", username, "error", err, "elapsed", time.Since(start))
		return feature.Signal{}
	}
	n = max(n, 0)
	c.logger.InfoContext(ctx, "fallback strategy finished",
		"strategy", name, "username", username, "bio_length", n, "elapsed", time.Since(start))
	return feature.Signal{BioLength: n}
}

// ProfileURL returns the public profile page URL for username under base.
func ProfileURL(base, username string) string {
	if base == "" {
		base = DefaultProfileBase
	}
	return fmt.Sprintf("%s/%s/", strings.TrimRight(base, "/"), url.PathEscape(username))
}
