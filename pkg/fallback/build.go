package fallback

import (
	"fmt"
	"log/slog"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/browser"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/config"
)

// New builds the chain described by cfg. Browser-backed strategies share br,
// which the caller owns and must close.
func New(cfg config.Config, br *browser.Manager, logger *slog.Logger) (*Chain, error) {
	base, ua := cfg.Upstream.ProfileBase, cfg.Upstream.UserAgent
	t := cfg.Timeouts

	var steps []Step
	for _, name := range cfg.Strategies() {
		var st Step
		switch name {
		case config.StrategyHeadless:
			st = Step{Strategy: NewHeadless(br, base, ua), Timeout: t.Headless}
		case config.StrategyStatic:
			st = Step{Strategy: NewStatic(base, ua), Timeout: t.Static}
		case config.StrategyDriver:
			st = Step{Strategy: NewDriver(cfg.Browser.RemoteURL, cfg.Browser.Bin, base, ua), Timeout: t.Driver}
		case config.StrategyRender:
			st = Step{Strategy: NewRender(br, base, ua), Timeout: t.Render}
		case config.StrategyCurl:
			st = Step{Strategy: NewCurl(cfg.Browser.CurlPath, base, ua), Timeout: t.Curl}
		default:
			return nil, fmt.Errorf("unknown fallback strategy %q", name)
		}
		steps = append(steps, st)
	}
	return NewChain(logger, steps...), nil
}
