package fallback

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-rod/rod/lib/proto"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/browser"
)

// bioSelector matches the rendered bio block of a profile page.
const bioSelector = "section [role='presentation']"

// Headless renders the profile in a stealth headless Chrome and measures the
// rendered bio block.
type Headless struct {
	browser        *browser.Manager
	base           string
	userAgent      string
	imageTimeout   time.Duration
	elementTimeout time.Duration
}

// NewHeadless returns the headless strategy. An empty ua sends UserAgent.
func NewHeadless(br *browser.Manager, base, ua string) *Headless {
	return &Headless{
		browser:        br,
		base:           base,
		userAgent:      agentOrDefault(ua),
		imageTimeout:   10 * time.Second,
		elementTimeout: 5 * time.Second,
	}
}

// Name implements Strategy.
func (*Headless) Name() string { return "headless" }

// BioLength implements Strategy. A page without a bio block yields zero.
func (h *Headless) BioLength(ctx context.Context, username string) (int, error) {
	page, err := h.browser.Page(ctx, true)
	if err != nil {
		return 0, err
	}
	defer page.Close() //nolint:errcheck // best effort

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: h.userAgent}); err != nil {
		return 0, fmt.Errorf("set user agent: %w", err)
	}
	if err := page.Navigate(ProfileURL(h.base, username)); err != nil {
		return 0, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return 0, fmt.Errorf("wait load: %w", err)
	}
	if _, err := page.Timeout(h.imageTimeout).Element("img"); err != nil {
		return 0, fmt.Errorf("wait for img: %w", err)
	}

	el, err := page.Timeout(h.elementTimeout).Element(bioSelector)
	if err != nil {
		return 0, nil
	}
	text, err := el.Text()
	if err != nil {
		return 0, nil
	}
	return utf8.RuneCountInString(text), nil
}
