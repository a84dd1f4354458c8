package fallback

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/htmlutil"
)

// Driver drives a separate Chrome over the DevTools protocol, lets the page
// settle, then reads the meta description from the live DOM.
type Driver struct {
	remoteURL string
	bin       string
	base      string
	userAgent string
	settle    time.Duration
}

// NewDriver returns the driver strategy. A non-empty remoteURL attaches to a
// running Chrome; otherwise each attempt starts its own. An empty ua sends
// UserAgent.
func NewDriver(remoteURL, bin, base, ua string) *Driver {
	return &Driver{remoteURL: remoteURL, bin: bin, base: base, userAgent: agentOrDefault(ua), settle: 5 * time.Second}
}

// Name implements Strategy.
func (*Driver) Name() string { return "driver" }

// BioLength implements Strategy.
func (d *Driver) BioLength(ctx context.Context, username string) (int, error) {
	allocCtx, cancel := d.allocator(ctx)
	defer cancel()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var content string
	var ok bool
	err := chromedp.Run(tabCtx,
		emulation.SetUserAgentOverride(d.userAgent),
		chromedp.Navigate(ProfileURL(d.base, username)),
		chromedp.Sleep(d.settle),
		chromedp.AttributeValue(`meta[name="description"]`, "content", &content, &ok, chromedp.ByQuery, chromedp.AtLeast(0)),
	)
	if err != nil {
		return 0, fmt.Errorf("chromedp: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return htmlutil.BioLength(content), nil
}

func (d *Driver) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.remoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, d.remoteURL)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(d.userAgent),
	)
	if d.bin != "" {
		opts = append(opts, chromedp.ExecPath(d.bin))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}
