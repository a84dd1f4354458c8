package fallback

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/browser"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/htmlutil"
)

// Render fetches the page with a cookie-keeping HTTP session, then loads the
// document into a browser tab so its scripts run before the description is
// read.
type Render struct {
	browser   *browser.Manager
	base      string
	userAgent string
}

// NewRender returns the render strategy. An empty ua sends UserAgent.
func NewRender(br *browser.Manager, base, ua string) *Render {
	return &Render{browser: br, base: base, userAgent: agentOrDefault(ua)}
}

// Name implements Strategy.
func (*Render) Name() string { return "render" }

// BioLength implements Strategy.
func (r *Render) BioLength(ctx context.Context, username string) (int, error) {
	body, err := r.fetch(ctx, username)
	if err != nil {
		return 0, err
	}

	page, err := r.browser.Page(ctx, false)
	if err != nil {
		return 0, err
	}
	defer page.Close() //nolint:errcheck // best effort

	if err := page.SetDocumentContent(body); err != nil {
		return 0, fmt.Errorf("render: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return 0, fmt.Errorf("wait load: %w", err)
	}

	has, el, err := page.Has(`meta[name="description"]`)
	if err != nil {
		return 0, fmt.Errorf("query: %w", err)
	}
	if !has {
		return 0, nil
	}
	content, err := el.Attribute("content")
	if err != nil {
		return 0, fmt.Errorf("read content: %w", err)
	}
	if content == nil {
		return 0, nil
	}
	return htmlutil.BioLength(*content), nil
}

func (r *Render) fetch(ctx context.Context, username string) (string, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", err
	}
	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("User-Agent", r.userAgent)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	res, err := client.R().SetContext(ctx).Get(ProfileURL(r.base, username))
	if err != nil {
		return "", err
	}
	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", res.StatusCode())
	}
	return res.String(), nil
}
