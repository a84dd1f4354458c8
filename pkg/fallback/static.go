package fallback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/htmlutil"
)

var errUnavailable = errors.New("profile page unavailable")

// Static fetches the profile page once and reads the meta description.
type Static struct {
	client *resty.Client
	base   string
}

// NewStatic returns the static fetch strategy. An empty ua sends UserAgent.
func NewStatic(base, ua string) *Static {
	client := resty.New()
	client.SetHeader("User-Agent", agentOrDefault(ua))
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	return &Static{client: client, base: base}
}

// Name implements Strategy.
func (*Static) Name() string { return "static" }

// BioLength implements Strategy.
func (s *Static) BioLength(ctx context.Context, username string) (int, error) {
	res, err := s.client.R().SetContext(ctx).Get(ProfileURL(s.base, username))
	if err != nil {
		return 0, err
	}
	if res.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content")
	if !ok {
		if htmlutil.IsUnavailable(string(res.Body())) {
			return 0, errUnavailable
		}
		return 0, nil
	}
	return htmlutil.BioLength(desc), nil
}
