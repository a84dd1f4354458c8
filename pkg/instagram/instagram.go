// Package instagram fetches Instagram profile data through the web profile API,
// anonymously or with a restored login session.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/feature"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/httpcache"
)

// DefaultAPIBase is the host serving the profile API.
const DefaultAPIBase = "https://i.instagram.com"

// appID is the web client id the API expects in X-Ig-App-Id.
const appID = "936619743392459"

// ErrAuthRequired is returned when the API rejects the request's credentials.
var ErrAuthRequired = errors.New("authentication required")

var usernamePattern = regexp.MustCompile(`(?i)instagram\.com/([a-zA-Z0-9_.]+)`)

// Username normalizes an account identifier. It accepts a bare name, an
// @-prefixed name, or a profile URL, and returns "" for non-profile URLs.
func Username(input string) string {
	s := strings.TrimSpace(input)
	if !strings.Contains(strings.ToLower(s), "instagram.com/") {
		return strings.TrimPrefix(s, "@")
	}
	matches := usernamePattern.FindStringSubmatch(s)
	if len(matches) < 2 {
		return ""
	}
	name := matches[1]

	// Skip non-profile paths
	systemPaths := map[string]bool{
		"p": true, "reel": true, "reels": true, "stories": true,
		"explore": true, "direct": true, "accounts": true,
		"about": true, "legal": true, "privacy": true,
		"terms": true, "api": true, "developer": true,
	}
	if systemPaths[strings.ToLower(name)] {
		return ""
	}
	return name
}

// Profile holds the fields of an Instagram account that feed the feature vector.
type Profile struct {
	Username      string
	FullName      string
	Biography     string
	ProfilePicURL string
	ExternalURL   string
	Followers     int
	Followees     int
	Posts         int
	IsBusiness    bool
	IsPrivate     bool
	IsVerified    bool
}

// Client handles Instagram requests.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	apiBase    string
	userAgent  string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache      httpcache.Cacher
	logger     *slog.Logger
	jar        http.CookieJar
	httpClient *http.Client
	apiBase    string
	userAgent  string
	timeout    time.Duration
}

// WithHTTPCache sets the HTTP cache used for profile lookups.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithCookieJar attaches session cookies to every request.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *config) { c.jar = jar }
}

// WithAPIBase points the client at another API host, e.g. a test server.
func WithAPIBase(base string) Option {
	return func(c *config) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithHTTPClient replaces the underlying HTTP client. A cookie jar set with
// WithCookieJar is still installed on it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithUserAgent overrides the User-Agent header sent with lookups.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New creates an Instagram client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), apiBase: DefaultAPIBase, userAgent: httpcache.UserAgent, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	} else {
		cp := *hc
		hc = &cp
	}
	if cfg.jar != nil {
		hc.Jar = cfg.jar
	}

	return &Client{
		httpClient: hc,
		cache:      cfg.cache,
		logger:     cfg.logger,
		apiBase:    cfg.apiBase,
		userAgent:  cfg.userAgent,
	}, nil
}

// Lookup retrieves a profile. A missing account yields an error wrapping
// feature.ErrProfileNotFound whose message contains "does not exist".
func (c *Client) Lookup(ctx context.Context, username string) (*Profile, error) {
	return c.lookup(ctx, username, c.cache)
}

// Validate checks that the client's session works by looking up the given
// account, normally the session's own. It always bypasses the cache.
func (c *Client) Validate(ctx context.Context, username string) error {
	_, err := c.lookup(ctx, username, nil)
	return err
}

func (c *Client) lookup(ctx context.Context, username string, cache httpcache.Cacher) (*Profile, error) {
	if username == "" {
		return nil, errors.New("empty username")
	}

	c.logger.DebugContext(ctx, "fetching instagram profile", "username", username)

	apiURL := fmt.Sprintf("%s/api/v1/users/web_profile_info/?username=%s", c.apiBase, url.QueryEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Required header for API access
	req.Header.Set("X-Ig-App-Id", appID)
	req.Header.Set("User-Agent", c.userAgent)
	if token := c.csrfToken(req.URL); token != "" {
		req.Header.Set("X-CSRFToken", token)
	}

	body, err := httpcache.FetchURLWithValidator(ctx, cache, c.httpClient, req, c.logger, hasUser)
	if err != nil {
		return nil, classify(username, err)
	}

	return parseResponse(body, username)
}

func (c *Client) csrfToken(u *url.URL) string {
	if c.httpClient.Jar == nil {
		return ""
	}
	for _, ck := range c.httpClient.Jar.Cookies(u) {
		if ck.Name == "csrftoken" {
			return ck.Value
		}
	}
	return ""
}

// classify maps transport errors onto the error taxonomy.
func classify(username string, err error) error {
	var httpErr *httpcache.HTTPError
	if !errors.As(err, &httpErr) {
		return fmt.Errorf("fetch instagram API: %w", err)
	}
	switch httpErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("profile %q does not exist: %w", username, feature.ErrProfileNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("fetch instagram API: %w: %w", feature.ErrRateLimited, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("fetch instagram API: %w: %w", ErrAuthRequired, err)
	default:
		return fmt.Errorf("fetch instagram API: %w", err)
	}
}

// hasUser keeps responses without a user object out of the cache.
func hasUser(body []byte) bool {
	var resp apiResponse
	return json.Unmarshal(body, &resp) == nil && resp.Data.User != nil && resp.Data.User.Username != ""
}

func parseResponse(data []byte, username string) (*Profile, error) {
	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Status == "fail" && resp.Message != "" {
		return nil, fmt.Errorf("instagram API: %s", resp.Message)
	}

	user := resp.Data.User
	if user == nil || user.Username == "" {
		return nil, fmt.Errorf("profile %q does not exist: %w", username, feature.ErrProfileNotFound)
	}

	pic := user.ProfilePicURLHD
	if pic == "" {
		pic = user.ProfilePicURL
	}

	return &Profile{
		Username:      user.Username,
		FullName:      user.FullName,
		Biography:     user.Biography,
		ProfilePicURL: pic,
		ExternalURL:   user.ExternalURL,
		Followers:     user.EdgeFollowedBy.Count,
		Followees:     user.EdgeFollow.Count,
		Posts:         user.EdgeOwnerToTimelineMedia.Count,
		IsBusiness:    user.IsBusinessAccount,
		IsPrivate:     user.IsPrivate,
		IsVerified:    user.IsVerified,
	}, nil
}

// apiResponse represents the Instagram API response structure.
type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		User *userInfo `json:"user"`
	} `json:"data"`
}

type userInfo struct {
	ID                       string `json:"id"`
	Username                 string `json:"username"`
	FullName                 string `json:"full_name"`
	Biography                string `json:"biography"`
	ProfilePicURL            string `json:"profile_pic_url"`
	ProfilePicURLHD          string `json:"profile_pic_url_hd"`
	ExternalURL              string `json:"external_url"`
	EdgeFollowedBy           count  `json:"edge_followed_by"`
	EdgeFollow               count  `json:"edge_follow"`
	EdgeOwnerToTimelineMedia count  `json:"edge_owner_to_timeline_media"`
	IsVerified               bool   `json:"is_verified"`
	IsBusinessAccount        bool   `json:"is_business_account"`
	IsPrivate                bool   `json:"is_private"`
}

type count struct {
	Count int `json:"count"`
}
