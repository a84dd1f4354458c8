// Package auth collects Instagram login cookies and turns them into cookie jars.
package auth

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// Domain is the cookie domain of Instagram sessions.
const Domain = "instagram.com"

// Essential lists the cookies that make up a logged-in Instagram session.
var Essential = []string{"sessionid", "csrftoken", "ds_user_id"}

// NewCookieJar creates an http.CookieJar populated with the given cookies.
// Each cookie is set for every host listed, so a session can be pointed at a
// non-Instagram API host in tests.
func NewCookieJar(cookies map[string]string, hosts ...string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		hosts = []string{Domain}
	}

	for _, host := range hosts {
		u, err := url.Parse("https://" + host)
		if err != nil {
			return nil, err
		}

		var httpCookies []*http.Cookie
		for name, value := range cookies {
			if value == "" {
				continue
			}
			c := &http.Cookie{Name: name, Value: value, Path: "/"}
			if host == Domain {
				c.Domain = "." + Domain
			}
			httpCookies = append(httpCookies, c)
		}
		jar.SetCookies(u, httpCookies)
		// Plain-http hosts (local test servers) need their own entry.
		jar.SetCookies(&url.URL{Scheme: "http", Host: u.Host}, httpCookies)
	}
	return jar, nil
}

// Source represents a source of authentication cookies.
type Source interface {
	// Cookies returns Instagram cookies, or nil if this source has none.
	Cookies(ctx context.Context) (map[string]string, error)
}

// ChainSources returns cookies from the first source that provides them.
func ChainSources(ctx context.Context, sources ...Source) (map[string]string, error) {
	for _, src := range sources {
		cookies, err := src.Cookies(ctx)
		if err != nil {
			return nil, err
		}
		if len(cookies) > 0 {
			return cookies, nil
		}
	}
	return nil, nil //nolint:nilnil // no source had cookies, but this is not an error
}
