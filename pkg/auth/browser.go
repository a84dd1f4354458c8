package auth

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser cookie stores
	"github.com/browserutils/kooky/browser/chrome"
	"github.com/browserutils/kooky/browser/firefox"
)

// BrowserSource reads Instagram cookies from local browser cookie stores.
type BrowserSource struct {
	logger *slog.Logger
}

// NewBrowserSource creates a new browser cookie source.
func NewBrowserSource(logger *slog.Logger) *BrowserSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserSource{logger: logger}
}

// Cookies returns Instagram cookies from the first browser store that has them.
func (s *BrowserSource) Cookies(ctx context.Context) (map[string]string, error) {
	s.logger.DebugContext(ctx, "reading browser cookies", "domain", Domain)

	// Zen Browser and Chrome Canary are not auto-detected by kooky.
	if cookies := s.tryFirefoxFamily(ctx, "zen", "Profiles"); len(cookies) > 0 {
		return cookies, nil
	}
	if cookies := s.tryChromeCanary(ctx); len(cookies) > 0 {
		return cookies, nil
	}
	if cookies := s.tryFirefoxFamily(ctx, "Firefox", "Profiles"); len(cookies) > 0 {
		return cookies, nil
	}

	// Fall back to kooky's automatic browser detection
	kookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(Domain))
	if err != nil {
		s.logger.Debug("failed to read browser cookies", "error", err)
		return nil, nil //nolint:nilnil // failed browser read is not a fatal error
	}
	if len(kookies) == 0 {
		return nil, nil //nolint:nilnil // no browser cookies is not an error
	}

	return s.filterEssential(kookies), nil
}

// tryFirefoxFamily reads cookies.sqlite from macOS profiles of a Firefox-based browser.
func (s *BrowserSource) tryFirefoxFamily(ctx context.Context, app, profilesDir string) map[string]string {
	home := os.Getenv("HOME")
	if home == "" {
		return nil
	}

	pattern := filepath.Join(home, "Library", "Application Support", app, profilesDir, "*", "cookies.sqlite")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return nil
	}

	for _, f := range matches {
		kookies, err := firefox.ReadCookies(ctx, f, kooky.Valid, kooky.DomainHasSuffix(Domain))
		if err != nil {
			s.logger.Debug("failed to read cookies", "browser", app, "profile", filepath.Base(filepath.Dir(f)), "error", err)
			continue
		}
		if len(kookies) > 0 {
			s.logger.Debug("found cookies", "browser", app, "profile", filepath.Base(filepath.Dir(f)), "count", len(kookies))
			return s.filterEssential(kookies)
		}
	}
	return nil
}

// tryChromeCanary attempts to read cookies from Chrome Canary profiles.
func (s *BrowserSource) tryChromeCanary(ctx context.Context) map[string]string {
	home := os.Getenv("HOME")
	if home == "" {
		return nil
	}

	canaryDir := filepath.Join(home, "Library", "Application Support", "Google", "Chrome Canary")
	for _, profile := range []string{"Default", "Profile 1", "Profile 2", "Profile 3"} {
		cookiesFile := filepath.Join(canaryDir, profile, "Cookies")
		if _, err := os.Stat(cookiesFile); err != nil {
			continue
		}

		kookies, err := chrome.ReadCookies(ctx, cookiesFile, kooky.Valid, kooky.DomainHasSuffix(Domain))
		if err != nil {
			if strings.Contains(err.Error(), "encryption") || strings.Contains(err.Error(), "decrypt") {
				s.logger.Warn("Chrome Canary cookies exist but cannot be decrypted",
					"profile", profile,
					"hint", "try Firefox, Zen Browser, or set INSTAGRAM_* environment variables")
			} else {
				s.logger.Debug("failed to read Chrome Canary cookies", "profile", profile, "error", err)
			}
			continue
		}
		if len(kookies) > 0 {
			return s.filterEssential(kookies)
		}
	}
	return nil
}

// filterEssential keeps only the session cookies.
func (s *BrowserSource) filterEssential(kookies []*kooky.Cookie) map[string]string {
	cookies := filterEssential(kookies)

	var missing []string
	for _, name := range Essential {
		if _, ok := cookies[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		s.logger.Info("browser cookies missing", "keys", missing)
	}
	return cookies
}

func filterEssential(kookies []*kooky.Cookie) map[string]string {
	want := make(map[string]bool, len(Essential))
	for _, name := range Essential {
		want[name] = true
	}
	cookies := make(map[string]string)
	for _, c := range kookies {
		if want[c.Name] {
			cookies[c.Name] = c.Value
		}
	}
	return cookies
}
