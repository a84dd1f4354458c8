package httpcache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	SetMinDelay(0)
	m.Run()
}

func TestFetchURLNoCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello")) //nolint:errcheck // test
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	body, err := FetchURLWithValidator(context.Background(), nil, srv.Client(), req, nil, nil)
	if err != nil {
		t.Fatalf("FetchURLWithValidator: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q", body)
	}
}

func TestFetchURLHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	_, err = FetchURLWithValidator(context.Background(), nil, srv.Client(), req, nil, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want HTTPError 404", err)
	}
}

func TestFetchURLCachesSuccessOnly(t *testing.T) {
	var calls atomic.Int32
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok")) //nolint:errcheck // test
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}
	defer cache.Close() //nolint:errcheck // test

	ctx := context.Background()

	// Errors are returned but not stored.
	fail.Store(true)
	errURL := srv.URL + "/err"
	for range 2 {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, errURL, http.NoBody)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := FetchURLWithValidator(ctx, cache, srv.Client(), req, nil, nil); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("error responses fetched %d times, want 2", got)
	}

	fail.Store(false)
	calls.Store(0)
	for range 3 {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/ok", http.NoBody)
		if err != nil {
			t.Fatal(err)
		}
		body, err := FetchURLWithValidator(ctx, cache, srv.Client(), req, nil, nil)
		if err != nil {
			t.Fatalf("FetchURLWithValidator: %v", err)
		}
		if string(body) != "ok" {
			t.Errorf("body = %q", body)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("success fetched %d times, want 1", got)
	}
}

func TestFetchURLValidatorSkipsCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("shell")) //nolint:errcheck // test
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}
	defer cache.Close() //nolint:errcheck // test

	ctx := context.Background()
	reject := func([]byte) bool { return false }
	for range 2 {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
		if err != nil {
			t.Fatal(err)
		}
		body, err := FetchURLWithValidator(ctx, cache, srv.Client(), req, nil, reject)
		if err != nil {
			t.Fatalf("FetchURLWithValidator: %v", err)
		}
		if string(body) != "shell" {
			t.Errorf("body = %q", body)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("fetched %d times, want 2", got)
	}
}

func TestURLToKey(t *testing.T) {
	a := URLToKey("https://example.com/a")
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64", len(a))
	}
	if a == URLToKey("https://example.com/b") {
		t.Error("distinct URLs share a key")
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	rl := newDomainRateLimiter(time.Hour)
	ctx := context.Background()
	if err := rl.Wait(ctx, "https://example.com/", nil); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx, "https://example.com/", nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second Wait = %v, want deadline exceeded", err)
	}
}

func TestNullCacheStillFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fresh")) //nolint:errcheck // test
	}))
	defer srv.Close()

	cache := NewNull()
	defer cache.Close() //nolint:errcheck // test
	if cache.TTL() != 0 {
		t.Errorf("TTL() = %v, want 0", cache.TTL())
	}

	before := CacheStats().Misses
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	body, err := FetchURLWithValidator(context.Background(), cache, srv.Client(), req, nil, nil)
	if err != nil {
		t.Fatalf("FetchURLWithValidator: %v", err)
	}
	if string(body) != "fresh" {
		t.Errorf("body = %q", body)
	}
	if CacheStats().Misses <= before {
		t.Error("first lookup through the null cache was not counted as a miss")
	}
}
