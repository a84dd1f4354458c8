package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/feature"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/httpcache"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/session"
)

func TestMain(m *testing.M) {
	httpcache.SetMinDelay(0)
	os.Exit(m.Run())
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeSessions struct {
	err   error
	calls int
}

func (f *fakeSessions) Acquire(context.Context) (*session.Session, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &session.Session{Username: "slot1", Slot: 1}, nil
}

type fakePrimary struct {
	out        feature.Outcome
	calls      int
	gotNil     bool
	identifier string
}

func (f *fakePrimary) Fetch(_ context.Context, sess *session.Session, identifier string) feature.Outcome {
	f.calls++
	f.gotNil = sess == nil
	f.identifier = identifier
	return f.out
}

type fakeFallback struct {
	winner   string
	sig      feature.Signal
	calls    int
	username string
}

func (f *fakeFallback) Run(_ context.Context, username string) (feature.Signal, string) {
	f.calls++
	f.username = username
	return f.sig, f.winner
}

func TestExtractPrimarySuccess(t *testing.T) {
	sig := feature.Signal{Followers: 10, BioLength: 4, FullnameWords: 2, DigitRatioUsername: 0.25}
	primary := &fakePrimary{out: feature.Success(sig)}
	fb := &fakeFallback{}
	p := New(&fakeSessions{}, fb, WithPrimary(primary), WithLogger(quiet()))

	rep := p.Run(context.Background(), "@abc1")
	if rep.Source != SourcePrimary {
		t.Errorf("Source = %v", rep.Source)
	}
	if !rep.Result.OK() {
		t.Fatalf("Result = %+v", rep.Result)
	}
	if diff := cmp.Diff(feature.Vector(sig), *rep.Result.Vector); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
	if primary.identifier != "@abc1" {
		t.Errorf("primary saw %q, want the raw identifier", primary.identifier)
	}
	if fb.calls != 0 {
		t.Errorf("fallback called %d times after primary success", fb.calls)
	}
}

// The existence heuristic only judges fallback vectors. A primary answer is
// authoritative even when every informative field is zero.
func TestExtractPrimarySuccessIsNotClassified(t *testing.T) {
	sig := feature.Signal{DigitRatioUsername: 0.5}
	p := New(&fakeSessions{}, &fakeFallback{},
		WithPrimary(&fakePrimary{out: feature.Success(sig)}), WithLogger(quiet()))

	rep := p.Run(context.Background(), "ab12")
	if rep.Source != SourcePrimary {
		t.Errorf("Source = %v, want primary", rep.Source)
	}
	if !rep.Result.OK() {
		t.Fatalf("empty primary vector reported missing: %+v", rep.Result.Err)
	}
	if diff := cmp.Diff(feature.Vector(sig), *rep.Result.Vector); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractFallbackUsesRawIdentifier(t *testing.T) {
	fb := &fakeFallback{sig: feature.Signal{BioLength: 3}, winner: "static"}
	p := New(&fakeSessions{}, fb,
		WithPrimary(&fakePrimary{out: feature.Failure(errors.New("429"))}), WithLogger(quiet()))

	res := p.Extract(context.Background(), "@abc1")
	if !res.OK() {
		t.Fatalf("Extract() = %+v", res)
	}
	if res.Vector.DigitRatioUsername != 0.2 {
		t.Errorf("DigitRatioUsername = %v, want 0.2 over \"@abc1\"", res.Vector.DigitRatioUsername)
	}
	if fb.username != "abc1" {
		t.Errorf("fallback saw %q, want the normalized username", fb.username)
	}
}

func TestExtractPrimaryTimeoutRoutesToFallback(t *testing.T) {
	blocking := PrimaryFunc(func(ctx context.Context, _ *session.Session, _ string) feature.Outcome {
		<-ctx.Done()
		return feature.Failure(ctx.Err())
	})
	fb := &fakeFallback{sig: feature.Signal{BioLength: 8}, winner: "headless"}
	p := New(&fakeSessions{}, fb, WithPrimary(blocking), WithPrimaryTimeout(20*time.Millisecond), WithLogger(quiet()))

	start := time.Now()
	rep := p.Run(context.Background(), "slowpoke")
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run() took %v with a 20ms primary timeout", elapsed)
	}
	if rep.Source != SourceFallback || rep.Strategy != "headless" {
		t.Errorf("provenance = %v/%q, want fallback/headless", rep.Source, rep.Strategy)
	}
	if fb.calls != 1 || !rep.Result.OK() || rep.Result.Vector.BioLength != 8 {
		t.Errorf("fallback calls=%d result=%+v", fb.calls, rep.Result)
	}
}

func TestExtractNotFoundSkipsFallback(t *testing.T) {
	fb := &fakeFallback{sig: feature.Signal{BioLength: 99}, winner: "static"}
	p := New(&fakeSessions{}, fb, WithPrimary(&fakePrimary{out: feature.NotFound()}), WithLogger(quiet()))

	rep := p.Run(context.Background(), "ghost")
	if rep.Source != SourceNotFound || rep.Result.OK() {
		t.Errorf("Run() = %+v", rep)
	}
	if rep.Result.Err.Message != feature.NotFoundMessage || rep.Result.Err.Status != feature.StatusFailed {
		t.Errorf("Err = %+v", rep.Result.Err)
	}
	if fb.calls != 0 {
		t.Errorf("fallback called %d times after NotFound", fb.calls)
	}
}

func TestExtractFallbackPartialVector(t *testing.T) {
	fb := &fakeFallback{sig: feature.Signal{BioLength: 23}, winner: "static"}
	p := New(&fakeSessions{}, fb,
		WithPrimary(&fakePrimary{out: feature.Failure(errors.New("429"))}), WithLogger(quiet()))

	rep := p.Run(context.Background(), "user12")
	if rep.Source != SourceFallback || rep.Strategy != "static" {
		t.Errorf("provenance = %v/%q", rep.Source, rep.Strategy)
	}
	want := feature.Vector{BioLength: 23, DigitRatioUsername: 0.33}
	if !rep.Result.OK() {
		t.Fatalf("Result = %+v", rep.Result)
	}
	if diff := cmp.Diff(want, *rep.Result.Vector); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractExhausted(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
	}{
		{"letters", "nobody"},
		{"digits only", "123456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeFallback{}
			p := New(&fakeSessions{}, fb,
				WithPrimary(&fakePrimary{out: feature.Failure(errors.New("timeout"))}), WithLogger(quiet()))

			rep := p.Run(context.Background(), tt.identifier)
			if rep.Source != SourceExhausted {
				t.Errorf("Source = %v", rep.Source)
			}
			if rep.Result.OK() {
				t.Errorf("zero-signal vector reported as found: %+v", rep.Result.Vector)
			}
			if fb.calls != 1 {
				t.Errorf("fallback called %d times", fb.calls)
			}
		})
	}
}

func TestExtractNoSessionRoutesToFallback(t *testing.T) {
	sessions := &fakeSessions{err: session.ErrNoSession}
	fb := &fakeFallback{sig: feature.Signal{BioLength: 5}, winner: "curl"}
	p := New(sessions, fb, WithLogger(quiet()))

	res := p.Extract(context.Background(), "someone")
	if !res.OK() || res.Vector.BioLength != 5 {
		t.Errorf("Extract() = %+v", res)
	}
	if sessions.calls != 1 || fb.calls != 1 {
		t.Errorf("sessions=%d fallback=%d calls", sessions.calls, fb.calls)
	}
}

func TestExtractNilSessionReachesPrimary(t *testing.T) {
	primary := &fakePrimary{out: feature.Failure(session.ErrNoSession)}
	p := New(&fakeSessions{err: session.ErrNoSession}, &fakeFallback{}, WithPrimary(primary), WithLogger(quiet()))
	p.Extract(context.Background(), "someone")
	if primary.calls != 1 || !primary.gotNil {
		t.Errorf("primary calls=%d gotNil=%v", primary.calls, primary.gotNil)
	}
}

func TestExtractInvalidIdentifier(t *testing.T) {
	sessions := &fakeSessions{}
	p := New(sessions, &fakeFallback{}, WithLogger(quiet()))
	for _, id := range []string{"", "   ", "https://instagram.com/p/XYZ"} {
		rep := p.Run(context.Background(), id)
		if rep.Source != SourceInvalid || rep.Result.OK() {
			t.Errorf("Run(%q) = %+v", id, rep)
		}
	}
	if sessions.calls != 0 {
		t.Errorf("sessions acquired for invalid identifiers")
	}
}

func TestSessionLookupNilSession(t *testing.T) {
	out := SessionLookup.Fetch(context.Background(), nil, "x")
	if out.Status != feature.StatusFailure || !errors.Is(out.Cause, session.ErrNoSession) {
		t.Errorf("Fetch(nil) = %+v", out)
	}
}

// End to end through a real session manager and the default primary lookup.
func TestExtractThroughSessionManager(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sessionid"); err != nil || c.Value != "ok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("username") {
		case "bot":
			_, _ = w.Write([]byte(`{"status":"ok","data":{"user":{"username":"bot"}}}`)) //nolint:errcheck // test
		case "jane99":
			_, _ = w.Write([]byte(`{"status":"ok","data":{"user":{
				"username":"jane99","full_name":"Jane","biography":"hi",
				"edge_followed_by":{"count":7},"edge_follow":{"count":8},
				"edge_owner_to_timeline_media":{"count":9}}}}`)) //nolint:errcheck // test
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "session-bot"), []byte(`{"sessionid":"ok"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	mgr := session.New(session.NewStore(dir), []string{"bot"}, session.WithAPIBase(srv.URL), session.WithLogger(quiet()))
	fb := &fakeFallback{}
	p := New(mgr, fb, WithLogger(quiet()))

	res := p.Extract(context.Background(), "@jane99")
	want := feature.Vector{
		Followers: 7, Followees: 8, Posts: 9, BioLength: 2, FullnameWords: 1,
		DigitRatioUsername: 0.29,
	}
	if !res.OK() {
		t.Fatalf("Extract() = %+v", res)
	}
	if diff := cmp.Diff(want, *res.Vector); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}

	if res := p.Extract(context.Background(), "nosuchuser"); res.OK() {
		t.Errorf("missing user extracted: %+v", res)
	}
	if fb.calls != 0 {
		t.Errorf("fallback called %d times", fb.calls)
	}
}
