package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/feature"
)

// flakyFallback comes back empty until its nth call.
type flakyFallback struct {
	succeedOn int
	calls     int
}

func (f *flakyFallback) Run(context.Context, string) (feature.Signal, string) {
	f.calls++
	if f.calls >= f.succeedOn {
		return feature.Signal{BioLength: 3}, "static"
	}
	return feature.Signal{}, ""
}

func TestRetryingExhaustedThenFound(t *testing.T) {
	fb := &flakyFallback{succeedOn: 3}
	p := New(&fakeSessions{}, fb,
		WithPrimary(&fakePrimary{out: feature.Failure(errors.New("down"))}), WithLogger(quiet()))

	rep := p.Retrying(context.Background(), "flaky", 5, 0)
	if rep.Source != SourceFallback || !rep.Result.OK() {
		t.Errorf("Retrying() = %+v", rep)
	}
	if fb.calls != 3 {
		t.Errorf("fallback called %d times, want 3", fb.calls)
	}
}

func TestRetryingGivesUp(t *testing.T) {
	fb := &flakyFallback{succeedOn: 100}
	p := New(&fakeSessions{}, fb,
		WithPrimary(&fakePrimary{out: feature.Failure(errors.New("down"))}), WithLogger(quiet()))

	rep := p.Retrying(context.Background(), "gone", 2, 0)
	if rep.Source != SourceExhausted || rep.Result.OK() {
		t.Errorf("Retrying() = %+v", rep)
	}
	if fb.calls != 2 {
		t.Errorf("fallback called %d times, want 2", fb.calls)
	}
}

func TestRetryingNeverRetriesDefiniteAnswers(t *testing.T) {
	primary := &fakePrimary{out: feature.NotFound()}
	p := New(&fakeSessions{}, &fakeFallback{}, WithPrimary(primary), WithLogger(quiet()))

	rep := p.Retrying(context.Background(), "ghost", 4, 0)
	if rep.Source != SourceNotFound {
		t.Errorf("Source = %v", rep.Source)
	}
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1", primary.calls)
	}
}
