// Package extract runs the full acquisition pipeline for one account:
// session, primary lookup, fallback chain, synthesis and the existence check.
package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/feature"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/instagram"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/session"
)

// SessionSource hands out a validated session, or an error if none works.
type SessionSource interface {
	Acquire(ctx context.Context) (*session.Session, error)
}

// Primary performs the structured lookup with a session. It receives the raw
// identifier, since the username features are computed over it. A nil session
// is a failure, never a panic.
type Primary interface {
	Fetch(ctx context.Context, sess *session.Session, identifier string) feature.Outcome
}

// Fallback recovers a partial signal without a session. It never fails.
type Fallback interface {
	Run(ctx context.Context, username string) (feature.Signal, string)
}

// PrimaryFunc adapts a function to Primary.
type PrimaryFunc func(ctx context.Context, sess *session.Session, identifier string) feature.Outcome

// Fetch calls f.
func (f PrimaryFunc) Fetch(ctx context.Context, sess *session.Session, identifier string) feature.Outcome {
	return f(ctx, sess, identifier)
}

// SessionLookup is the default Primary: one profile lookup through the
// session's client.
var SessionLookup = PrimaryFunc(func(ctx context.Context, sess *session.Session, identifier string) feature.Outcome {
	if sess == nil || sess.Client() == nil {
		return feature.Failure(session.ErrNoSession)
	}
	return sess.Client().FetchFeatures(ctx, identifier)
})

// Pipeline extracts feature vectors. It is safe for concurrent use as long
// as its collaborators are.
type Pipeline struct {
	sessions       SessionSource
	primary        Primary
	fallback       Fallback
	logger         *slog.Logger
	primaryTimeout time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithPrimary replaces the primary lookup.
func WithPrimary(primary Primary) Option {
	return func(p *Pipeline) { p.primary = primary }
}

// WithPrimaryTimeout bounds the primary lookup.
func WithPrimaryTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.primaryTimeout = d }
}

// New returns a Pipeline.
func New(sessions SessionSource, fallback Fallback, opts ...Option) *Pipeline {
	p := &Pipeline{
		sessions:       sessions,
		primary:        SessionLookup,
		fallback:       fallback,
		logger:         slog.Default(),
		primaryTimeout: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Source says where a result came from.
type Source int

// Result sources.
const (
	SourceInvalid   Source = iota // identifier was not a username
	SourceNotFound                // primary lookup said the account does not exist
	SourcePrimary                 // primary lookup succeeded
	SourceFallback                // a fallback strategy recovered the bio
	SourceExhausted               // every strategy came back empty
)

func (s Source) String() string {
	switch s {
	case SourceNotFound:
		return "not_found"
	case SourcePrimary:
		return "primary"
	case SourceFallback:
		return "fallback"
	case SourceExhausted:
		return "exhausted"
	default:
		return "invalid"
	}
}

// Report is a result plus how it was reached.
type Report struct {
	Strategy string
	Result   feature.Result
	Source   Source
}

// Extract returns the feature vector for identifier, or the not-found error
// record. It never returns anything else.
func (p *Pipeline) Extract(ctx context.Context, identifier string) feature.Result {
	return p.Run(ctx, identifier).Result
}

// Run is Extract with provenance.
func (p *Pipeline) Run(ctx context.Context, identifier string) Report {
	username := instagram.Username(identifier)
	if username == "" {
		return Report{Result: feature.Missing(), Source: SourceInvalid}
	}

	logger := p.logger.With("username", username)
	if id, err := uuid.GenerateUUID(); err == nil {
		logger = logger.With("extraction_id", id)
	}
	logger.InfoContext(ctx, "extracting features")

	outcome := p.runPrimary(ctx, logger, identifier)
	switch outcome.Status {
	case feature.StatusNotFound:
		logger.InfoContext(ctx, "profile does not exist")
		return Report{Result: feature.Missing(), Source: SourceNotFound}
	case feature.StatusSuccess:
		logger.InfoContext(ctx, "primary lookup succeeded")
		return Report{
			Result: feature.Found(feature.Synthesize(identifier, feature.OriginPrimary, outcome.Signal)),
			Source: SourcePrimary,
		}
	}

	logger.InfoContext(ctx, "primary lookup failed, trying fallbacks", "error", outcome.Cause)
	sig, winner := p.fallback.Run(ctx, username)
	rep := Report{
		Result:   p.finish(ctx, logger, feature.Synthesize(identifier, feature.OriginFallback, sig)),
		Source:   SourceExhausted,
		Strategy: winner,
	}
	if winner != "" {
		logger.InfoContext(ctx, "fallback succeeded", "strategy", winner, "bio_length", sig.BioLength)
		rep.Source = SourceFallback
	}
	return rep
}

func (p *Pipeline) runPrimary(ctx context.Context, logger *slog.Logger, identifier string) feature.Outcome {
	sess, err := p.sessions.Acquire(ctx)
	if err != nil {
		logger.WarnContext(ctx, "no session available", "error", err)
	} else {
		logger = logger.With("session", sess.Username)
	}

	pctx := ctx
	if p.primaryTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, p.primaryTimeout)
		defer cancel()
	}
	out := p.primary.Fetch(pctx, sess, identifier)
	logger.DebugContext(ctx, "primary lookup finished", "status", out.Status)
	return out
}

func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, v feature.Vector) feature.Result {
	res := feature.Classify(v)
	if !res.OK() {
		logger.InfoContext(ctx, "no informative signal, reporting as nonexistent")
	}
	return res
}
