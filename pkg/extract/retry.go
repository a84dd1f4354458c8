package extract

import (
	"context"
	"errors"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

var errExhausted = errors.New("all strategies came back empty")

// Retrying repeats whole extraction calls while every strategy comes back
// empty, up to attempts calls in total. A definite answer, found or not
// found, is never retried.
func (p *Pipeline) Retrying(ctx context.Context, identifier string, attempts uint, delay time.Duration) Report {
	if attempts <= 1 {
		return p.Run(ctx, identifier)
	}

	var last Report
	err := retry.Do(
		func() error {
			last = p.Run(ctx, identifier)
			if last.Source == SourceExhausted {
				return errExhausted
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errExhausted) }),
		retry.OnRetry(func(n uint, err error) {
			p.logger.InfoContext(ctx, "retrying extraction", "identifier", identifier, "attempt", n+2, "error", err)
		}),
	)
	if err != nil && !errors.Is(err, errExhausted) {
		p.logger.DebugContext(ctx, "extraction retries stopped", "identifier", identifier, "error", err)
	}
	return last
}
