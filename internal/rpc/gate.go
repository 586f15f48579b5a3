package rpc

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	clierr "github.com/bitcli/bitcli/internal/errors"
)

// Gate retries attempts against a node that is not ready yet. With Wait off
// every error is final.
type Gate struct {
	Wait     bool
	Interval time.Duration // between attempts; defaults to one second
	Timeout  time.Duration // total budget in wait mode; zero waits forever
}

// Do runs attempt until it succeeds, fails hard, or the wait budget runs
// out. The first attempt starts immediately; on a spent budget the last
// attempt's error is returned since it names what the gate was waiting on.
func (g *Gate) Do(ctx context.Context, attempt func(context.Context) error) error {
	if !g.Wait {
		return attempt(ctx)
	}

	interval := g.Interval
	if interval <= 0 {
		interval = time.Second
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	var lastErr error
	for {
		if err := limiter.Wait(ctx); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return clierr.Wrap(clierr.KindConnect, "gave up waiting for the server", err)
		}
		err := attempt(ctx)
		if err == nil || !clierr.IsRetryable(err, true) {
			return err
		}
		lastErr = err
	}
}
