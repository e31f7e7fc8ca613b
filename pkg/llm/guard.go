package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/medgraph/medgraph/pkg/resilience"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 20 * time.Second

// GuardOpts configures a Guard.
type GuardOpts struct {
	Timeout time.Duration
	// Rate is the sustained number of calls per second; 0 disables limiting.
	Rate    float64
	Burst   int
	Breaker resilience.BreakerOpts
	Logger  *slog.Logger
}

// Guard wraps a Chatter with a per-call timeout, a client-side rate limit
// and a circuit breaker. Calls are never retried.
type Guard struct {
	next    Chatter
	timeout time.Duration
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *slog.Logger
}

// NewGuard wraps next.
func NewGuard(next Chatter, opts GuardOpts) *Guard {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var lim *rate.Limiter
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	return &Guard{
		next:    next,
		timeout: opts.Timeout,
		limiter: lim,
		breaker: resilience.NewBreaker(opts.Breaker),
		logger:  opts.Logger,
	}
}

// BreakerState reports the state of the guard's circuit breaker.
func (g *Guard) BreakerState() resilience.State { return g.breaker.State() }

// Chat implements Chatter.
func (g *Guard) Chat(ctx context.Context, msgs []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm: rate limit: %w", err)
		}
	}

	start := time.Now()
	reply, err := resilience.Do(ctx, g.breaker, func(ctx context.Context) (string, error) {
		return g.next.Chat(ctx, msgs)
	})
	if err != nil {
		g.logger.Warn("model call failed", "err", err, "elapsed", time.Since(start), "breaker", g.breaker.State().String())
		return "", err
	}
	return reply, nil
}
