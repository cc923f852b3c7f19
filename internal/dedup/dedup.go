// Package dedup collapses concurrent analysis requests for the same token
// into a single upstream fetch and scoring pass. The expensive, rate-limited
// provider is only ever asked once per token at a time, no matter how many
// batch items race for it.
package dedup

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/yourorg/token-risk-engine/internal/fetch"
	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/ratelimit"
	"github.com/yourorg/token-risk-engine/internal/scoring"
)

// DefaultTimeout bounds one analysis. It sits below the platform's outer
// request budget so response assembly still has margin when an item blows up.
const DefaultTimeout = 25 * time.Second

// ErrTimeout is returned when the analysis lost the race against the
// per-token timeout. The token is retryable on a later request.
var ErrTimeout = errors.New("analysis timed out")

// Registry coordinates in-flight analyses. The singleflight group owns the
// token-key -> pending-computation mapping and removes entries when the
// computation settles, whether it succeeded, failed or timed out.
type Registry struct {
	group        singleflight.Group
	fetcher      fetch.SecurityFetcher
	limiter      *ratelimit.Limiter
	maxPerMinute int
	timeout      time.Duration
}

// New creates a registry around the given provider and limiter.
func New(fetcher fetch.SecurityFetcher, limiter *ratelimit.Limiter, maxPerMinute int) *Registry {
	return &Registry{
		fetcher:      fetcher,
		limiter:      limiter,
		maxPerMinute: maxPerMinute,
		timeout:      DefaultTimeout,
	}
}

// WithTimeout overrides the per-token analysis timeout.
func (r *Registry) WithTimeout(timeout time.Duration) *Registry {
	r.timeout = timeout
	return r
}

// Analyze produces a risk score for the token, attaching to an in-flight
// computation for the same key when one exists. Callers racing for the same
// token all observe the identical result.
//
// Outcomes: a score (possibly the synthetic "unknown" score when the
// provider call failed), ErrTimeout when the 25s race was lost, or a
// *ratelimit.RateLimitedError when the provider budget is exhausted.
func (r *Registry) Analyze(ctx context.Context, token model.TokenKey, liquidityUSD float64) (*model.RiskScore, error) {
	// The chain-native pseudo-token never reaches the provider.
	if token.Chain.IsNativeToken(token.Address) {
		return scoring.NativeScore(token), nil
	}

	key := token.String()
	ch := r.group.DoChan(key, func() (interface{}, error) {
		return r.analyzeOnce(token, liquidityUSD)
	})

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.RiskScore), nil
	case <-timer.C:
		// Forget the key so the next request starts fresh instead of
		// attaching to a doomed computation.
		r.group.Forget(key)
		logrus.WithField("token", key).Warn("Token analysis timed out")
		return nil, ErrTimeout
	case <-ctx.Done():
		r.group.Forget(key)
		return nil, ctx.Err()
	}
}

// analyzeOnce is the single underlying computation per token key: rate-limit
// check, upstream fetch, scoring. The fetch runs under its own timeout
// context so abandoned work is actually cancelled rather than left running.
func (r *Registry) analyzeOnce(token model.TokenKey, liquidityUSD float64) (*model.RiskScore, error) {
	res := r.limiter.Check(r.fetcher.ServiceName(), r.maxPerMinute)
	if !res.Allowed {
		return nil, &ratelimit.RateLimitedError{
			Service:           r.fetcher.ServiceName(),
			RetryAfterSeconds: res.RetryAfterSeconds,
		}
	}

	fetchCtx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	report, err := r.fetcher.FetchSecurity(fetchCtx, token.Chain, token.Address)
	if err != nil {
		// The inner deadline is the analysis timeout; report it as such so
		// callers see a timeout rather than a provider exception.
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		// Other provider failures degrade to the synthetic unknown score rather
		// than propagating; the token stays analyzable later.
		logrus.WithFields(logrus.Fields{
			"token": token.String(),
			"error": err,
		}).Warn("Security fetch failed, returning unknown score")
		return scoring.UnknownScore(token, err.Error()), nil
	}

	return scoring.Score(token, report, liquidityUSD), nil
}
