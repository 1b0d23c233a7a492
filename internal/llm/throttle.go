package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledProvider spaces outbound calls to one provider.
type ThrottledProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithThrottle caps p at rps calls per second with a burst of one.
// A non-positive rps returns p unchanged.
func WithThrottle(p Provider, rps float64) Provider {
	if rps <= 0 {
		return p
	}
	return &ThrottledProvider{inner: p, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Generate waits for a token, then calls the wrapped provider. A context
// that ends while waiting is reported as a provider failure.
func (t *ThrottledProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, newProviderError(t.inner.Name(), 0, err)
	}
	return t.inner.Generate(ctx, req)
}

func (t *ThrottledProvider) Name() string {
	return t.inner.Name()
}

func (t *ThrottledProvider) ModelID() string {
	return t.inner.ModelID()
}
