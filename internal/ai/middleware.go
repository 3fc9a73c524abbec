package ai

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimit wraps rt so that every model call first waits on a token bucket.
// rps <= 0 returns rt unchanged.
func RateLimit(rt Runtime, rps float64, burst int) Runtime {
	if rps <= 0 {
		return rt
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{next: rt, lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

type rateLimited struct {
	next Runtime
	lim  *rate.Limiter
}

func (r *rateLimited) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := r.lim.Wait(ctx); err != nil {
		return nil, &RateLimitError{APIError: &APIError{Message: err.Error()}}
	}
	return r.next.Generate(ctx, req)
}

// GenerateStream keeps streaming available through the wrapper. Runtimes that
// cannot stream fall back to a single delta.
func (r *rateLimited) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	if err := r.lim.Wait(ctx); err != nil {
		return &RateLimitError{APIError: &APIError{Message: err.Error()}}
	}
	if sr, ok := r.next.(StreamRuntime); ok {
		return sr.GenerateStream(ctx, req, onDelta)
	}
	resp, err := r.next.Generate(ctx, req)
	if err != nil {
		return err
	}
	onDelta(resp.Text())
	return nil
}
