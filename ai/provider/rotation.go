package provider

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Recorder receives per-call telemetry. Satisfied by metrics.Exporter.
type Recorder interface {
	RecordProviderCall(provider string, latency time.Duration, success bool)
}

// Rotation tries an ordered list of generative backends and stops at the
// first success. Each backend call gets its own timeout and rate limit;
// identical concurrent queries collapse into one upstream call.
type Rotation struct {
	providers []Generator
	limiters  []*rate.Limiter
	timeout   time.Duration
	recorder  Recorder
	group     singleflight.Group
}

// NewRotation builds a rotation over the given backends. perCallTimeout
// bounds each attempt; callsPerSecond limits each backend independently.
func NewRotation(providers []Generator, perCallTimeout time.Duration, callsPerSecond float64, recorder Recorder) *Rotation {
	if perCallTimeout <= 0 {
		perCallTimeout = 8 * time.Second
	}
	if callsPerSecond <= 0 {
		callsPerSecond = 5
	}

	limiters := make([]*rate.Limiter, len(providers))
	for i := range providers {
		limiters[i] = rate.NewLimiter(rate.Limit(callsPerSecond), int(callsPerSecond)+1)
	}

	return &Rotation{
		providers: providers,
		limiters:  limiters,
		timeout:   perCallTimeout,
		recorder:  recorder,
	}
}

func (r *Rotation) Name() string {
	return "rotation"
}

// Generate tries each backend in order and returns the first answer.
// Failures are logged; the caller only ever sees ErrUnavailable.
func (r *Rotation) Generate(ctx context.Context, query string) (*Answer, error) {
	if len(r.providers) == 0 {
		return nil, ErrUnavailable
	}

	key := fmt.Sprintf("%x", sha256.Sum256([]byte(query)))
	result, err, _ := r.group.Do(key, func() (any, error) {
		return r.tryEach(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Answer), nil
}

func (r *Rotation) tryEach(ctx context.Context, query string) (*Answer, error) {
	for i, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return nil, ErrUnavailable
		}
		if !r.limiters[i].Allow() {
			slog.Warn("provider rate limited, rotating", "provider", p.Name())
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		start := time.Now()
		answer, err := p.Generate(callCtx, query)
		cancel()

		if r.recorder != nil {
			r.recorder.RecordProviderCall(p.Name(), time.Since(start), err == nil)
		}
		if err != nil {
			slog.Warn("provider call failed, rotating", "provider", p.Name(), "error", err)
			continue
		}
		return answer, nil
	}
	return nil, ErrUnavailable
}
