package provider

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/resilience"
)

// Guard throttles calls to one upstream service and fails fast while its
// circuit is open. It never retries.
type Guard struct {
	name    string
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewGuard creates a guard. A non-positive rps disables rate limiting; a nil
// breaker disables circuit breaking.
func NewGuard(name string, rps float64, burst int, breaker *resilience.Breaker) *Guard {
	g := &Guard{name: name, breaker: breaker}
	if rps > 0 {
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return g
}

func guardCall[T any](ctx context.Context, g *Guard, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return zero, eris.Wrapf(err, "%s: rate limit wait", g.name)
		}
	}
	if g.breaker == nil {
		return fn(ctx)
	}
	return resilience.Call(ctx, g.breaker, fn)
}

type guardedSearcher struct {
	next  Searcher
	guard *Guard
}

// GuardSearcher wraps s with g.
func GuardSearcher(s Searcher, g *Guard) Searcher {
	return &guardedSearcher{next: s, guard: g}
}

func (s *guardedSearcher) Search(ctx context.Context, query string, sources []string, limit int) ([]model.SourceDocument, error) {
	return guardCall(ctx, s.guard, func(ctx context.Context) ([]model.SourceDocument, error) {
		return s.next.Search(ctx, query, sources, limit)
	})
}

type guardedGenerator struct {
	next  Generator
	guard *Guard
}

// GuardGenerator wraps gen with g.
func GuardGenerator(gen Generator, g *Guard) Generator {
	return &guardedGenerator{next: gen, guard: g}
}

func (gg *guardedGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return guardCall(ctx, gg.guard, func(ctx context.Context) (string, error) {
		return gg.next.Generate(ctx, req)
	})
}
