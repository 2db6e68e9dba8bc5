// Package resilience guards calls to enrichment and generation providers:
// per-provider circuit breakers, transient error classification and
// backoff retries for profile collection.
package resilience

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is the position of a Breaker.
type State int

// Breaker states.
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen rejects a call without reaching the provider.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig tunes a Breaker. Zero fields take DefaultBreakerConfig values.
type BreakerConfig struct {
	Threshold int           // consecutive failures that open the circuit
	Cooldown  time.Duration // open time before a probe is let through
	Probes    int           // successful probes that close it again

	// Trips reports whether err counts as a provider failure. By default
	// every error except context cancellation does.
	Trips func(err error) bool
}

// DefaultBreakerConfig opens after 5 straight failures and probes after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, Cooldown: 30 * time.Second, Probes: 1}
}

// Breaker is a circuit breaker for one provider.
type Breaker struct {
	name string
	cfg  BreakerConfig
	now  func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	probes   int
	openedAt time.Time
}

// NewBreaker returns a closed breaker for the named provider.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Probes <= 0 {
		cfg.Probes = def.Probes
	}
	if cfg.Trips == nil {
		cfg.Trips = func(err error) bool { return !eris.Is(err, context.Canceled) }
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name returns the provider the breaker guards.
func (b *Breaker) Name() string { return b.name }

// Call runs fn unless b is open. Its outcome is recorded against b.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	if err := b.admit(); err != nil {
		var zero T
		return zero, eris.Wrapf(err, "%s", b.name)
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State reports the breaker position. An open breaker whose cooldown has
// elapsed reads as half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.cooledDown() {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) cooledDown() bool {
	return b.now().Sub(b.openedAt) >= b.cfg.Cooldown
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return nil
	}
	if !b.cooledDown() {
		return ErrCircuitOpen
	}
	b.moveTo(StateHalfOpen)
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.Trips(err) {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.probes++
			if b.probes >= b.cfg.Probes {
				b.moveTo(StateClosed)
			}
		}
		return
	}

	b.failures++
	switch {
	case b.state == StateHalfOpen, b.state == StateClosed && b.failures >= b.cfg.Threshold:
		b.openedAt = b.now()
		b.moveTo(StateOpen)
	}
}

// moveTo requires b.mu.
func (b *Breaker) moveTo(to State) {
	from := b.state
	b.state = to
	b.probes = 0

	log := zap.L().With(zap.String("provider", b.name), zap.Stringer("from", from), zap.Stringer("to", to))
	if to == StateOpen {
		log.Warn("resilience: circuit opened", zap.Int("failures", b.failures))
		return
	}
	log.Info("resilience: circuit state change")
}

// Breakers hands out one shared Breaker per provider name.
type Breakers struct {
	cfg BreakerConfig

	mu  sync.Mutex
	set map[string]*Breaker
}

// NewBreakers creates an empty registry whose breakers share cfg.
func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, set: make(map[string]*Breaker)}
}

// For returns the breaker for provider, creating it on first use.
func (r *Breakers) For(provider string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.set[provider]
	if !ok {
		b = NewBreaker(provider, r.cfg)
		r.set[provider] = b
	}
	return b
}

// ProviderState is one row of a Breakers snapshot.
type ProviderState struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
}

// Snapshot lists every known provider and its breaker state, sorted by name.
func (r *Breakers) Snapshot() []ProviderState {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.set))
	for _, b := range r.set {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	out := make([]ProviderState, len(breakers))
	for i, b := range breakers {
		out[i] = ProviderState{Provider: b.name, State: b.State().String()}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}
