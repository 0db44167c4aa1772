package circuitbreaker

import (
	"log/slog"
	"sync"
)

// Unhealthy-breaker thresholds: a breaker with at least unhealthyMinCalls
// observed calls and a success rate below unhealthyMinSuccessRate is reported
// even when its circuit has not opened yet.
const (
	unhealthyMinCalls       = 10
	unhealthyMinSuccessRate = 50.0
)

// Registry is the process-wide mapping from dependency name to circuit
// breaker with get-or-create semantics. The registry lock guards only the
// map; each breaker synchronizes its own state independently, so a slow
// call through one breaker never blocks lookups of another.
//
// A Registry is constructed explicitly and injected into the components that
// need it; tests can run several independent registries in one process.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates an empty circuit breaker registry.
func NewRegistry() *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
	}
}

// GetOrCreate returns the breaker registered under name, creating it with the
// given policy if absent. Exactly one breaker ever exists per name: concurrent
// first lookups of the same name observe the same instance, and the config of
// later calls is ignored.
func (r *Registry) GetOrCreate(name string, config Config) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	cb := New(name, config)
	r.breakers[name] = cb
	slog.Info("registered circuit breaker", slog.String("circuit", name))
	return cb
}

// Get returns the breaker registered under name, or nil if absent.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.breakers[name]
}

// AllStats returns a snapshot of the counters of every registered breaker.
func (r *Registry) AllStats() map[string]Stats {
	breakers := r.snapshot()
	stats := make(map[string]Stats, len(breakers))
	for name, cb := range breakers {
		stats[name] = cb.StatsSnapshot()
	}
	return stats
}

// ResetAll resets every registered breaker to closed.
func (r *Registry) ResetAll() {
	for _, cb := range r.snapshot() {
		cb.Reset()
	}
	slog.Info("all circuit breakers reset")
}

// Unhealthy returns the names of breakers that are open, or that have served
// at least 10 calls with a success rate below 50%.
func (r *Registry) Unhealthy() []string {
	var names []string
	for name, cb := range r.snapshot() {
		stats := cb.StatsSnapshot()
		if cb.IsOpen() || (stats.TotalCalls >= unhealthyMinCalls && stats.SuccessRate() < unhealthyMinSuccessRate) {
			names = append(names, name)
		}
	}
	return names
}

// snapshot copies the name→breaker map so stats collection and health checks
// never hold the registry lock while touching breaker locks.
func (r *Registry) snapshot() map[string]*CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]*CircuitBreaker, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb
	}
	return out
}
