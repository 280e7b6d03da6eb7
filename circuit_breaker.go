package memcache

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards the wire exchange of every operation when
// configured. It rejects calls outright while open; it never retries.
type CircuitBreaker = *gobreaker.CircuitBreaker[any]

// NewCircuitBreakerConfig returns a constructor suitable for
// Config.NewCircuitBreaker. The breaker opens once at least three requests
// were seen and 60% of them failed.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(addr string) CircuitBreaker {
	return func(addr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[any](settings)
	}
}
