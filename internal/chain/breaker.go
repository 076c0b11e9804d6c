package chain

import (
	"github.com/sony/gobreaker/v2"

	"hoja/pkg/config"
	"hoja/pkg/logger"
)

// NewBreaker builds a circuit breaker for one outbound dependency. isSuccessful lets callers
// keep application-level rejections from tripping the breaker; nil counts every error.
func NewBreaker[T any](name string, cfg config.BreakerConfig, log logger.Logger, isSuccessful func(error) bool) *gobreaker.CircuitBreaker[T] {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
		IsSuccessful: isSuccessful,
	})
}
