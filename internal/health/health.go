// Package health tracks dependency liveness for the readiness endpoint.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Pinger is implemented by dependencies that expose a health probe. A nil
// error means healthy.
type Pinger interface {
	HealthPing(ctx context.Context) error
}

// Checker polls one dependency and caches the result.
type Checker struct {
	name    string
	pinger  Pinger
	healthy atomic.Bool
	log     zerolog.Logger
}

func NewChecker(name string, p Pinger, log zerolog.Logger) *Checker {
	return &Checker{name: name, pinger: p, log: log}
}

func (c *Checker) Name() string    { return c.name }
func (c *Checker) IsHealthy() bool { return c.healthy.Load() }

// Start probes on the given interval until ctx is canceled. Transitions are
// logged once, not on every probe.
func (c *Checker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	probe := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		err := c.pinger.HealthPing(pctx)
		cancel()
		was := c.healthy.Load()
		now := err == nil
		c.healthy.Store(now)
		if was != now {
			if now {
				c.log.Info().Str("dependency", c.name).Msg("dependency healthy")
			} else {
				c.log.Error().Err(err).Str("dependency", c.name).Msg("dependency unhealthy")
			}
		}
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}

// Service aggregates checkers into one readiness flag.
type Service struct {
	checkers []*Checker
}

func NewService(checkers ...*Checker) *Service {
	return &Service{checkers: checkers}
}

// IsHealthy reports true only when every dependency is healthy.
func (s *Service) IsHealthy() bool {
	for _, c := range s.checkers {
		if !c.IsHealthy() {
			return false
		}
	}
	return true
}

// Status reports per-dependency health for the endpoint body.
func (s *Service) Status() map[string]bool {
	out := make(map[string]bool, len(s.checkers))
	for _, c := range s.checkers {
		out[c.Name()] = c.IsHealthy()
	}
	return out
}
