package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/horarios-app/horarios-bot/internal/health"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes implements HealthChecker on top of the component checker.
// Liveness only asserts the process is responsive; readiness requires every
// registered dependency check to pass.
type Probes struct {
	checker *health.Checker
}

// NewProbes creates probes backed by the given checker.
func NewProbes(checker *health.Checker) *Probes {
	return &Probes{checker: checker}
}

func (p *Probes) Liveness(context.Context) error {
	return nil
}

func (p *Probes) Readiness(ctx context.Context) error {
	if p == nil || p.checker == nil {
		return errors.New("health checker not configured")
	}

	for name, status := range p.checker.Check(ctx) {
		if status != "OK" {
			return fmt.Errorf("%s: %s", name, status)
		}
	}

	return nil
}
