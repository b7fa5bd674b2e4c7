// Package collector defines the Collector interface, the registry that runs
// collector jobs each cycle, and the rosnode discovery collector.
package collector

import (
	"context"

	"github.com/vitalis-app/rosnode-agent/internal/models"
)

// Collector is the interface that all metric collectors must implement.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Collect runs one collection cycle and returns its values keyed by
	// dimension id. The context allows for cancellation and timeout control.
	Collect(ctx context.Context) (models.Values, error)

	// Charts returns the static chart definitions the values populate.
	Charts() []models.Chart

	// IsAvailable checks if this collector can run on the current host.
	// Collectors that return false will not be registered.
	IsAvailable() bool
}
