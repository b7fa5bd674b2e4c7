package collector

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/vitalis-app/rosnode-agent/internal/config"
	"github.com/vitalis-app/rosnode-agent/internal/models"
)

// job is a registered collector plus its scheduling state.
type job struct {
	collector Collector
	opts      config.JobConfig
	failures  int
	disabled  bool
}

// Registry manages all registered collectors and orchestrates collection.
// Jobs are kept sorted by priority; a job that fails more than its retry
// budget in a row is disabled.
type Registry struct {
	mu     sync.Mutex
	jobs   []*job
	logger *zap.Logger
}

// NewRegistry creates a new collector registry with the given logger.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		jobs:   make([]*job, 0),
		logger: logger,
	}
}

// Register adds a collector if it's available on the current host.
// Unavailable collectors are logged and skipped.
func (r *Registry) Register(c Collector, opts config.JobConfig) {
	if !c.IsAvailable() {
		r.logger.Warn("Collector not available, skipping", zap.String("name", c.Name()))
		return
	}

	r.mu.Lock()
	r.jobs = append(r.jobs, &job{collector: c, opts: opts})
	sort.SliceStable(r.jobs, func(i, j int) bool {
		return r.jobs[i].opts.Priority < r.jobs[j].opts.Priority
	})
	r.mu.Unlock()

	r.logger.Info("Registered collector",
		zap.String("name", c.Name()),
		zap.Int("priority", opts.Priority),
		zap.Int("retries", opts.Retries))
}

// CollectAll runs all enabled collectors concurrently and returns a map of
// collector name -> values. Failed collectors are logged but do not prevent
// other collectors from completing.
func (r *Registry) CollectAll(ctx context.Context) map[string]models.Values {
	active := r.active()
	results := make(map[string]models.Values, len(active))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, j := range active {
		wg.Add(1)
		go func(j *job) {
			defer wg.Done()
			values, err := j.collector.Collect(ctx)
			r.record(j, err)
			if err != nil {
				return
			}
			mu.Lock()
			results[j.collector.Name()] = values
			mu.Unlock()
		}(j)
	}

	wg.Wait()
	return results
}

// Definitions returns the charts of every registered collector in priority
// order. Disabled jobs keep their charts so the catalog never changes.
func (r *Registry) Definitions() []models.Chart {
	r.mu.Lock()
	defer r.mu.Unlock()
	var charts []models.Chart
	for _, j := range r.jobs {
		charts = append(charts, j.collector.Charts()...)
	}
	return charts
}

// Collectors returns the enabled collectors in priority order.
func (r *Registry) Collectors() []Collector {
	active := r.active()
	result := make([]Collector, len(active))
	for i, j := range active {
		result[i] = j.collector
	}
	return result
}

func (r *Registry) active() []*job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if !j.disabled {
			out = append(out, j)
		}
	}
	return out
}

// record updates the failure streak of j after a cycle.
func (r *Registry) record(j *job, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		j.failures = 0
		return
	}

	j.failures++
	r.logger.Error("Collection failed",
		zap.String("collector", j.collector.Name()),
		zap.Int("consecutive_failures", j.failures),
		zap.Error(err))

	if j.opts.Retries > 0 && j.failures > j.opts.Retries {
		j.disabled = true
		r.logger.Error("Collector exceeded retry budget, disabling",
			zap.String("collector", j.collector.Name()),
			zap.Int("retries", j.opts.Retries))
	}
}
