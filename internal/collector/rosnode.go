// ROS node collector: discovers running nodes with `rosnode list` and
// describes them with `rosnode info`.
package collector

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vitalis-app/rosnode-agent/internal/charts"
	"github.com/vitalis-app/rosnode-agent/internal/models"
	"github.com/vitalis-app/rosnode-agent/internal/pipeline"
	"github.com/vitalis-app/rosnode-agent/internal/rosnode"
)

// RosnodeOptions configures a RosnodeCollector.
type RosnodeOptions struct {
	ListCommand    string
	InfoCommand    string
	CommandTimeout time.Duration
}

// RosnodeCollector runs the rosnode discovery pipeline once per cycle.
type RosnodeCollector struct {
	opts    RosnodeOptions
	checker pipeline.Checker
	driver  *pipeline.Driver
	charts  *charts.Registry
	logger  *zap.Logger
}

// NewRosnodeCollector creates a rosnode collector that executes commands
// through runner after gating them with checker.
func NewRosnodeCollector(opts RosnodeOptions, runner pipeline.Runner, checker pipeline.Checker, logger *zap.Logger) *RosnodeCollector {
	if opts.ListCommand == "" {
		opts.ListCommand = rosnode.DefaultListCommand
	}
	if opts.InfoCommand == "" {
		opts.InfoCommand = rosnode.DefaultInfoCommand
	}
	logger = logger.With(zap.String("collector", "rosnode"))

	return &RosnodeCollector{
		opts:    opts,
		checker: checker,
		driver: pipeline.NewDriver(
			rosnode.Stages(opts.ListCommand, opts.InfoCommand),
			runner, checker, opts.CommandTimeout, logger),
		charts: rosnode.Charts(),
		logger: logger,
	}
}

// Name returns the collector identifier.
func (c *RosnodeCollector) Name() string { return "rosnode" }

// Collect drives the pipeline and fills every declared dimension that the
// pipeline left unset. Command failures never fail the cycle, and neither
// does the cycle deadline: whatever ran before it is returned. Only a
// cancelled parent context, i.e. shutdown, is reported as an error.
func (c *RosnodeCollector) Collect(ctx context.Context) (models.Values, error) {
	values := make(models.Values)
	outcome := c.driver.Run(ctx, values)
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return nil, err
	}

	defaulted := c.charts.Missing(values)
	c.charts.Fill(values)

	nodes, _ := values.Int(rosnode.DimNodesNumber)
	c.logger.Debug("Collected rosnode values",
		zap.Int64("nodes", nodes),
		zap.Strings("executed", outcome.Executed),
		zap.String("stopped_at", outcome.StoppedAt),
		zap.Strings("defaulted", defaulted),
		zap.NamedError("pipeline_error", outcome.Err))

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.logger.Warn("Cycle deadline reached, returning partial values",
			zap.Strings("executed", outcome.Executed),
			zap.Strings("defaulted", defaulted))
	}

	return values, nil
}

// Charts returns the rosnode chart catalog.
func (c *RosnodeCollector) Charts() []models.Chart { return c.charts.Charts() }

// IsAvailable reports whether the discovery command can be executed.
func (c *RosnodeCollector) IsAvailable() bool {
	return c.checker.IsRunnable(c.opts.ListCommand)
}
