// Package pipeline drives an ordered list of dependent command stages.
// Each stage builds its command from the values written by earlier stages,
// runs it through a Runner, and parses the output back into the same Values.
// Failures are contained: a cycle always ends with usable (possibly sparse) Values.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitalis-app/rosnode-agent/internal/models"
)

// ErrCommandInvalid is reported when a resolved command fails the
// runnability check. The stage and every later stage are skipped.
var ErrCommandInvalid = errors.New("command is not runnable")

// Stage is one step of the pipeline.
type Stage interface {
	// Name identifies the stage in logs and outcomes.
	Name() string

	// Resolve builds the final command from values written by earlier stages.
	// Returning ok=false skips this stage and all stages after it.
	Resolve(values models.Values) (command string, ok bool)

	// Consume parses raw output lines (terminators included) into values.
	Consume(lines []string, values models.Values)
}

// Runner executes a fully-resolved command and returns its stdout lines,
// each with its line terminator still attached.
type Runner interface {
	Run(ctx context.Context, command string, timeout time.Duration) ([]string, error)
}

// Checker gates a resolved command before it is handed to the Runner.
type Checker interface {
	IsRunnable(command string) bool
}

// Outcome summarizes one pipeline run.
type Outcome struct {
	// Executed lists the commands passed to the Runner, in order.
	Executed []string
	// StoppedAt names the stage that ended the run early, if any.
	StoppedAt string
	// Err is ErrCommandInvalid (wrapped) when a check failed, or the context
	// error when the run was cancelled. Skips and command failures leave it nil.
	Err error
}

// Driver runs stages strictly in declaration order.
type Driver struct {
	stages  []Stage
	runner  Runner
	checker Checker
	timeout time.Duration
	logger  *zap.Logger
}

// NewDriver creates a driver over the given stages. timeout bounds each
// individual command.
func NewDriver(stages []Stage, runner Runner, checker Checker, timeout time.Duration, logger *zap.Logger) *Driver {
	return &Driver{
		stages:  append([]Stage(nil), stages...),
		runner:  runner,
		checker: checker,
		timeout: timeout,
		logger:  logger,
	}
}

// Run executes the pipeline against values, which is mutated in place.
func (d *Driver) Run(ctx context.Context, values models.Values) Outcome {
	var out Outcome

	for _, stage := range d.stages {
		if err := ctx.Err(); err != nil {
			out.StoppedAt = stage.Name()
			out.Err = err
			return out
		}

		command, ok := stage.Resolve(values)
		if !ok {
			d.logger.Debug("Stage skipped, nothing to run",
				zap.String("stage", stage.Name()))
			out.StoppedAt = stage.Name()
			return out
		}

		if command == "" || !d.checker.IsRunnable(command) {
			d.logger.Warn("Resolved command is not runnable, stopping pipeline",
				zap.String("stage", stage.Name()),
				zap.String("command", command))
			out.StoppedAt = stage.Name()
			out.Err = fmt.Errorf("stage %s: %w", stage.Name(), ErrCommandInvalid)
			return out
		}

		out.Executed = append(out.Executed, command)
		lines, err := d.runner.Run(ctx, command, d.timeout)
		if err != nil {
			d.logger.Warn("Command failed, treating as empty output",
				zap.String("stage", stage.Name()),
				zap.String("command", command),
				zap.Error(err))
			lines = nil
		}

		stage.Consume(lines, values)
	}

	return out
}
