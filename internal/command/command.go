// Package command runs external inspection tools for the collection pipeline.
// Commands are plain space-separated argument lists; they never go through a
// shell, so anything that looks like shell syntax is rejected up front.
package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// forbidden lists characters that only make sense to a shell.
const forbidden = "&|;<>`$\"'\n\r*?(){}[]"

// waitDelay bounds how long Run waits for output pipes after a kill.
const waitDelay = 500 * time.Millisecond

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// ExecError describes a command that failed to start, exited non-zero, or
// was killed by its timeout.
type ExecError struct {
	Command  string
	ExitCode int
	TimedOut bool
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("command %q timed out", e.Command)
	case e.ExitCode > 0:
		return fmt.Sprintf("command %q exited with code %d: %s", e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
	default:
		return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
	}
}

func (e *ExecError) Unwrap() error { return e.Err }

// Runner executes commands with os/exec.
type Runner struct{}

// NewRunner creates a Runner that inherits the agent's environment.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes command and returns stdout split into lines. Each line keeps
// its trailing "\n"; a final unterminated line is returned as-is.
// A non-positive timeout means no per-command deadline beyond ctx.
func (r *Runner) Run(ctx context.Context, command string, timeout time.Duration) ([]string, error) {
	args := Split(command)
	if len(args) == 0 {
		return nil, &ExecError{Command: command, Err: errors.New("empty command")}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	// Grandchildren can hold stdout open after the child is killed.
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		execErr := &ExecError{Command: command, Stderr: stderr.String(), Err: err}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			execErr.TimedOut = true
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			execErr.ExitCode = exitErr.ExitCode()
		}
		return nil, execErr
	}

	return SplitLines(&stdout)
}

// SplitLines reads r to the end and returns its lines with terminators kept.
func SplitLines(r io.Reader) ([]string, error) {
	var lines []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}

// Split breaks a command string into its arguments.
func Split(command string) []string {
	return strings.Fields(command)
}

// Checker decides whether a command string may be executed.
type Checker struct{}

// NewChecker creates a Checker that resolves binaries on PATH.
func NewChecker() *Checker {
	return &Checker{}
}

// IsRunnable reports whether command is non-empty, free of shell syntax,
// and names an executable that can be found.
func (c *Checker) IsRunnable(command string) bool {
	if strings.ContainsAny(command, forbidden) {
		return false
	}
	args := Split(command)
	if len(args) == 0 {
		return false
	}
	_, err := lookPath(args[0])
	return err == nil
}
