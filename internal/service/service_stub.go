//go:build !windows

// Package service runs the agent in the foreground on non-Windows platforms,
// where no service control manager wrapper is needed.
package service

import (
	"context"

	"go.uber.org/zap"
)

// AgentService runs the agent directly on non-Windows platforms.
type AgentService struct {
	logger  *zap.Logger
	startFn func(ctx context.Context)
}

// New creates a passthrough service wrapper.
func New(logger *zap.Logger, startFn func(ctx context.Context)) *AgentService {
	return &AgentService{
		logger:  logger,
		startFn: startFn,
	}
}

// IsWindowsService always returns false on non-Windows platforms.
func IsWindowsService() bool {
	return false
}

// Run executes the agent until startFn returns.
func (s *AgentService) Run() error {
	s.startFn(context.Background())
	return nil
}
