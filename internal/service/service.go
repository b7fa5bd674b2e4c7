//go:build windows

// Package service provides Windows Service integration for ROS on Windows
// hosts. When running as a Windows service, the agent enters the SCM control
// loop; otherwise it runs in the foreground.
package service

import (
	"context"
	"time"

	"golang.org/x/sys/windows/svc"
	"go.uber.org/zap"
)

const (
	serviceName = "RosnodeAgent"
	drainDelay  = 5 * time.Second
)

// AgentService adapts the rosnode agent to svc.Handler.
type AgentService struct {
	logger  *zap.Logger
	startFn func(ctx context.Context)
	drain   time.Duration
}

// New wraps startFn, which runs the agent until its context is cancelled.
func New(logger *zap.Logger, startFn func(ctx context.Context)) *AgentService {
	return &AgentService{
		logger:  logger.With(zap.String("service", serviceName)),
		startFn: startFn,
		drain:   drainDelay,
	}
}

// IsWindowsService checks if the process is running as a Windows service.
func IsWindowsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// Run hands the process to the service control manager.
func (s *AgentService) Run() error {
	return svc.Run(serviceName, s)
}

// Execute runs the agent until the SCM asks it to stop. On stop the agent
// gets up to the drain delay to flush its last batch.
func (s *AgentService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.startFn(ctx)
	}()

	changes <- svc.Status{
		State:   svc.Running,
		Accepts: svc.AcceptStop | svc.AcceptShutdown,
	}
	s.logger.Info("Rosnode agent running under SCM")

	for {
		select {
		case <-done:
			s.logger.Warn("Rosnode agent exited without a stop request")
			return false, 1
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				s.logger.Info("Stopping rosnode agent, draining last batch",
					zap.Duration("drain", s.drain))
				changes <- svc.Status{State: svc.StopPending}
				cancel()
				select {
				case <-done:
				case <-time.After(s.drain):
					s.logger.Warn("Rosnode agent did not drain in time")
				}
				return false, 0
			default:
				s.logger.Warn("Ignoring SCM control request",
					zap.Uint32("cmd", uint32(c.Cmd)))
			}
		}
	}
}
