// Package hostinfo identifies the machine the agent runs on.
// Uses gopsutil for cross-platform host metadata. The result is resolved once
// at startup and attached to every batch.
package hostinfo

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/vitalis-app/rosnode-agent/internal/models"
)

// infoWithContext is swapped out in tests.
var infoWithContext = host.InfoWithContext

// Lookup returns the host identity. If gopsutil cannot read the host
// information it falls back to os.Hostname and runtime.GOOS, so the agent can
// still label its batches.
func Lookup(ctx context.Context) (models.HostInfo, error) {
	info, err := infoWithContext(ctx)
	if err != nil || info == nil {
		name, _ := os.Hostname()
		return models.HostInfo{Hostname: name, OS: runtime.GOOS}, err
	}

	return models.HostInfo{
		Hostname: info.Hostname,
		OS:       info.OS,
		Platform: info.Platform,
		Version:  info.PlatformVersion,
		BootTime: info.BootTime,
	}, nil
}
