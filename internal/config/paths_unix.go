//go:build !windows

package config

import (
	"os"
	"path/filepath"
)

// configSearchPaths lists per-user locations before the system-wide file.
// XDG_CONFIG_HOME is honoured when set.
func configSearchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "rosnode-agent", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".rosnode-agent", "config.yaml"))
	}
	return append(paths, "/etc/rosnode-agent/agent.yaml")
}
