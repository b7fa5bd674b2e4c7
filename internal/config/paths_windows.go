//go:build windows

package config

import (
	"os"
	"path/filepath"
)

// configSearchPaths lists the per-user file before the machine-wide one.
// Unset variables are skipped rather than resolved against the cwd.
func configSearchPaths() []string {
	var paths []string
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		paths = append(paths, filepath.Join(local, "RosnodeAgent", "config.yaml"))
	}
	if programData := os.Getenv("ProgramData"); programData != "" {
		paths = append(paths, filepath.Join(programData, "RosnodeAgent", "agent.yaml"))
	}
	return paths
}
