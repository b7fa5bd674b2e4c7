package models

import "time"

// Snapshot is the output of one scheduler tick: the Values produced by every
// collector that completed, keyed by collector name.
type Snapshot struct {
	Timestamp  time.Time         `json:"timestamp"`
	Collectors map[string]Values `json:"collectors"`
}

// HostInfo identifies the machine the agent runs on.
type HostInfo struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Platform string `json:"platform,omitempty"`
	Version  string `json:"platform_version,omitempty"`
	BootTime uint64 `json:"boot_time,omitempty"`
}

// Batch is the payload sent to the API via POST /api/ingest.
// Charts repeats the static definitions so the backend can register them
// before ingesting the snapshots.
type Batch struct {
	ID           string     `json:"id"`
	MachineToken string     `json:"machine_token,omitempty"`
	Host         HostInfo   `json:"host"`
	Charts       []Chart    `json:"charts"`
	Snapshots    []Snapshot `json:"snapshots"`
}
