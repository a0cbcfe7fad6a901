package models

import "time"

// ScanState is the derived progress view for a long-running scan. The
// percentage is a simulated curve, not a measurement: it climbs while the
// tool runs, is capped below 100, and only snaps to 100 on completion.
type ScanState struct {
	IsScanning      bool      `json:"isScanning"`
	StartedAt       time.Time `json:"startedAt,omitzero"`
	ElapsedSeconds  int       `json:"elapsedSeconds"`
	ProgressPercent float64   `json:"progressPercent"`
	PhaseLabel      string    `json:"phaseLabel,omitempty"`
}
