package core

import (
	"time"

	"github.com/JonMunkholm/tabula/internal/dataset"
)

// Result is the outcome of a successful run.
type Result struct {
	RunID    string
	Dataset  *dataset.Dataset
	Steps    int
	Duration time.Duration
}

// ParamInfo describes one parameter of a transformer.
type ParamInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TransformerInfo describes a registered transformer for listings.
type TransformerInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Params      []ParamInfo `json:"params"`
}

// RunInfo is a snapshot of a run in progress.
type RunInfo struct {
	ID         string    `json:"id"`
	Started    time.Time `json:"started"`
	TotalSteps int       `json:"total_steps"`
	Completed  int       `json:"completed_steps"`
	Current    string    `json:"current_step,omitempty"`
}

// Status is a point-in-time view of the service for monitoring.
type Status struct {
	Limiter      RunLimiterStatus `json:"limiter"`
	Active       []RunInfo        `json:"active_runs"`
	RunsTotal    int64            `json:"runs_total"`
	Successes    int64            `json:"successes_total"`
	Failures     int64            `json:"failures_total"`
	Transformers int              `json:"transformers"`
}
