package orchestrator

// Status values used across BootstrapResult and PhaseResult.
const (
	StatusOK         = "ok"
	StatusError      = "error"
	StatusInProgress = "in-progress"
	StatusSkipped    = "skipped"
)

// BootstrapResult is the aggregate result of a full bootstrap run. Phases is
// ordered: the run is strictly sequential and the slice order is the
// execution order.
type BootstrapResult struct {
	RunID  string        `json:"runId"`
	Status string        `json:"status"` // "ok", "error", "in-progress"
	Policy string        `json:"policy"` // "fail-fast" or "best-effort"
	Phases []PhaseResult `json:"phases"`
}

// PhaseResult represents the outcome of a single bootstrap phase. Phases
// following a failure under the fail-fast policy are recorded as "skipped".
type PhaseResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "error", "skipped"
	Error  string `json:"error,omitempty"`
}

// ProbeResult is returned by RunDeepHealth for each dependency.
type ProbeResult struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Phase returns the result for the named phase, or nil if it never ran.
func (r *BootstrapResult) Phase(name string) *PhaseResult {
	for i := range r.Phases {
		if r.Phases[i].Name == name {
			return &r.Phases[i]
		}
	}
	return nil
}
