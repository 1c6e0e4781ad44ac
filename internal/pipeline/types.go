package pipeline

import "time"

// Phase indicates the current stage of a run.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseReading    Phase = "reading"
	PhaseResolving  Phase = "resolving"
	PhaseFetching   Phase = "fetching"
	PhaseGenerating Phase = "generating"
	PhaseWriting    Phase = "writing"
	PhaseDone       Phase = "done"
	PhaseAborted    Phase = "aborted"
)

// Progress represents the current state of a run.
type Progress struct {
	RunID   string
	Phase   Phase
	Code    string // Code being processed; empty outside the per-code phases
	Index   int    // 1-based position of Code in the input
	Total   int
	Written int
	Skipped int
}

// Percent returns the share of codes already handled, 0-100.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return ((p.Written + p.Skipped) * 100) / p.Total
}

// ProgressCallback is called on every phase change.
type ProgressCallback func(Progress)

// SkippedCode records a code that produced no statement.
type SkippedCode struct {
	Code   string
	Index  int   // 1-based position in the input
	Stage  Phase // Phase in which the code failed
	Reason string
}

// Result contains the final result of a run.
type Result struct {
	RunID      string
	InputFile  string
	OutputFile string
	VersionID  int
	TotalCodes int
	Written    int
	Skipped    []SkippedCode
	Phase      Phase // PhaseDone or PhaseAborted
	Duration   time.Duration
	Error      string // Non-empty if the run aborted

	// TokenExpiresAt is when the run's access token expires; zero if no
	// token was acquired or its lifetime is unknown.
	TokenExpiresAt time.Time
}

// Aborted reports whether the run stopped before handling every code.
func (r *Result) Aborted() bool {
	return r.Phase == PhaseAborted
}
