// Package suggestion owns the lifecycle of one AI edit suggestion: from
// raw proposal through validation, simulation and the user's decision, to
// exactly one buffer mutation or none at all.
package suggestion

import (
	"texpatch/model"
)

// Suggestion binds a proposal to an immutable document snapshot. All
// positional reasoning happens against OriginalContent, never against the
// live (possibly changed) buffer. A suggestion is never mutated after
// creation; the fallback path replaces it with a new one.
type Suggestion struct {
	ID          int
	Mode        model.Mode
	Hunks       []string
	Blocks      []model.SearchReplaceBlock
	FullContent string
	Explanation string

	// OriginalContent is the document snapshot taken at proposal time.
	OriginalContent string

	// ValidationError is set when the hunk validator rejected the
	// proposal; Apply is never offered for such a suggestion.
	ValidationError string

	// Preview is the simulated result, available when simulation
	// succeeded. Diagnostic carries the failure message otherwise.
	Preview    string
	Diagnostic string
}

// State enumerates the observable lifecycle states. Received and
// Simulated from the design are transient: Propose runs validation and
// simulation synchronously and lands directly in one of these.
type State int

const (
	// StateIdle means no suggestion is active.
	StateIdle State = iota
	// StateInvalid: the validator rejected the hunks; Reject only.
	StateInvalid
	// StateSimulationFailed: simulation against the snapshot failed;
	// Apply is disabled, Reject only.
	StateSimulationFailed
	// StateAwaitingDecision: preview is ready, the user chooses.
	StateAwaitingDecision
	// StateFallbackRequested: a diff-mode apply failed and a
	// search/replace rewrite has been requested from the collaborator.
	StateFallbackRequested
	// StateApplied: terminal, the buffer was mutated exactly once.
	StateApplied
	// StateRejected: terminal, the buffer was never touched.
	StateRejected
	// StateFailed: terminal, both representations failed; the buffer was
	// never touched and the user edits manually.
	StateFailed
)

// Terminal reports whether the state ends the suggestion's lifecycle.
func (s State) Terminal() bool {
	return s == StateApplied || s == StateRejected || s == StateFailed
}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInvalid:
		return "invalid"
	case StateSimulationFailed:
		return "simulation_failed"
	case StateAwaitingDecision:
		return "awaiting_decision"
	case StateFallbackRequested:
		return "fallback_requested"
	case StateApplied:
		return "applied"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
