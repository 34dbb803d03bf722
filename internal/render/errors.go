package render

import "fmt"

// State is a step of the render state machine. Jobs only move forward.
type State int

const (
	New State = iota
	Received
	Probed
	Planned
	TimelineBuilt
	GraphBuilt
	Encoding
	Completed
	Failed
)

var stateNames = [...]string{
	New:           "new",
	Received:      "received",
	Probed:        "probed",
	Planned:       "planned",
	TimelineBuilt: "timeline-built",
	GraphBuilt:    "graph-built",
	Encoding:      "encoding",
	Completed:     "completed",
	Failed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Kind classifies why a job failed.
type Kind int

const (
	// ValidationFailure means the caller sent unusable input.
	ValidationFailure Kind = iota + 1
	// ProbeFailure means an input could not be characterised.
	ProbeFailure
	// EncodeFailure means the encoder rejected the job or died.
	EncodeFailure
	// CleanupFailure means a scratch file could not be removed. It is
	// logged and counted but never returned from Render.
	CleanupFailure
)

func (k Kind) String() string {
	switch k {
	case ValidationFailure:
		return "validation_failure"
	case ProbeFailure:
		return "probe_failure"
	case EncodeFailure:
		return "encode_failure"
	case CleanupFailure:
		return "cleanup_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a failed render job. State is the last state the job reached
// before failing. Diagnostic is the text to show the caller, typically the
// external tool's stderr.
type Error struct {
	Kind       Kind
	State      State
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s after %s: %v", e.Kind, e.State, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
