package relayer

import (
	"fmt"
)

type phase int

const (
	phaseNotRunning phase = iota
	phaseRunning
	phaseTerminated
)

func (p phase) String() string {
	switch p {
	case phaseNotRunning:
		return "not_running"
	case phaseRunning:
		return "running"
	case phaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// TerminationReason records why a request reached its terminal state.
type TerminationReason string

const (
	ReasonNone      TerminationReason = ""
	ReasonCompleted TerminationReason = "completed"
	ReasonFailed    TerminationReason = "failed"
	ReasonCanceled  TerminationReason = "canceled"
	ReasonAborted   TerminationReason = "aborted"
	ReasonTimeout   TerminationReason = "timeout"
)

// StateSnapshot is an immutable copy of a request's state flags.
type StateSnapshot struct {
	Running    bool
	Canceled   bool
	Aborted    bool
	Completed  bool
	Failed     bool
	Terminated bool
	Fetching   bool
	Reason     TerminationReason
}

func (s StateSnapshot) String() string {
	switch {
	case s.Terminated:
		return fmt.Sprintf("terminated(%s)", s.Reason)
	case s.Running && s.Fetching:
		return "running(fetching)"
	case s.Running:
		return "running"
	default:
		return "not_running"
	}
}

func snapshot(p phase, reason TerminationReason, fetching bool) StateSnapshot {
	return StateSnapshot{
		Running:    p == phaseRunning,
		Canceled:   reason == ReasonCanceled,
		Aborted:    reason == ReasonCanceled || reason == ReasonAborted || reason == ReasonTimeout,
		Completed:  reason == ReasonCompleted,
		Failed:     reason == ReasonFailed,
		Terminated: p == phaseTerminated,
		Fetching:   fetching,
		Reason:     reason,
	}
}
