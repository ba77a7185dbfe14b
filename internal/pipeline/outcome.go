package pipeline

import "fmt"

// OutcomeKind classifies how a stage ended.
type OutcomeKind int

const (
	// Succeeded: the stage produced its output.
	Succeeded OutcomeKind = iota
	// Skipped: the stage's preconditions were not met; nothing was called.
	Skipped
	// Degraded: the stage failed but the job continues without its output.
	Degraded
	// Fatal: the whole job attempt failed and routes to the retry policy.
	Fatal
)

// Outcome is the tagged result of one stage. Exactly one of Reason/Err is
// meaningful for Skipped/Degraded and Fatal respectively.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

func succeed() Outcome {
	return Outcome{Kind: Succeeded}
}

func skip(reason string) Outcome {
	return Outcome{Kind: Skipped, Reason: reason}
}

func degrade(err error) Outcome {
	return Outcome{Kind: Degraded, Reason: err.Error(), Err: err}
}

func fatal(err error) Outcome {
	return Outcome{Kind: Fatal, Err: err}
}

func (o Outcome) String() string {
	switch o.Kind {
	case Succeeded:
		return "succeeded"
	case Skipped:
		return fmt.Sprintf("skipped: %s", o.Reason)
	case Degraded:
		return fmt.Sprintf("degraded: %s", o.Reason)
	case Fatal:
		return fmt.Sprintf("fatal: %v", o.Err)
	default:
		return "unknown"
	}
}
