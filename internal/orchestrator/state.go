package orchestrator

import "fmt"

// State is a stage of one pipeline run.
type State int

const (
	StateNormalizing State = iota
	StateExtracting
	StateValidating
	StateGenerating
	StateCompliance
	StateDone
)

var stateNames = [...]string{"normalizing", "extracting", "validating", "generating", "compliance", "done"}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// transitions is the whole run graph. Every stage has exactly one successor;
// failures leave the graph through an error instead of an edge.
var transitions = map[State]State{
	StateNormalizing: StateExtracting,
	StateExtracting:  StateValidating,
	StateValidating:  StateGenerating,
	StateGenerating:  StateCompliance,
	StateCompliance:  StateDone,
}

// Next returns the successor of s; ok is false for Done.
func (s State) Next() (State, bool) {
	n, ok := transitions[s]
	return n, ok
}

// TaskState is a step in one generator's draft/check loop.
type TaskState int

const (
	TaskDraft TaskState = iota
	TaskCheck
	TaskRetry
	TaskAccepted
	TaskFailedAfterBudget
)

var taskStateNames = [...]string{"draft", "check", "retry", "accepted", "failed_after_budget"}

func (s TaskState) String() string {
	if int(s) < 0 || int(s) >= len(taskStateNames) {
		return fmt.Sprintf("task_state(%d)", int(s))
	}
	return taskStateNames[s]
}

// Terminal reports whether the loop stops in s.
func (s TaskState) Terminal() bool {
	return s == TaskAccepted || s == TaskFailedAfterBudget
}

// route decides where Check goes. attempts counts drafts made so far and
// budget is the total number of drafts allowed.
func route(accepted bool, attempts, budget int) TaskState {
	switch {
	case accepted:
		return TaskAccepted
	case attempts >= budget:
		return TaskFailedAfterBudget
	default:
		return TaskRetry
	}
}
