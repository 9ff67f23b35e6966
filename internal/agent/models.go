// Package agent implements the goal-execution loop: it asks the model for
// the next action, dispatches it through the tool registry, and records the
// outcome in persistent memory until the goal finishes or the step ceiling is
// reached.
package agent

// Reserved tool values handled by the loop itself, never dispatched.
const (
	ToolFinish = "finish"
	ToolNoOp   = "no_op"
)

// Action is the structured {thought, tool, args} triple driving one step.
type Action struct {
	Thought string         `json:"thought"`
	Tool    string         `json:"tool"`
	Args    map[string]any `json:"args"`
}

// HistoryEntry is one executed step, append-only for the duration of a run.
type HistoryEntry struct {
	Action string         `json:"action"`
	Args   map[string]any `json:"args"`
	Result string         `json:"result"`
}

// State is the loop controller's position in its lifecycle.
type State int

const (
	StateInit State = iota
	StateStepping
	StateSelfTest
	StateAwaitingClarification
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateStepping:
		return "STEPPING"
	case StateSelfTest:
		return "SELF_TEST"
	case StateAwaitingClarification:
		return "AWAITING_CLARIFICATION"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Outcome summarizes a finished run.
type Outcome struct {
	State    State
	Steps    int
	Finished bool
	Reason   string
}
