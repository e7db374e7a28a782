package agent

// State is the position of a run in the loop.
//
//	Start -> AwaitingModel -> ExecutingTool -> AwaitingModel -> ... -> Done
//
// A Reasoning action keeps the run in AwaitingModel; a FinalAnswer or a
// spent budget moves it to Done.
type State int

const (
	StateStart State = iota
	StateAwaitingModel
	StateExecutingTool
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTool:
		return "executing_tool"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
