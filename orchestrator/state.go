package orchestrator

// State of a chat turn
type State string

// States
const (
	StateAwaitingQuery  State = "AWAITING_QUERY"
	StateLLMPlanning    State = "LLM_PLANNING"
	StateNoTools        State = "NO_TOOLS"
	StateToolsRequested State = "TOOLS_REQUESTED"
	StateExecutingTools State = "EXECUTING_TOOLS"
	StateLLMFinalizing  State = "LLM_FINALIZING"
	StateDone           State = "DONE"
	StateError          State = "ERROR"
)

func (s State) String() string {
	return string(s)
}

// IsTerminal returns true for DONE and ERROR.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateError
}
