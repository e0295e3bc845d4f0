package session

// State is a step of the session state machine.
type State int

const (
	CollectingProfile State = iota
	AgentLoop
	Finalizing
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case CollectingProfile:
		return "COLLECTING_PROFILE"
	case AgentLoop:
		return "AGENT_LOOP"
	case Finalizing:
		return "FINALIZING"
	case Done:
		return "DONE"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}
