package extraction

// State is a phase of an extraction run
type State int

const (
	StateInit State = iota
	StateLoading
	StateExtracting
	StateCheckpointing
	StateDone
	StateFinalizing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateLoading:
		return "LOADING"
	case StateExtracting:
		return "EXTRACTING"
	case StateCheckpointing:
		return "CHECKPOINTING"
	case StateDone:
		return "DONE"
	case StateFinalizing:
		return "FINALIZING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}
