package downloader

// State is a step of a single download request
type State int

const (
	StateIdle State = iota
	StateValidating
	StatePurging
	StateExtracting
	StateLocating
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StatePurging:
		return "purging"
	case StateExtracting:
		return "extracting"
	case StateLocating:
		return "locating"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
