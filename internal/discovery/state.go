package discovery

type State int

const (
	StateConnecting State = iota
	StateAwaitingRegistry
	StateDiscovering
	StateAllBound
	StateFailed
	StateMonitoring
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingRegistry:
		return "awaiting_registry"
	case StateDiscovering:
		return "discovering"
	case StateAllBound:
		return "all_bound"
	case StateFailed:
		return "failed"
	case StateMonitoring:
		return "monitoring"
	default:
		return "unknown"
	}
}

// Terminal reports whether the discovery loop has finished.
func (s State) Terminal() bool {
	return s == StateAllBound || s == StateFailed
}
