package capture

// SessionState is the lifecycle of a backend session as seen by Source.
type SessionState int32

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateCapturing
	StateStopped
	StateReconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateCapturing:
		return "Capturing"
	case StateStopped:
		return "Stopped"
	case StateReconnecting:
		return "Reconnecting"
	default:
		return "Unknown"
	}
}

// Live reports whether a backend handle is held.
func (s SessionState) Live() bool {
	return s != StateDisconnected && s != StateConnecting
}

// LoopState is the lifecycle of the capture loop.
type LoopState int32

const (
	LoopIdle LoopState = iota
	LoopRunning
	LoopStopping
)

func (s LoopState) String() string {
	switch s {
	case LoopIdle:
		return "Idle"
	case LoopRunning:
		return "Running"
	case LoopStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}
