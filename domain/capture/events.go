package capture

import "time"

type EventKind int

const (
	EventStarted EventKind = iota
	EventStopped
	// EventReconnectNeeded is emitted once per lost session. The loop has
	// already stopped; a fresh Connect is required before Start.
	EventReconnectNeeded
	// EventTransientError reports a recoverable capture failure.
	EventTransientError
	// EventReconfigured follows a completed resolution change.
	EventReconfigured
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventReconnectNeeded:
		return "reconnect-needed"
	case EventTransientError:
		return "transient-error"
	case EventReconfigured:
		return "reconfigured"
	default:
		return "unknown"
	}
}

// Event is published on Loop.Events.
type Event struct {
	Kind   EventKind
	Err    error
	At     time.Time
	Width  int
	Height int
}

// critical events must survive a full channel.
func (e Event) critical() bool {
	return e.Kind == EventReconnectNeeded || e.Kind == EventReconfigured
}
