package engine

// State is the engine's connection state. Transitions only ever move
// between adjacent states: a Disconnected engine must pass through
// Connecting before it can be Connected.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	default:
		return "Disconnected"
	}
}
