package reflux

// Health is the current condition of a Feed.
type Health int32

const (
	// HealthLoading indicates the Feed has not yet processed a message.
	HealthLoading Health = iota

	// HealthHealthy indicates the last message was decoded and dispatched.
	HealthHealthy

	// HealthDegraded indicates the last message failed to decode. Earlier
	// messages were dispatched and the Feed keeps watching.
	HealthDegraded

	// HealthEmpty indicates every message so far failed to decode and no
	// action has ever been dispatched. The Feed keeps watching.
	HealthEmpty
)

// String returns the string representation of the health.
func (h Health) String() string {
	switch h {
	case HealthLoading:
		return "loading"
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthEmpty:
		return "empty"
	default:
		return "unknown"
	}
}
