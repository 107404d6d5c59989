package status

// State is the lifecycle position of a download session.
type State = int32

const (
	Idle State = iota
	Probing
	SingleStreaming
	Scheduling
	Merging
	Verifying
	Complete
	Cancelled
	Failed
)

var names = map[State]string{
	Idle:            "idle",
	Probing:         "probing",
	SingleStreaming: "single-streaming",
	Scheduling:      "scheduling",
	Merging:         "merging",
	Verifying:       "verifying",
	Complete:        "complete",
	Cancelled:       "cancelled",
	Failed:          "failed",
}

// String returns the lowercase name of a state.
func String(s State) string {
	if n, ok := names[s]; ok {
		return n
	}

	return "unknown"
}

// IsTerminal reports whether a session in s is finished.
func IsTerminal(s State) bool {
	return s == Complete || s == Cancelled || s == Failed
}

// IsInterruptible reports whether pause, resume and cancel apply in s.
// Merging and later stages run to completion.
func IsInterruptible(s State) bool {
	return s == Probing || s == SingleStreaming || s == Scheduling
}
