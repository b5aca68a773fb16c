package section

// Phase is the lifecycle phase of one section's data
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// validTransitions lists the allowed phase edges. error→loading is a retry,
// ready→loading is an explicit reload.
var validTransitions = map[Phase][]Phase{
	PhaseIdle:    {PhaseLoading},
	PhaseLoading: {PhaseReady, PhaseError},
	PhaseReady:   {PhaseLoading},
	PhaseError:   {PhaseLoading},
}

// CanTransitionTo reports whether the phase may move to target
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, allowed := range validTransitions[p] {
		if allowed == target {
			return true
		}
	}
	return false
}

// String returns the string representation of Phase
func (p Phase) String() string {
	return string(p)
}
