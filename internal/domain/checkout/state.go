package checkout

// State is a step of the submission state machine.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateAuthChecking
	StateSubmitting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateAuthChecking:
		return "auth_checking"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Failure classifies why a submission ended in StateFailed.
type Failure string

const (
	FailureNone            Failure = ""
	FailureUnauthenticated Failure = "unauthenticated"
	FailureRejected        Failure = "rejected"
	FailureNetwork         Failure = "network"
)
