package notes

// MutationState tracks one create, update or delete from submission to
// outcome. There is no retry state: a failed mutation goes back to Idle
// when the user submits again.
type MutationState int

const (
	Idle MutationState = iota
	Pending
	Succeeded
	Failed
)

func (s MutationState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Busy reports whether a remote call is outstanding.
func (s MutationState) Busy() bool { return s == Pending }

// Start moves to Pending. It returns false if a mutation is already
// pending, in which case the state is unchanged.
func (s *MutationState) Start() bool {
	if *s == Pending {
		return false
	}
	*s = Pending
	return true
}

// Finish moves a pending mutation to Succeeded or Failed.
func (s *MutationState) Finish(err error) {
	if *s != Pending {
		return
	}
	if err != nil {
		*s = Failed
		return
	}
	*s = Succeeded
}

// Reset returns to Idle.
func (s *MutationState) Reset() { *s = Idle }
