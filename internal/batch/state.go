package batch

// State is a step of a batch run.
type State string

const (
	StateIdle                 State = "IDLE"
	StateScanning             State = "SCANNING"
	StateNoChanges            State = "NO_CHANGES"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateConfirmed            State = "CONFIRMED"
	StateBackingUp            State = "BACKING_UP"
	StateApplying             State = "APPLYING"
	StateDone                 State = "DONE"
	StateRollingBack          State = "ROLLING_BACK"
	StateRolledBack           State = "ROLLED_BACK"
	// StateAborted ends a run whose scan or backup failed before any write.
	StateAborted State = "ABORTED"
)

// Terminal reports whether a run ends in s.
func (s State) Terminal() bool {
	switch s {
	case StateNoChanges, StateDone, StateRolledBack, StateAborted:
		return true
	}
	return false
}

// Result summarises a finished run.
type Result struct {
	RunID           int64    `json:"run_id,omitempty"`
	State           State    `json:"state"`
	Cancelled       bool     `json:"cancelled,omitempty"`
	Planned         int      `json:"planned"`
	Applied         int      `json:"applied"`
	Restored        int      `json:"restored"`
	RestoreFailures []string `json:"restore_failures,omitempty"`
	Error           string   `json:"error,omitempty"`
}
