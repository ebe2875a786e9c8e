package model

// RunState is the position of a pipeline run on its linear spine.
type RunState string

const (
	RunStatePending         RunState = "PENDING"
	RunStateValidated       RunState = "VALIDATED"
	RunStateReadsFetched    RunState = "READS_FETCHED"
	RunStateMeasuredInitial RunState = "LENGTH_MEASURED_PRE"
	RunStateFiltered        RunState = "FILTERED"
	RunStateMeasuredFilter  RunState = "LENGTH_MEASURED_FILTERED"
	RunStateCorrected       RunState = "CORRECTED"
	RunStateStripped        RunState = "STRIPPED"
	RunStateMeasuredClean   RunState = "LENGTH_MEASURED_CORRECTED"
	RunStateAssembled       RunState = "ASSEMBLED"
	RunStatePolished        RunState = "POLISHED"
	RunStateSummarized      RunState = "STATS_SUMMARIZED"
	RunStateMapped          RunState = "MAPPED"
	RunStateDone            RunState = "DONE"
	RunStateFailed          RunState = "FAILED"
)

// RunSpine is the fixed order of states a successful run passes through.
var RunSpine = []RunState{
	RunStatePending,
	RunStateValidated,
	RunStateReadsFetched,
	RunStateMeasuredInitial,
	RunStateFiltered,
	RunStateMeasuredFilter,
	RunStateCorrected,
	RunStateStripped,
	RunStateMeasuredClean,
	RunStateAssembled,
	RunStatePolished,
	RunStateSummarized,
	RunStateMapped,
	RunStateDone,
}

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	return s == RunStateDone || s == RunStateFailed
}

// CanTransitionTo returns true if next directly follows s on the spine,
// or if next is FAILED and s is not terminal.
func (s RunState) CanTransitionTo(next RunState) bool {
	if next == RunStateFailed {
		return !s.IsTerminal()
	}
	for i := 0; i < len(RunSpine)-1; i++ {
		if RunSpine[i] == s {
			return RunSpine[i+1] == next
		}
	}
	return false
}
