package model

import "testing"

func TestRunState_IsTerminal(t *testing.T) {
	tests := []struct {
		state RunState
		want  bool
	}{
		{RunStatePending, false},
		{RunStateAssembled, false},
		{RunStateMapped, false},
		{RunStateDone, true},
		{RunStateFailed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to RunState
		want     bool
	}{
		{RunStatePending, RunStateValidated, true},
		{RunStateValidated, RunStateReadsFetched, true},
		{RunStateFiltered, RunStateMeasuredFilter, true},
		{RunStateMapped, RunStateDone, true},
		{RunStatePending, RunStateFiltered, false},
		{RunStateAssembled, RunStateCorrected, false},
		{RunStateDone, RunStateValidated, false},
		{RunStateAssembled, RunStateFailed, true},
		{RunStateDone, RunStateFailed, false},
		{RunStateFailed, RunStateFailed, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s → %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestRunSpine_Linear(t *testing.T) {
	for i := 0; i < len(RunSpine)-1; i++ {
		if !RunSpine[i].CanTransitionTo(RunSpine[i+1]) {
			t.Errorf("spine step %s → %s rejected", RunSpine[i], RunSpine[i+1])
		}
	}
	if RunSpine[len(RunSpine)-1] != RunStateDone {
		t.Errorf("spine ends at %s, want DONE", RunSpine[len(RunSpine)-1])
	}
}
