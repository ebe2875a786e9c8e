package model

import "testing"

func TestUploadManifest(t *testing.T) {
	var m UploadManifest
	m.Add(OutputAssembly, "1/2/1", "Assembled contigs")
	m.Add(OutputCleanedReads, "1/3/1", "Cleaned reads")

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if ref, ok := m.Ref(OutputCleanedReads); !ok || ref != "1/3/1" {
		t.Errorf("Ref(cleaned) = %q, %v", ref, ok)
	}
	if _, ok := m.Ref(OutputAlignment); ok {
		t.Error("Ref(alignment) should be absent")
	}
	if m.Entries[0].Role != OutputAssembly {
		t.Errorf("first entry = %s, want assembly", m.Entries[0].Role)
	}
}

func TestStepResult_Output(t *testing.T) {
	r := StepResult{Outputs: map[string]string{RoleRunLog: "/tmp/log", RoleContigs: ""}}
	if p, ok := r.Output(RoleRunLog); !ok || p != "/tmp/log" {
		t.Errorf("Output(run_log) = %q, %v", p, ok)
	}
	if _, ok := r.Output(RoleContigs); ok {
		t.Error("empty path should report absent")
	}
	if _, ok := r.Output(RoleScaffolds); ok {
		t.Error("missing role should report absent")
	}
}

func TestReadStats_CountOrZero(t *testing.T) {
	var s ReadStats
	if s.CountOrZero() != 0 {
		t.Error("nil count should be 0")
	}
	n := int64(42)
	s.Count = &n
	if s.CountOrZero() != 42 {
		t.Errorf("CountOrZero() = %d, want 42", s.CountOrZero())
	}
}
