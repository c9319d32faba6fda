package model

import (
	"testing"
	"time"
)

func TestSetStepReplacesInPlace(t *testing.T) {
	run := Run{TotalSteps: 2}
	now := time.Now().UTC()

	run.SetStep(StepReport{Step: 1, Name: "connectivity", Status: StepStatusPending, Timestamp: now})
	run.SetStep(StepReport{Step: 2, Name: "configset", Status: StepStatusPending, Timestamp: now})
	run.SetStep(StepReport{Step: 1, Name: "connectivity", Status: StepStatusCompleted, Timestamp: now})

	if len(run.Steps) != 2 {
		t.Fatalf("steps length = %d, want 2", len(run.Steps))
	}
	if run.Steps[0].Status != StepStatusCompleted {
		t.Fatalf("step 1 status = %s, want completed", run.Steps[0].Status)
	}
	if run.Steps[0].Step != 1 || run.Steps[1].Step != 2 {
		t.Fatalf("step order broken: %d, %d", run.Steps[0].Step, run.Steps[1].Step)
	}
}

func TestStepByNumber(t *testing.T) {
	run := Run{}
	run.SetStep(StepReport{Step: 3, Name: "propagation", Status: StepStatusFailed})

	got := run.StepByNumber(3)
	if got == nil || got.Name != "propagation" {
		t.Fatalf("StepByNumber(3) = %+v", got)
	}
	if run.StepByNumber(4) != nil {
		t.Fatalf("expected nil for unregistered step")
	}
}
