package core

import (
	"context"
	"testing"
)

// TestTaskID_StringAndIsZero verifies TaskID zero-state and string behavior
// Given: A zero TaskID and a generated TaskID
// When: IsZero and String are called
// Then: Zero ID reports true and generated ID is non-zero with non-empty string
func TestTaskID_StringAndIsZero(t *testing.T) {
	// Arrange
	var zero TaskID

	// Act and Assert
	if !zero.IsZero() {
		t.Fatal("zero TaskID should report IsZero() == true")
	}

	// Act
	id := GenerateTaskID()

	// Assert
	if id.IsZero() {
		t.Fatal("generated TaskID should not be zero")
	}
	if id.String() == "" {
		t.Fatal("TaskID.String() should not be empty")
	}
	if next := GenerateTaskID(); next <= id {
		t.Fatalf("GenerateTaskID not increasing: %d after %d", next, id)
	}
}

// TestTaskTraits_Presets verifies the traits helpers
// Main test items:
// 1. DefaultTaskTraits is normal priority, any affinity, deferred, blocking
// 2. TraitsContext is high priority, context affinity, immediate, blocking
// 3. With* builders return modified copies
func TestTaskTraits_Presets(t *testing.T) {
	d := DefaultTaskTraits()
	if d.Priority != TaskPriorityNormal || d.Affinity != AffinityAny || d.Launch != LaunchDeferred || !d.Blocking {
		t.Errorf("DefaultTaskTraits = %+v", d)
	}

	c := TraitsContext()
	if c.Priority != TaskPriorityHigh || c.Affinity != AffinityContext || c.Launch != LaunchImmediate || !c.Blocking {
		t.Errorf("TraitsContext = %+v", c)
	}

	modified := d.WithPriority(TaskPriorityIdle).WithBlocking(false).WithName("gc")
	if modified.Priority != TaskPriorityIdle || modified.Blocking || modified.Name != "gc" {
		t.Errorf("builders produced %+v", modified)
	}
	if d.Priority != TaskPriorityNormal || !d.Blocking {
		t.Error("builders must not modify the receiver")
	}
	if TraitsLow().Priority != TaskPriorityLow || TraitsHigh().Priority != TaskPriorityHigh || TraitsIdle().Priority != TaskPriorityIdle {
		t.Error("priority presets are wrong")
	}
}

// TestEnumStrings verifies the String forms used in logs and metric labels
func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{TaskPriorityHigh.String(), "high"},
		{TaskPriorityIdle.String(), "idle"},
		{AffinityAny.String(), "any"},
		{AffinityContext.String(), "context"},
		{Affinity(7).String(), "affinity(7)"},
		{LaunchImmediate.String(), "immediate"},
		{LaunchDeferred.String(), "deferred"},
		{FiberSuspended.String(), "suspended"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

// TestFiberFromContext verifies extracting the fiber from a context
// Given: A plain context and a context carrying an external fiber
// When: FiberFromContext and WorkerFromContext are called
// Then: Only the annotated context yields a fiber, and no worker hosts an external fiber
func TestFiberFromContext(t *testing.T) {
	if got := FiberFromContext(context.Background()); got != nil {
		t.Fatalf("FiberFromContext(background) = %#v, want nil", got)
	}

	s := NewScheduler(DefaultConfig(), &Hooks{Logger: NewNoOpLogger()})
	ctx := s.Enter(context.Background())

	f := FiberFromContext(ctx)
	if f == nil {
		t.Fatal("Enter should attach a fiber")
	}
	if !f.IsExternal() {
		t.Error("Enter should attach an external fiber")
	}
	if _, ok := WorkerFromContext(ctx); ok {
		t.Error("an external fiber has no hosting worker")
	}
}
