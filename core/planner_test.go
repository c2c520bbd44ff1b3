package core

import "testing"

func TestPlannerAccumulates(t *testing.T) {
	for step := int32(-MaxStep); step <= MaxStep; step++ {
		p := NewPlanner(PositionMidpoint)
		const n = 5000
		for i := 0; i < n; i++ {
			p.Advance(step)
		}
		expected := uint32(int64(PositionMidpoint) + n*int64(step))
		if p.Setpoint() != expected {
			t.Errorf("Step %d: expected setpoint %d, got %d", step, expected, p.Setpoint())
		}
	}
}

func TestPlannerWraps(t *testing.T) {
	p := NewPlanner(4294967290)
	if got := p.Advance(11); got != 5 {
		t.Errorf("Expected wrap to 5, got %d", got)
	}
	if got := p.Advance(-11); got != 4294967290 {
		t.Errorf("Expected wrap back to 4294967290, got %d", got)
	}
}
