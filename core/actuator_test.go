package core

import (
	"errors"
	"testing"
)

func TestActuatorMapping(t *testing.T) {
	tests := []struct {
		u       int8
		dir     Direction
		duty    uint8
		enabled bool
	}{
		{5, DirForward, 5, true},
		{15, DirForward, 15, true},
		{-7, DirReverse, 7, true},
		{-128, DirReverse, 100, true},
		{127, DirForward, 100, true},
	}

	for _, test := range tests {
		m := &mockMotor{}
		a := NewActuator(m)
		if err := a.Drive(test.u); err != nil {
			t.Fatalf("Drive(%d) failed: %v", test.u, err)
		}
		if m.dir != test.dir || m.duty != test.duty || m.enabled != test.enabled {
			t.Errorf("Drive(%d): expected dir=%v duty=%d enabled=%v, got dir=%v duty=%d enabled=%v",
				test.u, test.dir, test.duty, test.enabled, m.dir, m.duty, m.enabled)
		}
	}
}

func TestActuatorZeroDisables(t *testing.T) {
	m := &mockMotor{}
	a := NewActuator(m)

	a.Drive(9)
	if !m.enabled {
		t.Fatal("Expected output enabled")
	}
	if err := a.Drive(0); err != nil {
		t.Fatalf("Drive(0) failed: %v", err)
	}
	if m.enabled {
		t.Error("Expected zero command to disable the output")
	}
	if a.State().Enabled || a.State().Duty != 0 {
		t.Errorf("Unexpected actuator state %+v", a.State())
	}
}

func TestActuatorIdempotent(t *testing.T) {
	once := &mockMotor{}
	NewActuator(once).Drive(5)

	twice := &mockMotor{}
	a := NewActuator(twice)
	a.Drive(5)
	first := a.State()
	a.Drive(5)

	if once.dir != twice.dir || once.duty != twice.duty || once.enabled != twice.enabled {
		t.Errorf("Expected identical output, got %+v and %+v", once, twice)
	}
	if a.State() != first {
		t.Errorf("Expected state %+v, got %+v", first, a.State())
	}
}

func TestActuatorDirectionFault(t *testing.T) {
	m := &mockMotor{}
	a := NewActuator(m)
	a.Drive(5)

	m.failDirection = true
	err := a.Drive(-5)
	if !errors.Is(err, errMock) {
		t.Fatalf("Expected driver error, got %v", err)
	}
	if m.enabled {
		t.Error("Expected output disabled after direction fault")
	}
	if m.dir != DirForward {
		t.Errorf("Expected direction pin untouched, got %v", m.dir)
	}
}

func TestActuatorDutyFault(t *testing.T) {
	m := &mockMotor{failDuty: true}
	a := NewActuator(m)

	if err := a.Drive(3); err == nil {
		t.Fatal("Expected error")
	}
	if m.enabled || a.State().Enabled {
		t.Error("Expected output disabled after duty fault")
	}
}
