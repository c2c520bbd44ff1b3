package sim

import (
	"testing"
	"time"

	"dcservo/core"
)

func TestPlantAtRest(t *testing.T) {
	p := NewPlant(DefaultParams())
	for i := 0; i < 1000; i++ {
		p.Advance(100 * time.Microsecond)
	}
	if p.Position() != core.PositionMidpoint {
		t.Errorf("Expected plant at rest, moved to %d", p.Position())
	}
	if p.Velocity() != 0 {
		t.Errorf("Expected zero velocity, got %d", p.Velocity())
	}
}

func TestPlantDirection(t *testing.T) {
	tests := []struct {
		dir       core.Direction
		direction int32
	}{
		{core.DirForward, -1},
		{core.DirReverse, 1},
	}

	for _, test := range tests {
		p := NewPlant(DefaultParams())
		p.SetDirection(test.dir)
		p.SetDutyPercent(50)
		p.Enable(true)
		for i := 0; i < 2000; i++ {
			p.Advance(100 * time.Microsecond)
		}

		moved := int64(p.Position()) - int64(core.PositionMidpoint)
		if (moved < 0) != (test.direction < 0) || moved == 0 {
			t.Errorf("%v: unexpected displacement %d", test.dir, moved)
		}
		if p.Direction() != test.direction {
			t.Errorf("%v: expected direction %d, got %d", test.dir, test.direction, p.Direction())
		}

		// 50% of 2M counts/s over a 10 ms window, once the speed has settled
		if v := p.Velocity(); v < 9000 || v > 10100 {
			t.Errorf("%v: expected velocity near 10000, got %d", test.dir, v)
		}
	}
}

func TestPlantDisabledCoasts(t *testing.T) {
	p := NewPlant(DefaultParams())
	p.SetDutyPercent(80)
	p.Enable(true)
	for i := 0; i < 500; i++ {
		p.Advance(100 * time.Microsecond)
	}
	p.Enable(false)
	for i := 0; i < 5000; i++ {
		p.Advance(100 * time.Microsecond)
	}
	if s := p.Speed(); s > 1 || s < -1 {
		t.Errorf("Expected motor stopped, speed %v", s)
	}
}
