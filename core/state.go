package core

import (
	"errors"
	"sync/atomic"
)

// MaxStep is the largest step magnitude the console accepts
const MaxStep = 11

// ErrStepRange is returned when a requested step is outside [-MaxStep, MaxStep]
var ErrStepRange = errors.New("step out of range")

// State is the control-loop state shared between the control tick and the
// console. Step is written by the console and read by the tick. Every other
// field is written only by the tick and read elsewhere as a snapshot.
type State struct {
	step atomic.Int32 // console

	setpoint atomic.Uint32 // tick
	position atomic.Uint32 // tick
	velocity atomic.Int64  // tick
	err      atomic.Int32  // tick
	output   atomic.Int32  // tick
	ticks    atomic.Uint64 // tick
	overruns atomic.Uint32 // tick
}

// Snapshot is a best-effort copy of State. Fields may come from different
// ticks.
type Snapshot struct {
	Step     int32
	Setpoint uint32
	Position uint32
	Velocity int64
	Error    int32
	Output   int8
	Ticks    uint64
	Overruns uint32
}

// NewState returns a State at rest with setpoint and position at the midpoint
func NewState() *State {
	s := &State{}
	s.setpoint.Store(PositionMidpoint)
	s.position.Store(PositionMidpoint)
	return s
}

// ValidStep reports whether v may be published as the step
func ValidStep(v int32) bool {
	return v >= -MaxStep && v <= MaxStep
}

// SetStep publishes a new step. Out of range values leave the step unchanged.
func (s *State) SetStep(v int32) error {
	if !ValidStep(v) {
		return ErrStepRange
	}
	s.step.Store(v)
	return nil
}

// Step returns the current step
func (s *State) Step() int32 {
	return s.step.Load()
}

// Overruns returns how many control periods were missed
func (s *State) Overruns() uint32 {
	return s.overruns.Load()
}

// Ticks returns how many control ticks ran
func (s *State) Ticks() uint64 {
	return s.ticks.Load()
}

// Snapshot reads every field once
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Step:     s.step.Load(),
		Setpoint: s.setpoint.Load(),
		Position: s.position.Load(),
		Velocity: s.velocity.Load(),
		Error:    s.err.Load(),
		Output:   int8(s.output.Load()),
		Ticks:    s.ticks.Load(),
		Overruns: s.overruns.Load(),
	}
}

// publish stores the results of one tick
func (s *State) publish(setpoint uint32, sample EncoderSample, e int32, u int8) {
	s.setpoint.Store(setpoint)
	s.position.Store(sample.Position)
	s.velocity.Store(sample.SignedVelocity())
	s.err.Store(e)
	s.output.Store(int32(u))
	s.ticks.Add(1)
}

func (s *State) addOverruns(n uint32) {
	s.overruns.Add(n)
}
