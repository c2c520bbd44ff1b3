package core

// Planner accumulates the step into the setpoint once per tick.
// The setpoint wraps modulo 2^32.
type Planner struct {
	setpoint uint32
}

// NewPlanner creates a planner starting at setpoint
func NewPlanner(setpoint uint32) *Planner {
	return &Planner{setpoint: setpoint}
}

// Advance adds step to the setpoint and returns the new value
func (p *Planner) Advance(step int32) uint32 {
	p.setpoint += uint32(step)
	return p.setpoint
}

// Setpoint returns the current setpoint
func (p *Planner) Setpoint() uint32 {
	return p.setpoint
}
