package core

import "math"

// Controller defaults
const (
	DefaultKp      = 0.0002
	DefaultUpLimit = 15
)

// ClampMode selects how the controller output is saturated
type ClampMode uint8

const (
	// ClampUpper limits only the positive side of the output
	ClampUpper ClampMode = iota
	// ClampSymmetric limits both sides to the same magnitude
	ClampSymmetric
)

// ControllerConfig holds the proportional controller parameters
type ControllerConfig struct {
	Kp      float64
	UpLimit float64
	Clamp   ClampMode
}

// DefaultControllerConfig returns the standard gain and limit
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Kp:      DefaultKp,
		UpLimit: DefaultUpLimit,
		Clamp:   ClampUpper,
	}
}

// Controller is a proportional position controller
type Controller struct {
	cfg ControllerConfig

	lastError  int32
	lastOutput int8
}

// NewController creates a controller
func NewController(cfg ControllerConfig) *Controller {
	return &Controller{cfg: cfg}
}

// ControlError returns setpoint - position as a signed wrapping difference
func ControlError(setpoint, position uint32) int32 {
	return int32(setpoint - position)
}

// Update computes the actuation command for one tick
func (c *Controller) Update(setpoint, position uint32) int8 {
	e := ControlError(setpoint, position)
	u := -c.cfg.Kp * float64(e)

	if u > c.cfg.UpLimit {
		u = c.cfg.UpLimit
	}
	if c.cfg.Clamp == ClampSymmetric && u < -c.cfg.UpLimit {
		u = -c.cfg.UpLimit
	}

	out := toInt8(u)
	c.lastError = e
	c.lastOutput = out
	return out
}

// LastError returns the error computed by the last Update
func (c *Controller) LastError() int32 {
	return c.lastError
}

// LastOutput returns the command computed by the last Update
func (c *Controller) LastOutput() int8 {
	return c.lastOutput
}

// toInt8 truncates toward zero, saturating at the int8 range
func toInt8(f float64) int8 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt8:
		return math.MaxInt8
	case f <= math.MinInt8:
		return math.MinInt8
	}
	return int8(f)
}
