// Package sim models a DC motor with a quadrature encoder so the control
// loop can run on a host.
package sim

import (
	"math"
	"sync"
	"time"

	"dcservo/core"
)

// Params describes the simulated motor
type Params struct {
	// MaxSpeed is the steady speed in counts per second at 100% duty
	MaxSpeed float64 `yaml:"max_speed"`
	// TimeConstant is the first-order speed response time
	TimeConstant time.Duration `yaml:"time_constant"`
	// VelocityPeriod is the window over which velocity is measured
	VelocityPeriod time.Duration `yaml:"velocity_period"`
}

// DefaultParams returns a small geared motor
func DefaultParams() Params {
	return Params{
		MaxSpeed:       2000000,
		TimeConstant:   20 * time.Millisecond,
		VelocityPeriod: 10 * time.Millisecond,
	}
}

// Plant is a first-order DC motor driving a quadrature encoder. It implements
// core.MotorDriver and core.EncoderDriver. Driving forward moves the count
// down.
type Plant struct {
	mu     sync.Mutex
	params Params

	count uint32
	frac  float64
	speed float64 // counts per second, positive counts up

	dir     core.Direction
	duty    uint8
	enabled bool

	moved     int64
	elapsed   time.Duration
	velocity  uint32
	direction int32
}

// NewPlant creates a plant at rest at the encoder midpoint
func NewPlant(params Params) *Plant {
	if params.VelocityPeriod <= 0 {
		params.VelocityPeriod = DefaultParams().VelocityPeriod
	}
	return &Plant{
		params:    params,
		count:     core.PositionMidpoint,
		direction: 1,
	}
}

// SetDirection implements core.MotorDriver
func (p *Plant) SetDirection(dir core.Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dir = dir
	return nil
}

// SetDutyPercent implements core.MotorDriver
func (p *Plant) SetDutyPercent(percent uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent > core.MaxDuty {
		percent = core.MaxDuty
	}
	p.duty = percent
	return nil
}

// Enable implements core.MotorDriver
func (p *Plant) Enable(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = on
	return nil
}

// Position implements core.EncoderDriver
func (p *Plant) Position() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Direction implements core.EncoderDriver
func (p *Plant) Direction() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.direction
}

// Velocity implements core.EncoderDriver
func (p *Plant) Velocity() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.velocity
}

// Speed returns the instantaneous shaft speed in counts per second
func (p *Plant) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Advance moves the simulation forward by dt
func (p *Plant) Advance(dt time.Duration) {
	if dt <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	target := 0.0
	if p.enabled {
		target = p.params.MaxSpeed * float64(p.duty) / 100
		if p.dir == core.DirForward {
			target = -target
		}
	}

	alpha := 1.0
	if p.params.TimeConstant > 0 {
		alpha = math.Min(1, float64(dt)/float64(p.params.TimeConstant))
	}
	p.speed += (target - p.speed) * alpha

	delta := p.speed*dt.Seconds() + p.frac
	whole := math.Floor(delta)
	p.frac = delta - whole
	p.count = core.WrapPosition(p.count, int64(whole))

	p.moved += int64(whole)
	p.elapsed += dt
	if p.elapsed >= p.params.VelocityPeriod {
		if p.moved < 0 {
			p.direction = -1
			p.velocity = uint32(-p.moved)
		} else {
			if p.moved > 0 {
				p.direction = 1
			}
			p.velocity = uint32(p.moved)
		}
		p.moved = 0
		p.elapsed = 0
	}
}
