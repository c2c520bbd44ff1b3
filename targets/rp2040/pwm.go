//go:build rp2040

package main

import (
	"machine"

	"dcservo/core"
)

// pwmPeripheral is an interface for PWM hardware peripherals
// This abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
	Enable(enable bool)
}

// MotorDriver implements core.MotorDriver for an H-bridge with a PWM input
// and a direction input, using one RP2040 hardware PWM slice
type MotorDriver struct {
	pwm     pwmPeripheral
	channel uint8
	dirPin  machine.Pin

	duty    uint8
	enabled bool
}

// NewMotorDriver configures pwmPin for a carrierHz PWM and dirPin as a
// plain output. The output starts disabled.
func NewMotorDriver(pwmPin, dirPin machine.Pin, carrierHz uint32) (*MotorDriver, error) {
	// GPIO pin N maps to slice (N >> 1) & 0x7, channel N & 1
	pwm := getPWMPeripheral(uint8((uint32(pwmPin) >> 1) & 0x7))

	err := pwm.Configure(machine.PWMConfig{
		Period: 1000000000 / uint64(carrierHz), // nanoseconds
	})
	if err != nil {
		return nil, err
	}
	channel, err := pwm.Channel(pwmPin)
	if err != nil {
		return nil, err
	}

	dirPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	dirPin.Low()

	d := &MotorDriver{pwm: pwm, channel: channel, dirPin: dirPin}
	d.Enable(false)
	return d, nil
}

// SetDirection sets the direction pin, high for forward
func (d *MotorDriver) SetDirection(dir core.Direction) error {
	d.dirPin.Set(dir == core.DirForward)
	return nil
}

// SetDutyPercent sets the duty. It takes effect immediately when enabled.
func (d *MotorDriver) SetDutyPercent(percent uint8) error {
	if percent > core.MaxDuty {
		percent = core.MaxDuty
	}
	d.duty = percent
	if d.enabled {
		d.apply()
	}
	return nil
}

// Enable starts or stops the PWM slice. A stopped slice holds its output low.
func (d *MotorDriver) Enable(on bool) error {
	d.enabled = on
	if on {
		d.apply()
		d.pwm.Enable(true)
		return nil
	}
	d.pwm.Set(d.channel, 0)
	d.pwm.Enable(false)
	return nil
}

func (d *MotorDriver) apply() {
	// Calculate duty cycle: (percent * top) / 100
	top := d.pwm.Top()
	d.pwm.Set(d.channel, uint32(uint64(d.duty)*uint64(top)/core.MaxDuty))
}

// getPWMPeripheral returns the PWM peripheral for a given slice number
// RP2040 has 8 PWM slices: PWM0-PWM7
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	case 7:
		return machine.PWM7
	default:
		// Should never happen with proper masking
		return machine.PWM0
	}
}
