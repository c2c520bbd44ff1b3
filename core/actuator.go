package core

// MaxDuty is the largest duty percentage sent to the motor driver
const MaxDuty = 100

// ActuatorState is the output last applied to the motor driver
type ActuatorState struct {
	Command   int8
	Direction Direction
	Duty      uint8
	Enabled   bool
}

// Actuator maps a signed command onto direction, duty and enable outputs
type Actuator struct {
	drv MotorDriver
	out ActuatorState
}

// NewActuator creates an actuator over drv
func NewActuator(drv MotorDriver) *Actuator {
	return &Actuator{drv: drv}
}

// Drive applies command u. Zero disables the output. Otherwise the sign picks
// the direction and |u| is the duty percentage. If any driver call fails the
// output is disabled and the error returned.
func (a *Actuator) Drive(u int8) error {
	a.out.Command = u
	if u == 0 {
		return a.disable()
	}

	dir := DirForward
	mag := int16(u)
	if u < 0 {
		dir = DirReverse
		mag = -mag
	}
	if mag > MaxDuty {
		mag = MaxDuty
	}

	if err := a.drv.SetDirection(dir); err != nil {
		a.disable()
		return err
	}
	a.out.Direction = dir

	if err := a.drv.SetDutyPercent(uint8(mag)); err != nil {
		a.disable()
		return err
	}
	a.out.Duty = uint8(mag)

	if err := a.drv.Enable(true); err != nil {
		a.disable()
		return err
	}
	a.out.Enabled = true
	return nil
}

func (a *Actuator) disable() error {
	a.out.Enabled = false
	a.out.Duty = 0
	return a.drv.Enable(false)
}

// State returns the output last applied
func (a *Actuator) State() ActuatorState {
	return a.out
}
