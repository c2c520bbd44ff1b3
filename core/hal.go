package core

// Encoder counter range. The counter wraps to zero after EncoderMax and
// starts at PositionMidpoint so excursions either way stay clear of zero.
const (
	EncoderMax       uint32 = 4294967200
	PositionMidpoint uint32 = 2000000000
)

// Direction is the motor drive polarity
type Direction uint8

const (
	DirReverse Direction = 0
	DirForward Direction = 1
)

func (d Direction) String() string {
	if d == DirForward {
		return "forward"
	}
	return "reverse"
}

// EncoderDriver is the quadrature decoder interface that core code uses.
// Platform-specific implementations sample the actual hardware.
type EncoderDriver interface {
	// Position returns the free-running counter in [0, EncoderMax]
	Position() uint32

	// Direction returns +1 or -1 for the last observed motion
	Direction() int32

	// Velocity returns the magnitude of counts per velocity period
	Velocity() uint32
}

// MotorDriver is the H-bridge interface that core code uses.
type MotorDriver interface {
	// SetDirection sets the direction output
	SetDirection(dir Direction) error

	// SetDutyPercent sets the PWM duty as a percentage of the carrier period
	SetDutyPercent(percent uint8) error

	// Enable turns the PWM output and its generator on or off
	Enable(on bool) error
}

// EncoderSample is one snapshot of the encoder
type EncoderSample struct {
	Position  uint32
	Direction int32
	Velocity  uint32
}

// SampleEncoder reads a snapshot from the encoder
func SampleEncoder(enc EncoderDriver) EncoderSample {
	return EncoderSample{
		Position:  enc.Position(),
		Direction: enc.Direction(),
		Velocity:  enc.Velocity(),
	}
}

// SignedVelocity returns the velocity with the direction applied
func (s EncoderSample) SignedVelocity() int64 {
	return int64(s.Velocity) * int64(s.Direction)
}
