package core

// quadTable maps prev<<2|cur A/B states to a count delta. Entries for a
// double transition are 0 and counted as errors.
var quadTable = [16]int8{
	0, 1, -1, 0,
	-1, 0, 0, 1,
	1, 0, 0, -1,
	0, -1, 1, 0,
}

// WrapPosition adds delta to an encoder count over [0, EncoderMax]
func WrapPosition(count uint32, delta int64) uint32 {
	const span = int64(EncoderMax) + 1
	n := (int64(count) + delta) % span
	if n < 0 {
		n += span
	}
	return uint32(n)
}

// QuadratureDecoder turns either a stream of 2-bit A/B pin states (Feed) or
// a hardware running count (Track) into a position count, a direction and a
// velocity measured over a fixed window. It implements EncoderDriver.
type QuadratureDecoder struct {
	state  uint8
	count  uint32
	dir    int32
	errors uint32

	raw      uint32 // last hardware count seen by Track
	tracking bool

	period      uint32
	windowStart uint32
	moved       int64
	velocity    uint32
}

// NewQuadratureDecoder creates a decoder at the encoder midpoint measuring
// velocity over period timer ticks
func NewQuadratureDecoder(period uint32) *QuadratureDecoder {
	if period == 0 {
		period = 1
	}
	return &QuadratureDecoder{
		count:  PositionMidpoint,
		dir:    1,
		period: period,
	}
}

// Reset sets the current pin state without counting
func (q *QuadratureDecoder) Reset(state uint8, now uint32) {
	q.state = state & 3
	q.windowStart = now
	q.moved = 0
}

// Feed consumes one pin state
func (q *QuadratureDecoder) Feed(state uint8) {
	state &= 3
	idx := q.state<<2 | state
	q.state = state

	delta := quadTable[idx]
	if delta == 0 {
		if idx&3 != idx>>2 {
			q.errors++ // Both pins changed at once
		}
		return
	}
	q.Advance(int64(delta))
}

// Advance moves the count by delta counts
func (q *QuadratureDecoder) Advance(delta int64) {
	if delta == 0 {
		return
	}
	q.count = WrapPosition(q.count, delta)
	if delta < 0 {
		q.dir = -1
	} else {
		q.dir = 1
	}
	q.moved += delta
}

// Track consumes a free-running 32-bit up/down count kept by hardware. The
// first call only sets the reference. Calls must come less than 2^31 counts
// apart.
func (q *QuadratureDecoder) Track(raw uint32) {
	if !q.tracking {
		q.raw = raw
		q.tracking = true
		return
	}
	delta := int32(raw - q.raw)
	q.raw = raw
	q.Advance(int64(delta))
}

// Fault counts a read the hardware failed to deliver
func (q *QuadratureDecoder) Fault() {
	q.errors++
}

// Sample closes the velocity window when it has elapsed at now
func (q *QuadratureDecoder) Sample(now uint32) {
	if now-q.windowStart < q.period {
		return
	}
	m := q.moved
	if m < 0 {
		m = -m
	}
	q.velocity = uint32(m)
	q.moved = 0
	q.windowStart = now
}

// Position implements EncoderDriver
func (q *QuadratureDecoder) Position() uint32 { return q.count }

// Direction implements EncoderDriver
func (q *QuadratureDecoder) Direction() int32 { return q.dir }

// Velocity implements EncoderDriver
func (q *QuadratureDecoder) Velocity() uint32 { return q.velocity }

// Errors returns how many invalid transitions and failed reads were seen
func (q *QuadratureDecoder) Errors() uint32 { return q.errors }
