//go:build rp2040

package main

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"dcservo/core"
)

var errStateMachineClaimed = errors.New("encoder: PIO state machine already claimed")

// PIO program for quadrature counting
// Y holds a free-running up/down count. Each pass shifts the previous A/B
// state (kept in OSR) and the new one into ISR and jumps through the 16-entry
// table at offset 0, so the program must be loaded at origin 0. Every pass
// pushes Y with noblock; the CPU drains the stale entries and takes the next
// fresh one, so no count is lost when the FIFO overflows.
//
//	 0-13: jump table indexed by old<<2 | new
//	14: decrement: jmp y--, 15
//	15: update: mov isr, y          (.wrap_target)
//	16: push noblock
//	17: out isr, 2
//	18: in pins, 2
//	19: mov osr, isr
//	20: mov pc, isr
//	21: increment: mov y, ~y
//	22: jmp y--, 23
//	23: mov y, ~y                   (.wrap)
const (
	quadUpdate    = 15
	quadDecrement = 14
	quadIncrement = 21

	quadWrapTarget = 15
	quadWrap       = 23
)

// buildQuadratureProgram encodes the program. Jumps go through the
// assembler; the rest is written as raw opcodes.
func buildQuadratureProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	upd := asm.Jmp(quadUpdate, rp2pio.JmpAlways).Encode()
	dec := asm.Jmp(quadDecrement, rp2pio.JmpAlways).Encode()
	inc := asm.Jmp(quadIncrement, rp2pio.JmpAlways).Encode()

	return []uint16{
		// from 00
		upd, dec, inc, upd,
		// from 01
		inc, upd, upd, dec,
		// from 10
		dec, upd, upd, inc,
		// from 11; the last two entries fall into decrement and update
		upd, inc,
		asm.Jmp(quadUpdate, rp2pio.JmpYNZeroDec).Encode(), // 14: jmp y--, update
		0xA0C2, // 15: mov isr, y
		0x8000, // 16: push noblock
		0x60C2, // 17: out isr, 2
		0x4002, // 18: in pins, 2
		0xA0E6, // 19: mov osr, isr
		0xA0A6, // 20: mov pc, isr
		0xA04A, // 21: mov y, ~y
		asm.Jmp(23, rp2pio.JmpYNZeroDec).Encode(), // 22: jmp y--, 23
		0xA04A, // 23: mov y, ~y
	}
}

const (
	quadraturePIOOrigin = 0 // The jump table needs absolute addresses
	quadratureReadSpins = 1000
)

// PIOEncoder counts a quadrature encoder in a PIO state machine. It
// implements core.EncoderDriver; each Position call reads the running count.
// The state machine samples well over 1M times a second, far above the
// 110k counts/s a full-speed step asks for.
type PIOEncoder struct {
	sm      rp2pio.StateMachine
	decoder *core.QuadratureDecoder
}

// NewPIOEncoder loads the counter on pio/sm with A on pinA and B on pinA+1.
// Velocity is measured over velocityPeriod timer ticks.
func NewPIOEncoder(pio *rp2pio.PIO, smNum uint8, pinA machine.Pin, velocityPeriod uint32) (*PIOEncoder, error) {
	sm := pio.StateMachine(smNum)
	if !sm.TryClaim() {
		return nil, errStateMachineClaimed
	}

	program := buildQuadratureProgram()
	offset, err := pio.AddProgram(program, quadraturePIOOrigin)
	if err != nil {
		return nil, err
	}

	pinB := pinA + 1
	pinA.Configure(machine.PinConfig{Mode: pio.PinMode()})
	pinB.Configure(machine.PinConfig{Mode: pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetInPins(pinA)
	// IN shifts left so old<<2 | new lands in ISR[3:0], OUT takes the low bits
	cfg.SetInShift(false, false, 32)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+quadWrap, offset+quadWrapTarget)
	cfg.SetClkDivIntFrac(10, 0) // 12.5 MHz

	sm.Init(offset, cfg)
	sm.SetPindirsConsecutive(pinA, 2, false)
	sm.SetEnabled(true)

	e := &PIOEncoder{
		sm:      sm,
		decoder: core.NewQuadratureDecoder(velocityPeriod),
	}
	e.decoder.Reset(0, core.GetTime())
	if raw, ok := e.readCount(); ok {
		e.decoder.Track(-raw)
	}
	return e, nil
}

// readCount drops the stale FIFO entries and waits for the next push
func (e *PIOEncoder) readCount() (uint32, bool) {
	for !e.sm.IsRxFIFOEmpty() {
		e.sm.RxGet()
	}
	for i := 0; i < quadratureReadSpins; i++ {
		if !e.sm.IsRxFIFOEmpty() {
			return e.sm.RxGet(), true
		}
	}
	return 0, false
}

func (e *PIOEncoder) poll() {
	raw, ok := e.readCount()
	if !ok {
		e.decoder.Fault()
		return
	}
	// The table counts 00 -> 01 down, the decoder counts it up
	e.decoder.Track(-raw)
	e.decoder.Sample(core.GetTime())
}

// Position implements core.EncoderDriver
func (e *PIOEncoder) Position() uint32 {
	e.poll()
	return e.decoder.Position()
}

// Direction implements core.EncoderDriver
func (e *PIOEncoder) Direction() int32 {
	return e.decoder.Direction()
}

// Velocity implements core.EncoderDriver
func (e *PIOEncoder) Velocity() uint32 {
	return e.decoder.Velocity()
}

// Errors returns the number of reads the state machine failed to serve
func (e *PIOEncoder) Errors() uint32 {
	return e.decoder.Errors()
}
