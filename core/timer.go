package core

import (
	"sync/atomic"
	"time"
)

// TimerFreq is the system tick rate. The RP2040 timer counts microseconds.
const TimerFreq = 1000000

var systemTicks atomic.Uint32

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return systemTicks.Load()
}

// SetTime sets the current system time. Platform code calls this from its
// main loop with the hardware counter value.
func SetTime(ticks uint32) {
	systemTicks.Store(ticks)
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}

// TimerFromDuration converts a duration to timer ticks, wrapping at 32 bits
// like the hardware counter does.
func TimerFromDuration(d time.Duration) uint32 {
	return uint32(uint64(d) * TimerFreq / uint64(time.Second))
}

// PeriodFromHz returns the timer period for a task running at hz
func PeriodFromHz(hz uint32) uint32 {
	if hz == 0 || hz > TimerFreq {
		return 1
	}
	return TimerFreq / hz
}

// TimerIsBefore reports whether time a is before time b, treating the 32-bit
// counter as wrapping.
func TimerIsBefore(a, b uint32) bool {
	return int32(a-b) < 0
}
