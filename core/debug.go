package core

import (
	"sync/atomic"

	"dcservo/protocol"
)

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures a control-loop event for post-mortem analysis
type Event struct {
	Type   uint8  // Event type code
	Clock  uint32 // System clock at event
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event type codes
const (
	EvtOverrun       = 1 // Control tick started after its next wake time
	EvtActuatorFault = 2 // Motor driver rejected a command
	EvtLogFault      = 3 // Telemetry write or sync failed
	EvtLogClosed     = 4 // Telemetry sink closed on request
	EvtStepObserved  = 5 // Planner picked up a new step
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled atomic.Bool

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, logs, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled.Load()
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker(debugChan)
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker(ch chan string) {
	for msg := range ch {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync from the control tick)
func DebugPrintln(msg string) {
	if debugEnabled.Load() && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// EventRing keeps the most recent control-loop events. Record is called only
// from the control tick; Dump and Clear are meant for after the loop stopped,
// or for best-effort reads while it runs.
type EventRing struct {
	events [EventRingSize]Event
	head   uint8
	total  atomic.Uint32
}

// Record captures an event in the ring
// This is always non-blocking and allocation-free
func (r *EventRing) Record(eventType uint8, clock, value1, value2 uint32) {
	idx := r.head
	r.events[idx] = Event{
		Type:   eventType,
		Clock:  clock,
		Value1: value1,
		Value2: value2,
	}
	r.head = (idx + 1) % EventRingSize
	r.total.Add(1)
}

// Total returns how many events were recorded since the last Clear
func (r *EventRing) Total() uint32 {
	return r.total.Load()
}

// Events returns the recorded events, oldest first
func (r *EventRing) Events() []Event {
	out := make([]Event, 0, EventRingSize)
	start := r.head
	for i := uint8(0); i < EventRingSize; i++ {
		evt := r.events[(start+i)%EventRingSize]
		if evt.Type == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// Dump writes the ring to the debug writer, oldest first
func (r *EventRing) Dump() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	debugPrintln("[EVENTS] Total events: " + itoa(int64(r.Total())))

	for _, evt := range r.Events() {
		debugPrintln("[EVENTS] " + EventName(evt.Type) +
			" clock=" + itoa(int64(evt.Clock)) +
			" v1=" + itoa(int64(evt.Value1)) +
			" v2=" + itoa(int64(evt.Value2)))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// Clear empties the ring
func (r *EventRing) Clear() {
	for i := range r.events {
		r.events[i] = Event{}
	}
	r.head = 0
	r.total.Store(0)
}

// EventName returns the printable name of an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtOverrun:
		return "OVERRUN"
	case EvtActuatorFault:
		return "ACTUATOR_FAULT"
	case EvtLogFault:
		return "LOG_FAULT"
	case EvtLogClosed:
		return "LOG_CLOSED"
	case EvtStepObserved:
		return "STEP"
	default:
		return "UNKNOWN"
	}
}

func itoa(v int64) string {
	var buf [20]byte
	return string(protocol.AppendInt(buf[:0], v))
}
