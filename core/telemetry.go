package core

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"dcservo/protocol"
)

// DefaultLogEvery is the number of ticks between telemetry records
const DefaultLogEvery = 1000

// ErrNoSink is returned by Close on a logger created without a sink
var ErrNoSink = errors.New("no log sink")

// LogSink receives telemetry records
type LogSink interface {
	io.Writer
	Sync() error
	Close() error
}

// Storage provides the filesystem a LogSink lives on
type Storage interface {
	Mount() error
	Create(name string) (LogSink, error)
	Unmount() error
}

// LoggerStats counts telemetry outcomes
type LoggerStats struct {
	Records     uint32
	WriteErrors uint32
	SyncErrors  uint32
	Closed      bool
}

// Logger writes a fixed-width position record to its sink every N ticks.
// Only the control tick touches the sink; other goroutines ask for it to be
// closed with RequestClose and wait on Closed.
type Logger struct {
	sink    LogSink
	every   uint32
	counter uint32
	buf     [protocol.RecordSize]byte
	events  *EventRing

	done     bool // tick only
	closeReq atomic.Bool
	closed   chan struct{}
	closeErr error // written before closed is closed

	records   atomic.Uint32
	writeErrs atomic.Uint32
	syncErrs  atomic.Uint32
}

// NewLogger creates a logger writing to sink every ticks (0 means the
// default). A nil sink gives a logger that never writes and reports closed.
func NewLogger(sink LogSink, every uint32) *Logger {
	if every == 0 {
		every = DefaultLogEvery
	}
	l := &Logger{
		sink:   sink,
		every:  every,
		closed: make(chan struct{}),
	}
	if sink == nil {
		l.done = true
		l.closeErr = ErrNoSink
		close(l.closed)
	}
	return l
}

// Tick advances the decimation counter and emits a record when it is due.
// A pending close request is served before anything else.
func (l *Logger) Tick(position uint32) {
	if l.done {
		return
	}
	if l.closeReq.Load() {
		l.closeErr = l.sink.Close()
		l.done = true
		l.record(EvtLogClosed, l.records.Load(), 0)
		close(l.closed)
		return
	}

	l.counter++
	if l.counter < l.every {
		return
	}
	l.counter = 0

	rec := protocol.AppendRecord(l.buf[:0], position)
	if _, err := l.sink.Write(rec); err != nil {
		n := l.writeErrs.Add(1)
		l.record(EvtLogFault, position, n)
		DebugAsync("[LOG] telemetry write failed")
		return
	}
	if err := l.sink.Sync(); err != nil {
		n := l.syncErrs.Add(1)
		l.record(EvtLogFault, position, n)
		DebugAsync("[LOG] telemetry sync failed")
		return
	}
	l.records.Add(1)
}

func (l *Logger) record(evt uint8, v1, v2 uint32) {
	if l.events != nil {
		l.events.Record(evt, GetTime(), v1, v2)
	}
}

// RequestClose asks the control tick to close the sink
func (l *Logger) RequestClose() {
	l.closeReq.Store(true)
}

// Closed returns a channel closed once the sink has been closed
func (l *Logger) Closed() <-chan struct{} {
	return l.closed
}

// Close requests the sink close and waits for the control tick to do it
func (l *Logger) Close(ctx context.Context) error {
	l.RequestClose()
	select {
	case <-l.closed:
		return l.closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the telemetry counters
func (l *Logger) Stats() LoggerStats {
	st := LoggerStats{
		Records:     l.records.Load(),
		WriteErrors: l.writeErrs.Load(),
		SyncErrors:  l.syncErrs.Load(),
	}
	select {
	case <-l.closed:
		st.Closed = true
	default:
	}
	return st
}
