package mcu

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"dcservo/core"
)

// fakePort is a serial.Port fed by the test
type fakePort struct {
	*io.PipeReader
	target *io.PipeWriter

	mu      sync.Mutex
	written bytes.Buffer

	flushErr error
	flushes  int
	closed   bool
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{PipeReader: r, target: w}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.target.Close()
	return p.PipeReader.Close()
}

func (p *fakePort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushes++
	return p.flushErr
}

func (p *fakePort) sent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func TestSendStep(t *testing.T) {
	port := newFakePort()
	m := NewMCU()
	m.Attach(port)
	defer m.Close()

	if err := m.SendStep(-7); err != nil {
		t.Fatalf("SendStep failed: %v", err)
	}
	if err := m.SendStep(12); !errors.Is(err, core.ErrStepRange) {
		t.Errorf("Expected ErrStepRange, got %v", err)
	}
	if port.sent() != "-7\r" {
		t.Errorf("Unexpected bytes sent %q", port.sent())
	}
}

func TestSendBeforeConnect(t *testing.T) {
	if err := NewMCU().SendLine("3"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestWaitReport(t *testing.T) {
	port := newFakePort()
	m := NewMCU()
	m.Attach(port)
	defer m.Close()

	go io.WriteString(port.target, "Give command\r\n3\r\n"+
		"Desired step: 3\r\n"+
		"Position 0: 2000000100\r\n"+
		"Desired Setpoint: 2000000400\r\n"+
		"Error: 300\r\n"+
		"Output: -7\r\n")

	rep, err := m.WaitReport(5 * time.Second)
	if err != nil {
		t.Fatalf("WaitReport failed: %v", err)
	}
	expected := Report{Step: 3, Position: 2000000100, Setpoint: 2000000400, Error: 300, Output: -7}
	if rep != expected {
		t.Errorf("Expected %+v, got %+v", expected, rep)
	}
}

func TestWaitReportRejected(t *testing.T) {
	port := newFakePort()
	m := NewMCU()
	m.Attach(port)
	defer m.Close()

	go io.WriteString(port.target, "Desired step: 40\nINVALID INPUT\n")

	if _, err := m.WaitReport(5 * time.Second); !errors.Is(err, ErrRejected) {
		t.Errorf("Expected ErrRejected, got %v", err)
	}
}

func TestLinesClosedOnEOF(t *testing.T) {
	port := newFakePort()
	m := NewMCU()
	m.Attach(port)

	go func() {
		io.WriteString(port.target, "Hi!\n")
		port.target.Close()
	}()

	var got []string
	for line := range m.Lines() {
		got = append(got, line)
	}
	if len(got) != 1 || got[0] != "Hi!" {
		t.Errorf("Unexpected lines %q", got)
	}
	if err := m.Err(); err != nil {
		t.Errorf("Expected clean EOF, got %v", err)
	}
}

func TestAttachFlushed(t *testing.T) {
	port := newFakePort()
	m := NewMCU()
	if err := m.attachFlushed(port); err != nil {
		t.Fatalf("attachFlushed failed: %v", err)
	}
	defer m.Close()

	if port.flushes != 1 {
		t.Errorf("Expected one flush, got %d", port.flushes)
	}
	if err := m.SendLine("0"); err != nil {
		t.Errorf("Expected the MCU connected, got %v", err)
	}
}

func TestAttachFlushedFailure(t *testing.T) {
	errFlush := errors.New("flush failed")
	port := newFakePort()
	port.flushErr = errFlush
	m := NewMCU()

	if err := m.attachFlushed(port); !errors.Is(err, errFlush) {
		t.Fatalf("Expected the flush error, got %v", err)
	}
	if !port.closed {
		t.Error("Expected the port closed after a failed flush")
	}
	if err := m.SendLine("0"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}
