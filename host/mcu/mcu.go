// Package mcu talks to the servo firmware's command console over a serial
// link.
package mcu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"dcservo/core"
	"dcservo/host/serial"
	"dcservo/protocol"
)

// ErrNotConnected is returned when the MCU is used before Connect
var ErrNotConnected = errors.New("not connected to MCU")

// MCU represents a connection to the servo target console
type MCU struct {
	port serial.Port

	mu        sync.Mutex
	connected bool

	lines chan string
	done  chan struct{}
	err   error // reader error, valid once done is closed
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{}
}

// Connect connects to the target via serial port
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to the target with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	return m.attachFlushed(port)
}

// attachFlushed discards stale target output, then attaches port. The port
// is closed if the flush fails.
func (m *MCU) attachFlushed(port serial.Port) error {
	if err := port.Flush(); err != nil {
		port.Close()
		return fmt.Errorf("failed to flush serial port: %w", err)
	}
	m.Attach(port)
	return nil
}

// Attach uses an already open port and starts reading target output
func (m *MCU) Attach(port serial.Port) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.port = port
	m.connected = true
	m.lines = make(chan string, 64)
	m.done = make(chan struct{})
	go m.readLoop(port, m.lines, m.done)
}

func (m *MCU) readLoop(r io.Reader, lines chan<- string, done chan<- struct{}) {
	defer close(done)
	defer close(lines)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- strings.TrimRight(scanner.Text(), "\r")
	}
	m.err = scanner.Err()
}

// Lines returns target output, one line at a time. The channel is closed
// when the link fails or is closed.
func (m *MCU) Lines() <-chan string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lines
}

// Err returns the error that ended the output stream, if any
func (m *MCU) Err() error {
	<-m.done
	return m.err
}

// Close closes the connection to the target
func (m *MCU) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}
	m.connected = false
	return m.port.Close()
}

// SendLine sends one command line. Lines longer than the target keeps are
// sent in full and truncated by the target.
func (m *MCU) SendLine(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	if _, err := io.WriteString(m.port, line+"\r"); err != nil {
		return fmt.Errorf("failed to send %q: %w", line, err)
	}
	return nil
}

// SendStep sends a step command. Out of range steps are refused locally.
func (m *MCU) SendStep(step int32) error {
	if !core.ValidStep(step) {
		return fmt.Errorf("step %d: %w", step, core.ErrStepRange)
	}
	return m.SendLine(strconv.FormatInt(int64(step), 10))
}

// Report is the target's reply to an accepted step
type Report struct {
	Step     int32
	Position uint32
	Setpoint uint32
	Error    int32
	Output   int32
}

// ErrRejected is returned by WaitReport when the target rejected the command
var ErrRejected = errors.New("target rejected command")

// WaitReport reads target output until a complete step report or a
// rejection arrives
func (m *MCU) WaitReport(timeout time.Duration) (Report, error) {
	var rep Report
	seen := 0
	deadline := time.After(timeout)

	for {
		select {
		case line, ok := <-m.Lines():
			if !ok {
				return rep, io.ErrUnexpectedEOF
			}
			if line == "INVALID INPUT" {
				return rep, ErrRejected
			}
			if parseReportLine(line, &rep) {
				seen++
				if seen == 5 {
					return rep, nil
				}
			}
		case <-deadline:
			return rep, fmt.Errorf("no report within %v", timeout)
		}
	}
}

// parseReportLine fills the field named by line, reporting whether it was a
// report line
func parseReportLine(line string, rep *Report) bool {
	label, value, ok := strings.Cut(line, ": ")
	if !ok {
		return false
	}
	v := protocol.ParseDecimal(value)
	switch label {
	case "Desired step":
		rep.Step = v
	case "Position 0":
		rep.Position = parseUint(value)
	case "Desired Setpoint":
		rep.Setpoint = parseUint(value)
	case "Error":
		rep.Error = v
	case "Output":
		rep.Output = v
	default:
		return false
	}
	return true
}

func parseUint(s string) uint32 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
