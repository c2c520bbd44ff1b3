package core

import (
	"errors"
	"sync"
)

var errMock = errors.New("mock failure")

// mockEncoder is a test implementation of EncoderDriver
type mockEncoder struct {
	position  uint32
	direction int32
	velocity  uint32
}

func newMockEncoder() *mockEncoder {
	return &mockEncoder{position: PositionMidpoint, direction: 1}
}

func (m *mockEncoder) Position() uint32 { return m.position }
func (m *mockEncoder) Direction() int32 { return m.direction }
func (m *mockEncoder) Velocity() uint32 { return m.velocity }

// mockMotor is a test implementation of MotorDriver
type mockMotor struct {
	dir     Direction
	duty    uint8
	enabled bool
	calls   int

	failDirection bool
	failDuty      bool
}

func (m *mockMotor) SetDirection(dir Direction) error {
	m.calls++
	if m.failDirection {
		return errMock
	}
	m.dir = dir
	return nil
}

func (m *mockMotor) SetDutyPercent(percent uint8) error {
	m.calls++
	if m.failDuty {
		return errMock
	}
	m.duty = percent
	return nil
}

func (m *mockMotor) Enable(on bool) error {
	m.calls++
	m.enabled = on
	return nil
}

// mockSink is a test implementation of LogSink
type mockSink struct {
	mu     sync.Mutex
	data   []byte
	writes int
	syncs  int
	closes int

	failWrite bool
	failSync  bool
}

func (m *mockSink) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return 0, errMock
	}
	m.writes++
	m.data = append(m.data, p...)
	return len(p), nil
}

func (m *mockSink) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSync {
		return errMock
	}
	m.syncs++
	return nil
}

func (m *mockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

func (m *mockSink) snapshot() (data string, writes, syncs, closes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data), m.writes, m.syncs, m.closes
}

// countingSink discards records without allocating
type countingSink struct {
	bytes int
}

func (c *countingSink) Write(p []byte) (int, error) {
	c.bytes += len(p)
	return len(p), nil
}

func (c *countingSink) Sync() error  { return nil }
func (c *countingSink) Close() error { return nil }

// mockStorage is a test implementation of Storage
type mockStorage struct {
	mu       sync.Mutex
	unmounts int

	failUnmount bool
}

func (m *mockStorage) Mount() error { return nil }

func (m *mockStorage) Create(name string) (LogSink, error) {
	return &mockSink{}, nil
}

func (m *mockStorage) Unmount() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmounts++
	if m.failUnmount {
		return errMock
	}
	return nil
}
