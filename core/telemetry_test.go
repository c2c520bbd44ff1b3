package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoggerDecimation(t *testing.T) {
	tests := []struct {
		ticks   int
		records int
	}{
		{999, 0},
		{1000, 1},
		{1999, 1},
		{2000, 2},
		{10000, 10},
	}

	for _, test := range tests {
		sink := &mockSink{}
		l := NewLogger(sink, 0)
		for i := 0; i < test.ticks; i++ {
			l.Tick(PositionMidpoint)
		}

		data, writes, syncs, _ := sink.snapshot()
		if writes != test.records || syncs != test.records {
			t.Errorf("%d ticks: expected %d writes and syncs, got %d and %d",
				test.ticks, test.records, writes, syncs)
		}
		if len(data) != test.records*13 {
			t.Errorf("%d ticks: expected %d bytes, got %d", test.ticks, test.records*13, len(data))
		}
		if int(l.Stats().Records) != test.records {
			t.Errorf("%d ticks: Stats reports %d records", test.ticks, l.Stats().Records)
		}
	}
}

func TestLoggerRecordFormat(t *testing.T) {
	sink := &mockSink{}
	l := NewLogger(sink, 1000)
	for i := 0; i < 1000; i++ {
		l.Tick(2000000731)
	}

	data, _, _, _ := sink.snapshot()
	if data != "  2000000731\n" {
		t.Errorf("Unexpected record %q", data)
	}
}

func TestLoggerFailuresCounted(t *testing.T) {
	sink := &mockSink{failWrite: true}
	l := NewLogger(sink, 10)
	l.events = &EventRing{}

	for i := 0; i < 30; i++ {
		l.Tick(1)
	}
	st := l.Stats()
	if st.Records != 0 || st.WriteErrors != 3 {
		t.Errorf("Expected 3 write errors and no records, got %+v", st)
	}
	if _, _, syncs, _ := sink.snapshot(); syncs != 0 {
		t.Errorf("Expected no sync after a failed write, got %d", syncs)
	}
	if l.events.Total() != 3 {
		t.Errorf("Expected 3 events, got %d", l.events.Total())
	}

	sink.failWrite = false
	sink.failSync = true
	for i := 0; i < 10; i++ {
		l.Tick(1)
	}
	if st := l.Stats(); st.SyncErrors != 1 || st.Records != 0 {
		t.Errorf("Expected 1 sync error, got %+v", st)
	}
}

func TestLoggerCloseHandoff(t *testing.T) {
	sink := &mockSink{}
	l := NewLogger(sink, 1)

	l.RequestClose()
	select {
	case <-l.Closed():
		t.Fatal("Sink closed before the next tick")
	default:
	}
	if _, _, _, closes := sink.snapshot(); closes != 0 {
		t.Fatal("Sink closed outside the tick")
	}

	l.Tick(5)
	select {
	case <-l.Closed():
	default:
		t.Fatal("Sink not closed by the tick")
	}

	l.Tick(5)
	l.Tick(5)
	_, writes, _, closes := sink.snapshot()
	if writes != 0 {
		t.Errorf("Expected no writes after close, got %d", writes)
	}
	if closes != 1 {
		t.Errorf("Expected one close, got %d", closes)
	}
	if !l.Stats().Closed {
		t.Error("Expected Stats to report closed")
	}
}

func TestLoggerCloseWaitsForTick(t *testing.T) {
	sink := &mockSink{}
	l := NewLogger(sink, 100)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				l.Tick(42)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	close(stop)
	<-done

	if _, _, _, closes := sink.snapshot(); closes != 1 {
		t.Errorf("Expected one close, got %d", closes)
	}
}

func TestLoggerCloseTimeout(t *testing.T) {
	l := NewLogger(&mockSink{}, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := l.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded without a running tick, got %v", err)
	}
}

func TestLoggerNilSink(t *testing.T) {
	l := NewLogger(nil, 0)
	l.Tick(1)

	select {
	case <-l.Closed():
	default:
		t.Fatal("Expected logger without sink to report closed")
	}
	if err := l.Close(context.Background()); !errors.Is(err, ErrNoSink) {
		t.Errorf("Expected ErrNoSink, got %v", err)
	}
}
