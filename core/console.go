package core

import (
	"context"
	"errors"
	"io"

	"go.uber.org/multierr"

	"dcservo/protocol"
)

// LineSource delivers one operator line per call
type LineSource interface {
	ReadLine() (string, error)
}

// ConsoleConfig controls optional console behaviour
type ConsoleConfig struct {
	// StopLogOnReject closes the telemetry sink and unmounts storage the
	// first time a command is rejected.
	StopLogOnReject bool
}

// Console reads step commands and publishes accepted ones to the State
type Console struct {
	state *State
	in    LineSource
	out   io.Writer
	cfg   ConsoleConfig

	logger   *Logger
	storage  Storage
	tornDown bool

	buf []byte
}

// NewConsole creates a console over in, writing replies to out
func NewConsole(state *State, in LineSource, out io.Writer, cfg ConsoleConfig) *Console {
	return &Console{
		state: state,
		in:    in,
		out:   out,
		cfg:   cfg,
		buf:   make([]byte, 0, 128),
	}
}

// WithTeardown sets the logger and storage released on a rejected command
// when StopLogOnReject is set
func (c *Console) WithTeardown(logger *Logger, storage Storage) *Console {
	c.logger = logger
	c.storage = storage
	return c
}

// Run prompts for and handles lines until ctx is done or the source fails.
// A source reaching io.EOF ends the loop without error.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		io.WriteString(c.out, "Give command\n")

		line, err := c.in.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if _, err := c.Handle(ctx, line); err != nil {
			if terr := withoutReject(err); terr != nil {
				io.WriteString(c.out, "Teardown failed: "+terr.Error()+"\n")
			}
		}
	}
}

// Handle parses one line and applies it. It returns the parsed value and
// ErrStepRange if the value was rejected.
func (c *Console) Handle(ctx context.Context, line string) (int32, error) {
	v := protocol.ParseDecimal(line)

	if err := c.state.SetStep(v); err != nil {
		b := c.field(c.buf[:0], "Desired step: ", int64(v))
		b = append(b, "INVALID INPUT\n"...)
		c.write(b)

		if c.cfg.StopLogOnReject {
			if terr := c.teardown(ctx); terr != nil {
				return v, multierr.Append(err, terr)
			}
		}
		return v, err
	}

	snap := c.state.Snapshot()
	b := c.field(c.buf[:0], "Desired step: ", int64(v))
	b = c.field(b, "Position 0: ", int64(snap.Position))
	b = c.field(b, "Desired Setpoint: ", int64(snap.Setpoint))
	b = c.field(b, "Error: ", int64(snap.Error))
	b = c.field(b, "Output: ", int64(snap.Output))
	c.write(b)
	return v, nil
}

// withoutReject drops ErrStepRange from err, leaving any teardown errors
func withoutReject(err error) error {
	var rest error
	for _, e := range multierr.Errors(err) {
		if !errors.Is(e, ErrStepRange) {
			rest = multierr.Append(rest, e)
		}
	}
	return rest
}

func (c *Console) field(b []byte, label string, v int64) []byte {
	b = append(b, label...)
	b = protocol.AppendInt(b, v)
	return append(b, '\n')
}

func (c *Console) write(b []byte) {
	c.buf = b[:0]
	c.out.Write(b)
}

// teardown closes the sink through the control tick, then unmounts storage.
// It runs at most once.
func (c *Console) teardown(ctx context.Context) error {
	if c.tornDown || c.logger == nil {
		return nil
	}
	c.tornDown = true

	var err error
	if cerr := c.logger.Close(ctx); cerr != nil && !errors.Is(cerr, ErrNoSink) {
		err = multierr.Append(err, cerr)
	} else if cerr == nil {
		io.WriteString(c.out, "Log closed\n")
	}
	if c.storage != nil {
		if uerr := c.storage.Unmount(); uerr != nil {
			err = multierr.Append(err, uerr)
		} else {
			io.WriteString(c.out, "Storage unmounted\n")
		}
	}
	return err
}
