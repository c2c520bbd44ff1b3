package protocol

import "io"

// LineReader assembles command lines from a byte source.
// A line ends at CR or LF (a CR LF pair ends one line), backspace and
// DEL erase the previous character, and characters past MaxLine are dropped
// until the terminator arrives.
type LineReader struct {
	src    io.ByteReader
	echo   io.Writer // Optional terminal echo
	buf    [MaxLine]byte
	n      int
	lastCR bool
}

// NewLineReader creates a LineReader over src. If echo is not nil, accepted
// characters and erase sequences are written back to it.
func NewLineReader(src io.ByteReader, echo io.Writer) *LineReader {
	return &LineReader{src: src, echo: echo}
}

// ReadLine blocks until a full line is available and returns it without the
// terminator. A partial line pending when the source fails is returned first;
// the error is reported on the next call.
func (r *LineReader) ReadLine() (string, error) {
	r.n = 0
	for {
		c, err := r.src.ReadByte()
		if err != nil {
			if r.n > 0 {
				return string(r.buf[:r.n]), nil
			}
			return "", err
		}

		// LF straight after CR belongs to the line already returned
		if c == '\n' && r.lastCR {
			r.lastCR = false
			continue
		}
		r.lastCR = false

		switch c {
		case '\r', '\n':
			r.lastCR = c == '\r'
			r.write("\n")
			return string(r.buf[:r.n]), nil
		case charBackspace, charDelete:
			if r.n > 0 {
				r.n--
				r.write("\b \b")
			}
			continue
		}

		if r.n < len(r.buf) {
			r.buf[r.n] = c
			r.n++
			if r.echo != nil {
				r.echo.Write(r.buf[r.n-1 : r.n])
			}
		}
	}
}

func (r *LineReader) write(s string) {
	if r.echo != nil {
		io.WriteString(r.echo, s)
	}
}
