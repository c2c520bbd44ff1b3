//go:build rp2040

package main

import (
	"machine"
	"time"
)

// uartReader adapts a UART to io.ByteReader. ReadByte blocks, yielding to
// other goroutines while the receive buffer is empty.
type uartReader struct {
	uart *machine.UART
}

func (r uartReader) ReadByte() (byte, error) {
	for {
		if r.uart.Buffered() > 0 {
			b, err := r.uart.ReadByte()
			if err == nil {
				return b, nil
			}
		}
		time.Sleep(1 * time.Millisecond)
	}
}

// writeString sends s on the console UART
func writeString(s string) {
	consoleUART.Write([]byte(s))
}
