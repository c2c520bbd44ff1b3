//go:build rp2040

package main

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/sdcard"

	"dcservo/core"
)

// sdBusConfig describes the SPI bus the SD card sits on
type sdBusConfig struct {
	spi *machine.SPI
	sck machine.Pin
	sdo machine.Pin // Master Out Slave In
	sdi machine.Pin // Master In Slave Out
	cs  machine.Pin
}

var sdBus = sdBusConfig{
	spi: machine.SPI1,
	sck: machine.GPIO10,
	sdo: machine.GPIO11,
	sdi: machine.GPIO12,
	cs:  machine.GPIO13,
}

const (
	sdBlockSize     = 512
	sdLogStartBlock = 2048 // First 1 MiB left alone for a partition table
)

var (
	errNotMounted = errors.New("sd: not mounted")
	errLogClosed  = errors.New("sd: log closed")
)

// SDStorage implements core.Storage as a raw block log on an SD card. The
// log is a byte stream starting at sdLogStartBlock; the file name is ignored.
type SDStorage struct {
	dev     sdcard.Device
	mounted bool
	log     *sdLog
}

// Mount brings up the SPI bus and initialises the card
func (s *SDStorage) Mount() error {
	err := sdBus.spi.Configure(machine.SPIConfig{
		Frequency: 4000000,
		SCK:       sdBus.sck,
		SDO:       sdBus.sdo,
		SDI:       sdBus.sdi,
		Mode:      0,
	})
	if err != nil {
		return err
	}

	s.dev = sdcard.New(sdBus.spi, sdBus.sck, sdBus.sdo, sdBus.sdi, sdBus.cs)
	if err := s.dev.Configure(); err != nil {
		return err
	}
	s.mounted = true
	return nil
}

// Create starts a new log at the beginning of the log area
func (s *SDStorage) Create(name string) (core.LogSink, error) {
	if !s.mounted {
		return nil, errNotMounted
	}
	s.log = &sdLog{dev: &s.dev, block: sdLogStartBlock}
	return s.log, nil
}

// Unmount flushes and closes an open log and releases the card
func (s *SDStorage) Unmount() error {
	if !s.mounted {
		return errNotMounted
	}
	s.mounted = false
	if s.log != nil && !s.log.closed {
		return s.log.Close()
	}
	return nil
}

// sdLog buffers one block and rewrites it on every Sync until it fills
type sdLog struct {
	dev    *sdcard.Device
	block  int64
	buf    [sdBlockSize]byte
	fill   int
	dirty  bool
	closed bool
}

func (l *sdLog) Write(p []byte) (int, error) {
	if l.closed {
		return 0, errLogClosed
	}
	n := 0
	for len(p) > 0 {
		c := copy(l.buf[l.fill:], p)
		l.fill += c
		l.dirty = true
		n += c
		p = p[c:]

		if l.fill == sdBlockSize {
			if err := l.flush(); err != nil {
				return n, err
			}
			l.block++
			l.fill = 0
			l.buf = [sdBlockSize]byte{}
		}
	}
	return n, nil
}

func (l *sdLog) Sync() error {
	if l.closed {
		return errLogClosed
	}
	return l.flush()
}

func (l *sdLog) Close() error {
	if l.closed {
		return nil
	}
	err := l.flush()
	l.closed = true
	return err
}

func (l *sdLog) flush() error {
	if !l.dirty {
		return nil
	}
	if _, err := l.dev.WriteAt(l.buf[:], l.block*sdBlockSize); err != nil {
		return err
	}
	l.dirty = false
	return nil
}
