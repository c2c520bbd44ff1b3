//go:build rp2040

package main

import (
	"context"
	"machine"
	"time"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"dcservo/core"
	"dcservo/protocol"
)

const (
	controlRateHz = 10000
	pwmCarrierHz  = 20000
	consoleBaud   = 115200
	logFile       = "log3.txt"

	motorPWMPin = machine.GPIO16
	motorDirPin = machine.GPIO17
	encoderPinA = machine.GPIO14 // B on GPIO15
)

var (
	consoleUART = machine.UART0

	// Debug counters
	loopPanics uint32
)

func main() {
	// Disable the watchdog left over from a previous boot
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	consoleUART.Configure(machine.UARTConfig{
		BaudRate: consoleBaud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	writeString("\nHi!\n")

	core.SetDebugWriter(func(s string) {
		writeString(s + "\n")
	})
	core.InitAsyncDebug()
	UpdateSystemTime()

	motor, err := NewMotorDriver(motorPWMPin, motorDirPin, pwmCarrierHz)
	if err != nil {
		halt("Motor init failed: " + err.Error())
	}
	enc, err := NewPIOEncoder(rp2pio.PIO0, 0, encoderPinA, core.TimerFromUS(10000))
	if err != nil {
		halt("Encoder init failed: " + err.Error())
	}

	storage := &SDStorage{}
	var sink core.LogSink
	if err := storage.Mount(); err != nil {
		writeString("f_mount error: " + err.Error() + "\n")
	} else {
		writeString("f_mount success!\n")
		sink, err = storage.Create(logFile)
		if err != nil {
			writeString("f_open error: " + err.Error() + "\n")
		} else {
			writeString("f_open success!\n")
		}
	}
	logger := core.NewLogger(sink, core.DefaultLogEvery)

	servo := core.NewServo(core.DefaultControllerConfig(), enc, motor, logger)
	sched := core.NewScheduler()
	UpdateSystemTime()
	servo.Start(sched, core.PeriodFromHz(controlRateHz))

	lines := protocol.NewLineReader(uartReader{uart: consoleUART}, consoleUART)
	console := core.NewConsole(servo.State, lines, consoleUART, core.ConsoleConfig{StopLogOnReject: true})
	console.WithTeardown(logger, storage)
	go consoleLoop(console)

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopPanics++
					servo.Actuator().Drive(0)
				}
			}()

			UpdateSystemTime()
			core.ProcessTimers(sched)
		}()

		// Yield to the console goroutine
		time.Sleep(10 * time.Microsecond)
	}
}

// consoleLoop runs the operator console, restarting it after a panic
func consoleLoop(c *core.Console) {
	defer func() {
		if r := recover(); r != nil {
			loopPanics++
			time.Sleep(100 * time.Millisecond)
			go consoleLoop(c)
		}
	}()

	if err := c.Run(context.Background()); err != nil {
		writeString("Console stopped: " + err.Error() + "\n")
	}
}

// halt reports a fatal init error and parks the CPU with the motor off
func halt(msg string) {
	writeString(msg + "\n")
	for {
		time.Sleep(1 * time.Second)
	}
}
