package main

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dcservo/config"
	"dcservo/host/mcu"
	"dcservo/host/serial"
)

var (
	configPath = flag.String("config", "", "YAML config file (default: $SERVO_CONFIG or built-in defaults)")
	device     = flag.String("device", "", "Serial device path (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config)")
)

func main() {
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Bad environment")
	}
	path := *configPath
	if path == "" {
		path = env.Config
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg.ApplyEnv(env)
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}

	target := mcu.NewMCU()
	log.Info().Str("device", cfg.Serial.Device).Int("baud", cfg.Serial.Baud).Msg("Connecting")
	err = target.ConnectWithConfig(&serial.Config{Device: cfg.Serial.Device, Baud: cfg.Serial.Baud})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	defer target.Close()

	shell := ishell.New()
	shell.Println("Servo console. Type a step in [-11, 11] or 'help'.")

	go func() {
		for line := range target.Lines() {
			shell.Println("< " + line)
		}
		if err := target.Err(); err != nil {
			log.Error().Err(err).Msg("Serial link failed")
		}
	}()

	shell.AddCmd(&ishell.Cmd{
		Name: "step",
		Help: "step <n>  set the setpoint step in counts per tick",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: step <n>")
				return
			}
			n, err := strconv.ParseInt(c.Args[0], 10, 32)
			if err != nil {
				c.Printf("bad step %q\n", c.Args[0])
				return
			}
			if err := target.SendStep(int32(n)); err != nil {
				c.Println(err.Error())
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "hold the current setpoint",
		Func: func(c *ishell.Context) {
			if err := target.SendStep(0); err != nil {
				c.Println(err.Error())
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "raw",
		Help: "raw <text>  send text to the target unchecked",
		Func: func(c *ishell.Context) {
			if err := target.SendLine(strings.Join(c.Args, " ")); err != nil {
				c.Println(err.Error())
			}
		},
	})
	shell.NotFound(func(c *ishell.Context) {
		if err := target.SendLine(strings.Join(c.RawArgs, " ")); err != nil {
			c.Println(err.Error())
		}
	})

	shell.Run()
	shell.Close()
}
