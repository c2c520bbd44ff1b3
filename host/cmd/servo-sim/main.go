package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dcservo/config"
	"dcservo/core"
	"dcservo/protocol"
	"dcservo/sim"
	"dcservo/storage"
)

var (
	configPath = flag.String("config", "", "YAML config file (default: $SERVO_CONFIG or built-in defaults)")
	logDir     = flag.String("log-dir", "", "Telemetry directory (overrides config)")
	duration   = flag.Duration("duration", 0, "Stop after this long (0 = until interrupted)")
	debug      = flag.Bool("debug", false, "Enable debug output")
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
	if *logDir != "" {
		cfg.Log.Dir = *logDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug || env.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		core.SetDebugEnabled(true)
	}
	core.SetDebugWriter(func(s string) { log.Debug().Msg(s) })
	core.InitAsyncDebug()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	dir := storage.NewDir(cfg.Log.Dir)
	var sink core.LogSink
	if err := dir.Mount(); err != nil {
		log.Warn().Err(err).Msg("Mount failed, telemetry disabled")
	} else if sink, err = dir.Create(cfg.Log.File); err != nil {
		log.Warn().Err(err).Msg("Open failed, telemetry disabled")
		sink = nil
	} else {
		log.Info().Str("dir", cfg.Log.Dir).Str("file", cfg.Log.File).Msg("Telemetry open")
	}

	plant := sim.NewPlant(cfg.Plant)
	logger := core.NewLogger(sink, cfg.Log.Every)
	servo := core.NewServo(cfg.Controller(), plant, plant, logger)

	console := core.NewConsole(servo.State, protocol.NewLineReader(bufio.NewReader(os.Stdin), nil), os.Stdout, cfg.ConsoleOptions()).
		WithTeardown(logger, dir)
	go func() {
		if err := console.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			log.Error().Err(err).Msg("Console stopped")
			return
		}
		log.Debug().Msg("Console input closed")
	}()

	log.Info().
		Uint32("rate_hz", cfg.Control.RateHz).
		Float64("kp", cfg.Control.Kp).
		Float64("up_limit", cfg.Control.UpLimit).
		Bool("symmetric_clamp", cfg.Control.SymmetricClamp).
		Msg("Servo simulation running")

	run(ctx, servo, plant, cfg.Period())

	if err := servo.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to disable motor")
	}
	if err := dir.Unmount(); err != nil && !errors.Is(err, storage.ErrNotMounted) {
		log.Warn().Err(err).Msg("Unmount failed")
	}

	core.SetDebugWriter(func(s string) { log.Info().Msg(s) })
	servo.Events.Dump()

	snap := servo.State.Snapshot()
	st := logger.Stats()
	log.Info().
		Uint64("ticks", snap.Ticks).
		Uint32("overruns", snap.Overruns).
		Uint32("records", st.Records).
		Uint32("write_errors", st.WriteErrors).
		Uint32("sync_errors", st.SyncErrors).
		Msg("Servo simulation stopped")
}

// run dispatches the control tick in lockstep with wall time and advances
// the plant by one period per tick. When ctx ends it keeps ticking until the
// telemetry sink has been closed.
func run(ctx context.Context, servo *core.Servo, plant *sim.Plant, period uint32) {
	sched := core.NewScheduler()
	core.SetTime(0)
	servo.Start(sched, period)

	step := time.Duration(core.TimerToUS(period)) * time.Microsecond
	start := time.Now()
	simTime := uint32(0)
	lastStatus := time.Now()
	done := ctx.Done()
	closeDeadline := time.Time{}

	for {
		select {
		case <-done:
			servo.Logger().RequestClose()
			closeDeadline = time.Now().Add(time.Second)
			done = nil
		case <-servo.Logger().Closed():
			if done == nil {
				return
			}
		default:
		}
		if !closeDeadline.IsZero() && time.Now().After(closeDeadline) {
			log.Warn().Msg("Telemetry close timed out")
			return
		}

		now := core.TimerFromDuration(time.Since(start))
		for core.TimerIsBefore(simTime, now) {
			simTime += period
			core.SetTime(simTime)
			core.ProcessTimers(sched)
			plant.Advance(step)
		}

		if time.Since(lastStatus) >= time.Second {
			lastStatus = time.Now()
			snap := servo.State.Snapshot()
			log.Info().
				Int32("step", snap.Step).
				Uint32("setpoint", snap.Setpoint).
				Uint32("position", snap.Position).
				Int64("velocity", snap.Velocity).
				Int32("error", snap.Error).
				Int8("output", snap.Output).
				Msg("Status")
		}

		time.Sleep(time.Millisecond)
	}
}
