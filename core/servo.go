package core

// Servo runs the position control pipeline once per tick:
// planner, encoder sample, controller, actuator, telemetry, then publish.
type Servo struct {
	State  *State
	Events EventRing

	enc     EncoderDriver
	planner *Planner
	ctrl    *Controller
	act     *Actuator
	logger  *Logger

	lastStep int32

	sched  *Scheduler
	timer  Timer
	period uint32
}

// NewServo wires the pipeline. A nil logger disables telemetry.
func NewServo(cfg ControllerConfig, enc EncoderDriver, motor MotorDriver, logger *Logger) *Servo {
	if logger == nil {
		logger = NewLogger(nil, 0)
	}
	s := &Servo{
		State:   NewState(),
		enc:     enc,
		planner: NewPlanner(PositionMidpoint),
		ctrl:    NewController(cfg),
		act:     NewActuator(motor),
		logger:  logger,
	}
	logger.events = &s.Events
	return s
}

// Logger returns the telemetry logger
func (s *Servo) Logger() *Logger {
	return s.logger
}

// Actuator returns the motor actuator
func (s *Servo) Actuator() *Actuator {
	return s.act
}

// Tick runs one control period. It does not block or allocate.
func (s *Servo) Tick() {
	step := s.State.Step()
	if step != s.lastStep {
		s.Events.Record(EvtStepObserved, GetTime(), uint32(step), uint32(s.lastStep))
		s.lastStep = step
	}
	setpoint := s.planner.Advance(step)

	sample := SampleEncoder(s.enc)
	u := s.ctrl.Update(setpoint, sample.Position)

	if err := s.act.Drive(u); err != nil {
		s.Events.Record(EvtActuatorFault, GetTime(), uint32(int32(u)), 0)
		DebugAsync("[SERVO] actuator fault")
	}

	s.logger.Tick(sample.Position)
	s.State.publish(setpoint, sample, s.ctrl.LastError(), u)
}

// Start schedules the control tick every period timer ticks, the first one
// period after the current system time.
func (s *Servo) Start(sched *Scheduler, period uint32) {
	if period == 0 {
		period = 1
	}
	s.sched = sched
	s.period = period
	s.timer.WakeTime = GetTime() + period
	s.timer.Handler = s.handleTimer
	sched.Schedule(&s.timer)
}

// Stop removes the control tick from the scheduler and disables the motor.
// It must not run concurrently with the scheduler's Dispatch.
func (s *Servo) Stop() error {
	if s.sched != nil {
		s.sched.Remove(&s.timer)
		s.sched = nil
	}
	return s.act.Drive(0)
}

func (s *Servo) handleTimer(t *Timer) uint8 {
	s.Tick()

	now := s.sched.Now()
	next := t.WakeTime + s.period
	if !TimerIsBefore(now, next) {
		// Skip the periods already missed and keep the original phase
		missed := (now - t.WakeTime) / s.period
		s.State.addOverruns(missed)
		s.Events.Record(EvtOverrun, now, missed, t.WakeTime)
		next = t.WakeTime + (missed+1)*s.period
	}
	t.WakeTime = next
	return SF_RESCHEDULE
}
