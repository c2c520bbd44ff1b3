package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

// Handler results
const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler holds a list of timers sorted by wake time. Timers due at the
// same time run in the order they were scheduled.
type Scheduler struct {
	timerList *Timer
	now       uint32
}

// NewScheduler creates an empty Scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule adds a timer to the schedule
func (s *Scheduler) Schedule(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	t.Next = nil
	s.insertTimer(t)
}

// Remove takes a timer off the schedule, reporting whether it was pending
func (s *Scheduler) Remove(t *Timer) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	prev := &s.timerList
	for cur := s.timerList; cur != nil; cur = cur.Next {
		if cur == t {
			*prev = cur.Next
			cur.Next = nil
			return true
		}
		prev = &cur.Next
	}
	return false
}

// Now returns the time passed to the dispatch in progress (or the last one)
func (s *Scheduler) Now() uint32 {
	return s.now
}

// NextWake returns the wake time of the earliest pending timer
func (s *Scheduler) NextWake() (uint32, bool) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if s.timerList == nil {
		return 0, false
	}
	return s.timerList.WakeTime, true
}

// insertTimer inserts a timer in sorted order by WakeTime
func (s *Scheduler) insertTimer(t *Timer) {
	if s.timerList == nil || TimerIsBefore(t.WakeTime, s.timerList.WakeTime) {
		t.Next = s.timerList
		s.timerList = t
		return
	}

	current := s.timerList
	for current.Next != nil && !TimerIsBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Dispatch runs every timer whose wake time is not after now.
// A handler returning SF_RESCHEDULE must have moved WakeTime forward.
func (s *Scheduler) Dispatch(now uint32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s.now = now
	for s.timerList != nil && !TimerIsBefore(now, s.timerList.WakeTime) {
		timer := s.timerList
		s.timerList = timer.Next
		timer.Next = nil

		if timer.Handler(timer) == SF_RESCHEDULE {
			s.insertTimer(timer)
		}
	}
}

// ProcessTimers dispatches due timers against the current system time
func ProcessTimers(s *Scheduler) {
	s.Dispatch(GetTime())
}
