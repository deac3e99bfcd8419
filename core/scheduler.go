package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// TimerIsBefore reports whether time a is before b on a wrapping
// millisecond clock.
func TimerIsBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// TimerList is a list of timers kept sorted by WakeTime.
type TimerList struct {
	head *Timer
}

// Schedule adds a timer to the list
func (l *TimerList) Schedule(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	l.insert(t)
}

// insert places t after every timer that wakes at or before it
func (l *TimerList) insert(t *Timer) {
	if l.head == nil || TimerIsBefore(t.WakeTime, l.head.WakeTime) {
		t.Next = l.head
		l.head = t
		return
	}

	current := l.head
	for current.Next != nil && !TimerIsBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Dispatch runs every timer whose WakeTime is at or before now.
// Handlers run with interrupts enabled. A handler returning SF_RESCHEDULE
// must have moved its WakeTime past now.
func (l *TimerList) Dispatch(now uint32) {
	for {
		state := disableInterrupts()
		timer := l.head
		if timer == nil || TimerIsBefore(now, timer.WakeTime) {
			restoreInterrupts(state)
			return
		}
		l.head = timer.Next
		timer.Next = nil // Clear Next pointer to avoid circular references
		restoreInterrupts(state)

		if timer.Handler(timer) == SF_RESCHEDULE {
			l.Schedule(timer)
		}
	}
}

// Clear unlinks every timer.
func (l *TimerList) Clear() {
	for t := l.head; t != nil; {
		next := t.Next
		t.Next = nil
		t = next
	}
	l.head = nil
}

// Next returns the earliest pending timer, or nil.
func (l *TimerList) Next() *Timer { return l.head }
