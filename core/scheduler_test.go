package core

import "testing"

func TestTimerListOrder(t *testing.T) {
	var list TimerList
	var fired []uint32

	handler := func(tm *Timer) uint8 {
		fired = append(fired, tm.WakeTime)
		return SF_DONE
	}

	timers := []*Timer{
		{WakeTime: 300, Handler: handler},
		{WakeTime: 100, Handler: handler},
		{WakeTime: 200, Handler: handler},
	}
	for _, tm := range timers {
		list.Schedule(tm)
	}

	list.Dispatch(250)
	if len(fired) != 2 || fired[0] != 100 || fired[1] != 200 {
		t.Errorf("Expected [100 200] at 250, got %v", fired)
	}

	list.Dispatch(300)
	if len(fired) != 3 || fired[2] != 300 {
		t.Errorf("Expected timer 300 to fire, got %v", fired)
	}
	if list.Next() != nil {
		t.Error("Expected empty list")
	}
}

func TestTimerListReschedule(t *testing.T) {
	var list TimerList
	count := 0

	tm := &Timer{WakeTime: 10}
	tm.Handler = func(tm *Timer) uint8 {
		count++
		tm.WakeTime += 10
		return SF_RESCHEDULE
	}
	list.Schedule(tm)

	list.Dispatch(35)
	if count != 3 {
		t.Errorf("Expected 3 runs by 35, got %d", count)
	}
	if list.Next() != tm || tm.WakeTime != 40 {
		t.Errorf("Expected timer rescheduled at 40, got %d", tm.WakeTime)
	}
}

func TestTimerListWrap(t *testing.T) {
	var list TimerList
	var fired []uint32
	handler := func(tm *Timer) uint8 {
		fired = append(fired, tm.WakeTime)
		return SF_DONE
	}

	// 0x10 is after 0xFFFFFFF0 on a wrapping clock
	list.Schedule(&Timer{WakeTime: 0x10, Handler: handler})
	list.Schedule(&Timer{WakeTime: 0xFFFFFFF0, Handler: handler})

	list.Dispatch(0xFFFFFFF8)
	if len(fired) != 1 || fired[0] != 0xFFFFFFF0 {
		t.Errorf("Expected only the pre-wrap timer, got %v", fired)
	}
	list.Dispatch(0x20)
	if len(fired) != 2 {
		t.Errorf("Expected the post-wrap timer to fire, got %v", fired)
	}
}

func TestTimerListClear(t *testing.T) {
	var list TimerList
	a := &Timer{WakeTime: 1, Handler: func(*Timer) uint8 { return SF_DONE }}
	b := &Timer{WakeTime: 2, Handler: func(*Timer) uint8 { return SF_DONE }}
	list.Schedule(a)
	list.Schedule(b)

	list.Clear()
	if list.Next() != nil || a.Next != nil {
		t.Error("Clear should unlink every timer")
	}
}
