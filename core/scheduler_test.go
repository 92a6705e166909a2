package core

import "testing"

func TestTimerDispatchOrder(t *testing.T) {
	TimerInit()
	defer TimerInit()

	var order []uint32
	handler := func(tm *Timer) uint8 {
		order = append(order, tm.WakeTime)
		return SF_DONE
	}

	timers := []*Timer{
		{WakeTime: 300, Handler: handler},
		{WakeTime: 100, Handler: handler},
		{WakeTime: 200, Handler: handler},
	}
	for _, tm := range timers {
		ScheduleTimer(tm)
	}
	if PendingTimers() != 3 {
		t.Fatalf("Expected 3 timers, got %d", PendingTimers())
	}

	SetTime(250)
	ProcessTimers()
	if len(order) != 2 || order[0] != 100 || order[1] != 200 {
		t.Errorf("Expected [100 200], got %v", order)
	}

	SetTime(300)
	ProcessTimers()
	if len(order) != 3 || PendingTimers() != 0 {
		t.Errorf("Expected all timers done, order %v", order)
	}
}

func TestTimerReschedule(t *testing.T) {
	TimerInit()
	defer TimerInit()

	runs := 0
	tm := &Timer{WakeTime: 10, Handler: func(tm *Timer) uint8 {
		runs++
		tm.WakeTime += 10
		return SF_RESCHEDULE
	}}
	ScheduleTimer(tm)

	for now := uint32(0); now <= 50; now += 5 {
		SetTime(now)
		ProcessTimers()
	}
	if runs != 5 {
		t.Errorf("Expected 5 runs, got %d", runs)
	}
}

func TestTimerOrderAcrossWrap(t *testing.T) {
	TimerInit()
	defer TimerInit()

	var order []uint32
	handler := func(tm *Timer) uint8 {
		order = append(order, tm.WakeTime)
		return SF_DONE
	}

	SetTime(0xFFFFFF00)
	ScheduleTimer(&Timer{WakeTime: 0x10, Handler: handler})       // after the wrap
	ScheduleTimer(&Timer{WakeTime: 0xFFFFFF80, Handler: handler}) // before it

	SetTime(0x20)
	ProcessTimers()
	if len(order) != 2 || order[0] != 0xFFFFFF80 || order[1] != 0x10 {
		t.Errorf("Expected pre-wrap timer first, got %#x", order)
	}
}

func TestCancelTimer(t *testing.T) {
	TimerInit()
	defer TimerInit()

	fired := false
	a := &Timer{WakeTime: 10, Handler: func(*Timer) uint8 { return SF_DONE }}
	b := &Timer{WakeTime: 20, Handler: func(*Timer) uint8 { fired = true; return SF_DONE }}
	ScheduleTimer(a)
	ScheduleTimer(b)

	CancelTimer(b)
	CancelTimer(b) // not pending: no-op

	SetTime(100)
	ProcessTimers()
	if fired {
		t.Error("Cancelled timer fired")
	}
}
