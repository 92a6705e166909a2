package core

import "testing"

func TestHeartbeatCompareCarry(t *testing.T) {
	g := newMockGPIO()
	h := NewHeartbeat(g, 20, 1000)
	if err := h.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if h.Lit() || !g.levels[20] {
		t.Fatal("LED must start off (high)")
	}

	h.Arm(0xFFFFFC00)
	if h.Compare() != 0xFFFFFFE8 {
		t.Fatalf("Compare = %#x, expected 0xFFFFFFE8", h.Compare())
	}

	// The next target crosses into the high half
	h.Fire()
	if h.Compare() != 0x1000003D0 {
		t.Errorf("Compare = %#x, expected 0x1000003D0", h.Compare())
	}
	if h.compareHi != 1 || h.compareLo != 0x3D0 {
		t.Errorf("Halves = %#x/%#x", h.compareHi, h.compareLo)
	}
	if !h.Lit() || g.levels[20] {
		t.Error("First firing should light the LED (drive low)")
	}

	h.Fire()
	if h.Lit() || !g.levels[20] {
		t.Error("Second firing should turn the LED off")
	}
	if h.Fired() != 2 || g.writes[20] != 3 {
		t.Errorf("Fired %d times, %d pin writes", h.Fired(), g.writes[20])
	}
}

func TestHeartbeatDefaultInterval(t *testing.T) {
	h := NewHeartbeat(newMockGPIO(), 20, 0)
	h.Arm(0)
	if h.Compare() != HeartbeatInterval {
		t.Errorf("Expected one second, got %d", h.Compare())
	}
}

func TestHeartbeatScheduled(t *testing.T) {
	TimerInit()
	defer TimerInit()

	g := newMockGPIO()
	h := NewHeartbeat(g, 20, 1000)
	h.Configure()
	h.Attach()

	SetTime(999)
	ProcessTimers()
	if h.Fired() != 0 {
		t.Fatal("Fired before its compare time")
	}

	SetTime(1000)
	ProcessTimers()
	if h.Fired() != 1 || !h.Lit() {
		t.Fatalf("Expected one firing with LED lit, got %d", h.Fired())
	}
	if PendingTimers() != 1 || h.timer.WakeTime != 2000 {
		t.Errorf("Heartbeat should reschedule at 2000, wake %d", h.timer.WakeTime)
	}

	h.Detach()
	if PendingTimers() != 0 {
		t.Errorf("Detach left %d timers", PendingTimers())
	}
}

func TestHeartbeatAcrossCounterWrap(t *testing.T) {
	TimerInit()
	defer TimerInit()

	h := NewHeartbeat(newMockGPIO(), 20, 1000)
	h.Configure()

	SetTime(0xFFFFFF00)
	h.Attach()
	// 0xFFFFFF00 + 1000 carries into the high half
	if h.compareHi != 1 || h.compareLo != 744 || h.timer.WakeTime != 744 {
		t.Fatalf("Unexpected compare %#x, wake %d", h.Compare(), h.timer.WakeTime)
	}

	ProcessTimers()
	if h.Fired() != 0 {
		t.Fatal("Wrapped wake time must not fire early")
	}

	SetTime(744)
	if GetUptime() != 1<<32|744 {
		t.Errorf("Uptime = %#x", GetUptime())
	}
	ProcessTimers()
	if h.Fired() != 1 {
		t.Errorf("Expected a firing after the wrap, got %d", h.Fired())
	}
}
