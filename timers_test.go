package main

import "testing"

const baseInterval = NANOS_PER_SECOND / TK1_CLOCK_FREQ

// =============================================================================
// Countdown timer
// =============================================================================

func TestTimer_PowerOnStopped(t *testing.T) {
	r := newTestRig(t, "tk1")
	if got := r.rd(MMIO_TIMER_STATUS); got != 1 {
		t.Fatalf("expected TIMER_STATUS ready at power on, got 0x%x", got)
	}
	if got := r.rd(MMIO_TIMER_TIMER); got != 0 {
		t.Fatalf("expected TIMER_TIMER 0 at power on, got 0x%x", got)
	}
}

func TestTimer_CountdownToZero(t *testing.T) {
	r := newTestRig(t, "tk1")

	r.wr(MMIO_TIMER_TIMER, 10)
	r.wr(MMIO_TIMER_PRESCALER, 0)
	r.wr(MMIO_TIMER_CTRL, 1)

	if got := r.rd(MMIO_TIMER_STATUS); got != 0 {
		t.Fatalf("expected TIMER_STATUS busy while running, got 0x%x", got)
	}

	r.clock.Advance(11 * baseInterval)

	if got := r.rd(MMIO_TIMER_TIMER); got != 0 {
		t.Fatalf("expected timer to reach 0, got %d", got)
	}
	if got := r.rd(MMIO_TIMER_STATUS); got != 1 {
		t.Fatalf("expected TIMER_STATUS ready after expiry, got 0x%x", got)
	}
}

func TestTimer_PartialCountdown(t *testing.T) {
	r := newTestRig(t, "tk1")

	r.wr(MMIO_TIMER_TIMER, 10)
	r.wr(MMIO_TIMER_CTRL, 1)
	r.clock.Advance(3 * baseInterval)

	if got := r.rd(MMIO_TIMER_TIMER); got != 7 {
		t.Fatalf("expected timer 7 after 3 ticks, got %d", got)
	}
	if got := r.rd(MMIO_TIMER_STATUS); got != 0 {
		t.Fatalf("expected timer still running, got status 0x%x", got)
	}
}

func TestTimer_StopRestoresInitial(t *testing.T) {
	r := newTestRig(t, "tk1")

	r.wr(MMIO_TIMER_TIMER, 10)
	r.wr(MMIO_TIMER_CTRL, 1)
	r.clock.Advance(4 * baseInterval)
	r.wr(MMIO_TIMER_CTRL, 1) // toggle: stop

	if got := r.rd(MMIO_TIMER_TIMER); got != 10 {
		t.Fatalf("expected stop to restore load value 10, got %d", got)
	}
	if got := r.rd(MMIO_TIMER_STATUS); got != 1 {
		t.Fatalf("expected TIMER_STATUS ready after stop, got 0x%x", got)
	}

	// A tick scheduled before the stop must not count down.
	r.clock.Advance(10 * baseInterval)
	if got := r.rd(MMIO_TIMER_TIMER); got != 10 {
		t.Fatalf("expected stale ticks to be no-ops, got %d", got)
	}
}

func TestTimer_WriteWhileRunningRejected(t *testing.T) {
	r := newTestRig(t, "tk1")

	r.wr(MMIO_TIMER_TIMER, 10)
	r.wr(MMIO_TIMER_CTRL, 1)
	r.wr(MMIO_TIMER_TIMER, 99)

	if !r.log.Contains("write to TIMER_TIMER while timer running") {
		t.Fatalf("expected 'write to TIMER_TIMER while timer running' in guest log")
	}
	r.wr(MMIO_TIMER_CTRL, 1) // stop
	if got := r.rd(MMIO_TIMER_TIMER); got != 10 {
		t.Fatalf("expected load value unchanged by rejected write, got %d", got)
	}
}

func TestTimer_PrescalerScalesInterval(t *testing.T) {
	r := newTestRig(t, "tk1")

	r.wr(MMIO_TIMER_PRESCALER, 3)
	if got := r.rd(MMIO_TIMER_PRESCALER); got != 3 {
		t.Fatalf("expected prescaler readback 3, got %d", got)
	}

	r.wr(MMIO_TIMER_TIMER, 2)
	r.wr(MMIO_TIMER_CTRL, 1)

	interval := int64(3) * NANOS_PER_SECOND / TK1_CLOCK_FREQ

	// One base cycle is not enough for a prescaled tick.
	r.clock.Advance(baseInterval)
	if got := r.rd(MMIO_TIMER_TIMER); got != 2 {
		t.Fatalf("expected no tick after one base cycle, got %d", got)
	}

	r.clock.Advance(2 * interval)
	if got := r.rd(MMIO_TIMER_TIMER); got != 0 {
		t.Fatalf("expected timer expired after two prescaled ticks, got %d", got)
	}
}

func TestTimer_PrescalerWriteWhileRunningRejected(t *testing.T) {
	r := newTestRig(t, "tk1")

	r.wr(MMIO_TIMER_TIMER, 5)
	r.wr(MMIO_TIMER_CTRL, 1)
	r.wr(MMIO_TIMER_PRESCALER, 7)

	if !r.log.Contains("write to TIMER_PRESCALER while timer running") {
		t.Fatalf("expected 'write to TIMER_PRESCALER while timer running' in guest log")
	}
	r.wr(MMIO_TIMER_CTRL, 1)
	if got := r.rd(MMIO_TIMER_PRESCALER); got != 0 {
		t.Fatalf("expected prescaler unchanged, got %d", got)
	}
}

func TestTimer_TimerWriteBlockedInAppMode(t *testing.T) {
	r := newTestRig(t, "tk1")
	r.enterAppMode(t)

	r.wr(MMIO_TIMER_TIMER, 42)
	if !r.log.Contains("write to TIMER_TIMER in app-mode") {
		t.Fatalf("expected 'write to TIMER_TIMER in app-mode' in guest log")
	}
	if got := r.rd(MMIO_TIMER_TIMER); got != 0 {
		t.Fatalf("expected load value unchanged, got %d", got)
	}
}

// =============================================================================
// Watchdog
// =============================================================================

func TestWatchdog_ResetsDevice(t *testing.T) {
	r := newTestRig(t, "tk1")

	// Firmware does its thing, then hands over to an app.
	r.wr(MMIO_TK1_CDI_FIRST, 0x11111111)
	r.wr(MMIO_TK1_LED, 0x7)
	if got := r.rd(MMIO_UDS_FIRST); got != 0x80808080 {
		t.Fatalf("expected UDS word before reset, got 0x%x", got)
	}
	r.wr(MMIO_WATCHDOG_TIMER_INIT, 100)
	r.enterAppMode(t)
	r.wr(MMIO_WATCHDOG_CTRL, 1<<MMIO_WATCHDOG_CTRL_START_BIT)

	r.clock.Advance(100*baseInterval + 1)

	// Back in firmware mode with derived state cleared.
	if got := r.rd(MMIO_TK1_SWITCH_APP); got != 0 {
		t.Fatalf("expected firmware mode after watchdog reset, got 0x%x", got)
	}
	if got := r.rd(MMIO_TK1_CDI_FIRST); got != 0 {
		t.Fatalf("expected CDI zeroed after watchdog reset, got 0x%x", got)
	}
	if got := r.rd(MMIO_TK1_LED); got != 0 {
		t.Fatalf("expected LED cleared after watchdog reset, got 0x%x", got)
	}
	// UDS reads are re-enabled.
	if got := r.rd(MMIO_UDS_FIRST); got != 0x80808080 {
		t.Fatalf("expected UDS readable again after watchdog reset, got 0x%x", got)
	}
}

func TestWatchdog_DisarmPreventsReset(t *testing.T) {
	r := newTestRig(t, "tk1")

	r.wr(MMIO_WATCHDOG_TIMER_INIT, 50)
	r.enterAppMode(t)
	r.wr(MMIO_WATCHDOG_CTRL, 1<<MMIO_WATCHDOG_CTRL_START_BIT)
	r.wr(MMIO_WATCHDOG_CTRL, 1<<MMIO_WATCHDOG_CTRL_STOP_BIT)

	r.clock.Advance(1000 * baseInterval)

	if got := r.rd(MMIO_TK1_SWITCH_APP); got != 0xffffffff {
		t.Fatalf("expected app mode to survive a disarmed watchdog, got 0x%x", got)
	}
}

func TestWatchdog_HitRestoresDefaults(t *testing.T) {
	r := newTestRig(t, "tk1")

	r.wr(MMIO_WATCHDOG_TIMER_INIT, 10)
	r.wr(MMIO_WATCHDOG_CTRL, 1<<MMIO_WATCHDOG_CTRL_START_BIT)
	r.clock.Advance(10*baseInterval + 1)

	if !r.log.Contains("watchdog hit") {
		t.Fatalf("expected watchdog hit in guest log, got %v", r.log.Lines())
	}

	// The reset restores the default initial value and disarms the watchdog.
	snap := r.dev.Snapshot()
	if snap.WatchdogInitial != WATCHDOG_DEFAULT_INITIAL {
		t.Fatalf("expected watchdog initial restored to default, got 0x%x", snap.WatchdogInitial)
	}
	if snap.WatchdogRunning {
		t.Fatalf("expected watchdog stopped after reset")
	}
}

func TestWatchdog_InitWritableInAppMode(t *testing.T) {
	r := newTestRig(t, "tk1")
	r.enterAppMode(t)

	n := r.log.Len()
	r.wr(MMIO_WATCHDOG_TIMER_INIT, 1234)
	if r.log.Len() != n {
		t.Fatalf("expected watchdog init write to succeed in app mode, got %v", r.log.Lines())
	}
	if got := r.dev.Snapshot().WatchdogInitial; got != 1234 {
		t.Fatalf("expected watchdog initial 1234, got %d", got)
	}
}
