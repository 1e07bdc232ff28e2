// timers.go - Countdown timer and watchdog for the TK1 board

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

// setPrescaler stores the prescaler and recomputes the tick interval.
// Prescaler 0 means one tick per 18 MHz clock cycle. Called under the
// device lock from the register table.
func (d *TK1Device) setPrescaler(val uint32) {
	d.state.timerPrescaler = val
	if val == 0 {
		d.state.timerInterval = NANOS_PER_SECOND / TK1_CLOCK_FREQ
	} else {
		d.state.timerInterval = int64(val) * NANOS_PER_SECOND / TK1_CLOCK_FREQ
	}
}

// timerCtrl toggles the countdown timer. Stopping restores the load
// value; starting schedules the first tick one interval out. Called
// under the device lock from the register table.
func (d *TK1Device) timerCtrl() {
	if d.state.timerRunning {
		d.state.timerRunning = false
		d.state.timer = d.state.timerInitial
	} else {
		d.state.timerRunning = true
		d.clock.Schedule(d.timerTick, d.clock.Now()+d.state.timerInterval)
	}
}

// timerTick is the countdown timer's clock callback. A tick scheduled
// before a stopping TIMER_CTRL write may still fire; the running check
// makes it a no-op.
func (d *TK1Device) timerTick() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.timerRunning {
		// Timer was turned off. Do not schedule any more ticks.
		return
	}
	d.state.timer--
	if d.state.timer == 0 {
		// Timer expired.
		d.state.timerRunning = false
	} else {
		d.clock.Schedule(d.timerTick, d.clock.Now()+d.state.timerInterval)
	}
}

// watchdogCtrl arms or disarms the watchdog. Arming schedules a single
// expiry watchdog_initial base cycles out. Called under the device lock
// from the register table.
func (d *TK1Device) watchdogCtrl(val uint32) {
	if val&(1<<MMIO_WATCHDOG_CTRL_START_BIT) != 0 {
		d.state.watchdogRunning = true
		deadline := d.clock.Now() + int64(d.state.watchdogInitial)*(NANOS_PER_SECOND/TK1_CLOCK_FREQ)
		d.clock.Schedule(d.watchdogTick, deadline)
	} else if val&(1<<MMIO_WATCHDOG_CTRL_STOP_BIT) != 0 {
		d.state.watchdogRunning = false
	}
}

// watchdogTick fires when an armed watchdog expires: the device resets
// back to firmware mode and the host is asked, best effort, to reset
// the machine. A disarmed watchdog's stale callback is a no-op.
func (d *TK1Device) watchdogTick() {
	d.mu.Lock()

	if !d.state.watchdogRunning {
		d.mu.Unlock()
		return
	}

	d.log.Logf("tk1_watchdog: watchdog hit, resetting device")
	d.state.watchdogReset()

	reset := d.requestMachineReset
	d.mu.Unlock()

	if reset != nil {
		reset()
	}
}
