// virtual_clock.go - Virtual-time clock behind the timer subsystem

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"sync"
	"time"
)

// Clock is the narrow scheduling surface the device consumes: a
// monotonic nanosecond counter and one-shot deadline callbacks.
type Clock interface {
	Now() int64
	Schedule(fn func(), deadline int64) ClockTimer
}

// ClockTimer cancels a scheduled callback. Stopping an already-fired
// timer is a no-op.
type ClockTimer interface {
	Stop()
}

// VirtualClock is a manually advanced clock. Time only moves inside
// Advance, which runs due callbacks in deadline order with the clock
// reading exactly each callback's deadline — so a callback that
// reschedules itself keeps perfect cadence. This is the clock the
// monitor and the tests drive.
type VirtualClock struct {
	mu     sync.Mutex
	now    int64
	seq    uint64
	timers []*virtualTimer
}

type virtualTimer struct {
	c        *VirtualClock
	deadline int64
	seq      uint64 // insertion order, breaks deadline ties
	fn       func()
	stopped  bool
}

func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

func (c *VirtualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) Schedule(fn func(), deadline int64) ClockTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &virtualTimer{c: c, deadline: deadline, seq: c.seq, fn: fn}
	c.seq++
	c.timers = append(c.timers, t)
	return t
}

func (t *virtualTimer) Stop() {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.stopped = true
}

// Advance moves virtual time forward by delta nanoseconds, firing every
// callback whose deadline falls inside the window. Callbacks run
// without the clock lock held, so they may schedule follow-up timers;
// those fire too if they land inside the same window.
func (c *VirtualClock) Advance(delta int64) {
	c.mu.Lock()
	target := c.now + delta

	// Drop cancelled timers so the slice doesn't grow without bound.
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	c.timers = live

	for {
		idx := -1
		for i, t := range c.timers {
			if t.stopped || t.deadline > target {
				continue
			}
			if idx < 0 || t.deadline < c.timers[idx].deadline ||
				(t.deadline == c.timers[idx].deadline && t.seq < c.timers[idx].seq) {
				idx = i
			}
		}
		if idx < 0 {
			break
		}

		t := c.timers[idx]
		c.timers = append(c.timers[:idx], c.timers[idx+1:]...)
		if t.deadline > c.now {
			c.now = t.deadline
		}
		c.mu.Unlock()
		t.fn()
		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

// WallClock schedules against the host's monotonic clock, for
// free-running use with the GUI frontend.
type WallClock struct {
	origin time.Time
}

func NewWallClock() *WallClock {
	return &WallClock{origin: time.Now()}
}

func (c *WallClock) Now() int64 {
	return time.Since(c.origin).Nanoseconds()
}

func (c *WallClock) Schedule(fn func(), deadline int64) ClockTimer {
	delay := time.Duration(deadline - c.Now())
	if delay < 0 {
		delay = 0
	}
	return &wallTimer{t: time.AfterFunc(delay, fn)}
}

type wallTimer struct {
	t *time.Timer
}

func (w *wallTimer) Stop() {
	w.t.Stop()
}
