// led_backend_headless.go - No-op LED backend for monitor-only and test runs

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import "sync"

// HeadlessLEDOutput satisfies LEDOutput without opening a window. The
// snapshot source is kept so tests can ask what the panel would be
// showing.
type HeadlessLEDOutput struct {
	mu      sync.Mutex
	started bool
	source  func() DeviceSnapshot
}

func NewHeadlessLEDOutput(source func() DeviceSnapshot) *HeadlessLEDOutput {
	return &HeadlessLEDOutput{source: source}
}

func (h *HeadlessLEDOutput) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = true
	return nil
}

func (h *HeadlessLEDOutput) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = false
	return nil
}

func (h *HeadlessLEDOutput) Close() error { return h.Stop() }

func (h *HeadlessLEDOutput) IsStarted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// CurrentFrame returns the snapshot the panel would render.
func (h *HeadlessLEDOutput) CurrentFrame() DeviceSnapshot {
	return h.source()
}
