// chardev.go - Character-device layer: interface, registry, null and pipe backends

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Character-device event kinds. The FIFO bridge ignores them all, and
// none of the backends here report them.
const (
	CHR_EVENT_OPENED = iota
	CHR_EVENT_CLOSED
)

// CharDevHandlers is the receive-side contract a device consumer
// registers: capacity query, delivery, events, and backend swap.
type CharDevHandlers struct {
	CanReceive    func() int
	Receive       func([]byte)
	Event         func(kind int)
	BackendChange func() int
}

// CharDevice is the narrow character-device surface the emulator
// consumes. Write is the guest-to-host path and must not block.
// AcceptInput tells the backend the consumer drained a byte and may
// take more.
type CharDevice interface {
	Write(p []byte) (int, error)
	SetHandlers(h CharDevHandlers)
	AcceptInput()
	Close() error
}

// OpenCharDevice resolves a channel name to a backend:
//
//	stdio           raw-mode terminal on the host's stdin/stdout
//	pipe            in-memory loopback (monitor and tests)
//	null            discard everything
//	serial:DEV[@BAUD]  a real serial port, default 62500 baud
func OpenCharDevice(name string) (CharDevice, error) {
	switch {
	case name == "":
		return nil, fmt.Errorf("fifo: a valid character device is required")
	case name == "stdio":
		return NewStdioCharDevice()
	case name == "pipe":
		return NewPipeCharDevice(), nil
	case name == "null":
		return &NullCharDevice{}, nil
	case strings.HasPrefix(name, "serial:"):
		spec := strings.TrimPrefix(name, "serial:")
		dev, baud := spec, 62500
		if i := strings.LastIndexByte(spec, '@'); i >= 0 {
			dev = spec[:i]
			b, err := strconv.Atoi(spec[i+1:])
			if err != nil {
				return nil, fmt.Errorf("fifo: bad baud rate in %q", name)
			}
			baud = b
		}
		return NewSerialCharDevice(dev, baud)
	}
	return nil, fmt.Errorf("device '%s' not found", name)
}

// NullCharDevice discards guest output and never delivers input.
type NullCharDevice struct{}

func (n *NullCharDevice) Write(p []byte) (int, error)   { return len(p), nil }
func (n *NullCharDevice) SetHandlers(h CharDevHandlers) {}
func (n *NullCharDevice) AcceptInput()                  {}
func (n *NullCharDevice) Close() error                  { return nil }

// PipeCharDevice is an in-memory backend. The host side queues bytes
// with HostWrite; delivery respects the consumer's CanReceive and
// resumes on AcceptInput. Guest transmit bytes accumulate until
// HostRead drains them.
type PipeCharDevice struct {
	mu       sync.Mutex
	handlers CharDevHandlers
	pending  []byte // host-to-guest, waiting for FIFO capacity
	txBuf    []byte // guest-to-host
}

func NewPipeCharDevice() *PipeCharDevice {
	return &PipeCharDevice{}
}

func (p *PipeCharDevice) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txBuf = append(p.txBuf, b...)
	return len(b), nil
}

func (p *PipeCharDevice) SetHandlers(h CharDevHandlers) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = h
}

func (p *PipeCharDevice) AcceptInput() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deliverLocked()
}

func (p *PipeCharDevice) Close() error { return nil }

// HostWrite queues bytes toward the guest and delivers as much as the
// consumer will take.
func (p *PipeCharDevice) HostWrite(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, b...)
	p.deliverLocked()
}

// HostRead drains everything the guest has transmitted.
func (p *PipeCharDevice) HostRead() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.txBuf
	p.txBuf = nil
	return out
}

// Pending returns how many host bytes still wait for FIFO capacity.
func (p *PipeCharDevice) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *PipeCharDevice) deliverLocked() {
	if p.handlers.CanReceive == nil || p.handlers.Receive == nil {
		return
	}
	for len(p.pending) > 0 {
		n := p.handlers.CanReceive()
		if n <= 0 {
			return
		}
		if n > len(p.pending) {
			n = len(p.pending)
		}
		p.handlers.Receive(p.pending[:n])
		p.pending = p.pending[n:]
	}
}
