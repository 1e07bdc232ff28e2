// chardev_stdio.go - Raw-terminal character-device backend on the host's stdin/stdout

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// StdioCharDevice feeds raw stdin bytes into the FIFO consumer and
// writes guest bytes to stdout. Stdin is switched to raw, non-blocking
// mode so keystrokes arrive unbuffered and the reader goroutine can be
// stopped; Close restores the terminal.
type StdioCharDevice struct {
	mu       sync.Mutex
	handlers CharDevHandlers
	pending  []byte

	fd           int
	nonblockSet  bool
	oldTermState *term.State

	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once
}

func NewStdioCharDevice() (*StdioCharDevice, error) {
	d := &StdioCharDevice{
		fd:     int(os.Stdin.Fd()),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	oldState, err := term.MakeRaw(d.fd)
	if err != nil {
		return nil, fmt.Errorf("stdio chardev: failed to set raw mode: %w", err)
	}
	d.oldTermState = oldState

	if err := syscall.SetNonblock(d.fd, true); err != nil {
		_ = term.Restore(d.fd, d.oldTermState)
		return nil, fmt.Errorf("stdio chardev: failed to set nonblocking stdin: %w", err)
	}
	d.nonblockSet = true

	go d.readLoop()
	return d, nil
}

func (d *StdioCharDevice) readLoop() {
	defer close(d.done)
	buf := make([]byte, 1)

	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		n, err := syscall.Read(d.fd, buf)
		if n > 0 {
			d.mu.Lock()
			d.pending = append(d.pending, buf[0])
			d.deliverLocked()
			d.mu.Unlock()
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func (d *StdioCharDevice) deliverLocked() {
	if d.handlers.CanReceive == nil || d.handlers.Receive == nil {
		return
	}
	for len(d.pending) > 0 {
		n := d.handlers.CanReceive()
		if n <= 0 {
			return
		}
		if n > len(d.pending) {
			n = len(d.pending)
		}
		d.handlers.Receive(d.pending[:n])
		d.pending = d.pending[n:]
	}
}

func (d *StdioCharDevice) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (d *StdioCharDevice) SetHandlers(h CharDevHandlers) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = h
}

func (d *StdioCharDevice) AcceptInput() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliverLocked()
}

// Close stops the reader goroutine and restores the terminal.
func (d *StdioCharDevice) Close() error {
	d.stopped.Do(func() {
		close(d.stopCh)
	})
	<-d.done
	if d.nonblockSet {
		_ = syscall.SetNonblock(d.fd, false)
		d.nonblockSet = false
	}
	if d.oldTermState != nil {
		_ = term.Restore(d.fd, d.oldTermState)
		d.oldTermState = nil
	}
	return nil
}
