// chardev_serial.go - Serial-port character-device backend

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"sync"

	"github.com/tarm/serial"
)

// SerialCharDevice bridges the FIFO to a real serial port, so host
// client software can talk to the emulated token over the same wire
// protocol it would use against hardware.
type SerialCharDevice struct {
	mu       sync.Mutex
	handlers CharDevHandlers
	pending  []byte

	port *serial.Port
	done chan struct{}
}

func NewSerialCharDevice(device string, baud int) (*SerialCharDevice, error) {
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("serial chardev: open %s: %w", device, err)
	}
	d := &SerialCharDevice{
		port: port,
		done: make(chan struct{}),
	}
	go d.readLoop()
	return d, nil
}

func (d *SerialCharDevice) readLoop() {
	defer close(d.done)
	buf := make([]byte, 64)

	for {
		// Closing the port unblocks the read with an error.
		n, err := d.port.Read(buf)
		if n > 0 {
			d.mu.Lock()
			d.pending = append(d.pending, buf[:n]...)
			d.deliverLocked()
			d.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (d *SerialCharDevice) deliverLocked() {
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

func (d *SerialCharDevice) Write(p []byte) (int, error) {
	return d.port.Write(p)
}

func (d *SerialCharDevice) SetHandlers(h CharDevHandlers) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = h
}

func (d *SerialCharDevice) AcceptInput() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliverLocked()
}

func (d *SerialCharDevice) Close() error {
	err := d.port.Close()
	<-d.done
	return err
}
