// fifo_bridge.go - Bridges the host character device to the guest UART FIFO

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import "sync"

// FIFOBridge couples a character device to the token's single-lane
// byte FIFO. Inbound bytes from the backend land in a bounded receive
// buffer the guest drains through UART_RX_DATA; guest writes to
// UART_TX_DATA pass straight through to the device.
//
// The bridge has its own lock so the backend may deliver from any
// goroutine. TxWrite deliberately runs unlocked: transmit touches no
// receive state, and holding the lock across a backend Write could
// deadlock against a synchronous redelivery.
type FIFOBridge struct {
	mu  sync.Mutex
	chr CharDevice
	log GuestLogger

	rxBuf [TK1_RX_FIFO_SIZE]byte
	rxLen int
}

// NewFIFOBridge attaches the bridge to its character device and
// registers the receive handlers.
func NewFIFOBridge(chr CharDevice, log GuestLogger) *FIFOBridge {
	f := &FIFOBridge{chr: chr, log: log}
	f.registerHandlers()
	return f
}

func (f *FIFOBridge) registerHandlers() {
	f.chr.SetHandlers(CharDevHandlers{
		CanReceive:    f.CanReceive,
		Receive:       f.Receive,
		Event:         f.Event,
		BackendChange: f.BackendChange,
	})
}

// CanReceive returns the remaining buffer capacity. The backend must
// not deliver more bytes than this.
func (f *FIFOBridge) CanReceive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return TK1_RX_FIFO_SIZE - f.rxLen
}

// Receive appends inbound bytes to the receive buffer. Bytes beyond
// the remaining capacity are dropped and logged; the buffered bytes
// are never disturbed.
func (f *FIFOBridge) Receive(buf []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, b := range buf {
		if f.rxLen >= TK1_RX_FIFO_SIZE {
			f.log.Logf("tk1_fifo_rx: FIFO Rx dropped! size=%d", len(buf)-i)
			return
		}
		f.rxBuf[f.rxLen] = b
		f.rxLen++
	}
}

// Event ignores backend state changes.
func (f *FIFOBridge) Event(kind int) {
}

// BackendChange re-registers the handlers on the new backend.
func (f *FIFOBridge) BackendChange() int {
	f.registerHandlers()
	return 0
}

// RxStatus returns the number of buffered bytes, the guest's
// UART_RX_STATUS view.
func (f *FIFOBridge) RxStatus() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint32(f.rxLen)
}

// RxData pops the oldest buffered byte and tells the backend it may
// deliver again. An empty FIFO returns the sentinel value; firmware is
// expected to poll UART_RX_STATUS instead of relying on it.
func (f *FIFOBridge) RxData() uint32 {
	f.mu.Lock()
	if f.rxLen == 0 {
		f.mu.Unlock()
		return UART_RX_EMPTY_SENTINEL
	}
	r := f.rxBuf[0]
	copy(f.rxBuf[:], f.rxBuf[1:f.rxLen])
	f.rxLen--
	f.mu.Unlock()

	f.chr.AcceptInput()
	return uint32(r)
}

// TxWrite forwards one guest byte to the character device, ignoring
// the outcome.
func (f *FIFOBridge) TxWrite(b byte) {
	f.chr.Write([]byte{b})
}
