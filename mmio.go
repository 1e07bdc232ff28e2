// mmio.go - MMIO dispatcher for the TK1 board: decoding, policy, routing

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"io"
	"os"
	"sync"
)

// TK1Device is the MMIO peripheral model of the token. It owns the
// device state, the access-policy table, the FIFO bridge and the two
// virtual-clock timers. Guest loads and stores and the timer callbacks
// are serialized under its lock. The chardev receive path only touches
// the bridge's own state and is serialized by the bridge's lock.
type TK1Device struct {
	mu      sync.Mutex
	state   DeviceState
	profile *VariantProfile

	clock   Clock
	entropy EntropySource
	log     GuestLogger
	fifo    *FIFOBridge

	regs []regEntry

	// debugOut receives bytes written to the emulator-only debug
	// register. Defaults to the host's stdout.
	debugOut io.Writer

	// requestMachineReset is the best-effort host reset hook the
	// watchdog fires after the device-level reset. May be nil.
	requestMachineReset func()
}

// NewTK1Device builds the peripheral model for the given variant. The
// fifo bridge must already be attached to its character device.
func NewTK1Device(profile *VariantProfile, clock Clock, entropy EntropySource, log GuestLogger, fifo *FIFOBridge) *TK1Device {
	d := &TK1Device{
		profile:  profile,
		clock:    clock,
		entropy:  entropy,
		log:      log,
		fifo:     fifo,
		debugOut: os.Stdout,
	}
	d.regs = buildRegisterMap(profile)
	d.state.powerOn()
	return d
}

// lookup finds the register-map entry covering addr, or nil.
func (d *TK1Device) lookup(addr uint32) *regEntry {
	for i := range d.regs {
		if d.regs[i].covers(addr) {
			return &d.regs[i]
		}
	}
	return nil
}

// insideFWRAM reports whether the whole access lands in the
// byte-addressable firmware scratch RAM. The end is computed in 64
// bits so an access at the top of the address space cannot wrap back
// into range.
func insideFWRAM(addr uint32, size int) bool {
	return addr >= MMIO_FW_RAM_BASE &&
		uint64(addr)+uint64(size) <= uint64(MMIO_FW_RAM_BASE)+uint64(MMIO_FW_RAM_SIZE)
}

// HandleRead services a guest load from the MMIO window. addr is
// absolute; size is the access width in bytes. Bad accesses leave the
// state untouched, log a guest error and return 0.
func (d *TK1Device) HandleRead(addr uint32, size int) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	val, badmsg := d.read(addr, size)
	if badmsg != "" {
		d.log.Logf("tk1_mmio_read: bad read: addr=0x%x size=%d msg='%s'", addr, size, badmsg)
		return 0
	}
	return val
}

// HandleWrite services a guest store to the MMIO window.
func (d *TK1Device) HandleWrite(addr uint32, val uint32, size int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if badmsg := d.write(addr, val, size); badmsg != "" {
		d.log.Logf("tk1_mmio_write: bad write: addr=0x%x size=%d val=0x%x msg='%s'", addr, size, val, badmsg)
	}
}

func (d *TK1Device) read(addr uint32, size int) (uint32, string) {
	// FW RAM is byte addressable and firmware-mode only.
	if insideFWRAM(addr, size) {
		if d.state.appMode {
			return 0, "read from FW_RAM in app-mode"
		}
		off := addr - MMIO_FW_RAM_BASE
		var val uint32
		for i := 0; i < size; i++ {
			val |= uint32(d.state.fwRAM[off+uint32(i)]) << (8 * i)
		}
		return val, ""
	}

	if size != 4 {
		return 0, "size not 32 bits"
	}
	if addr%4 != 0 {
		return 0, "addr not 32-bit aligned"
	}

	e := d.lookup(addr)
	if e == nil {
		return 0, "addr/val/state not handled"
	}

	switch e.read {
	case regReadBad:
		if e.readBadMsg != "" {
			return 0, e.readBadMsg
		}
		return 0, "addr/val/state not handled"
	case regReadFirmware:
		if d.state.appMode {
			return 0, "read from " + e.name + " in app-mode"
		}
	}

	if e.oneShot {
		i := int((addr - e.first) / 4)
		if d.state.udsRead[i] {
			return 0, "read from " + e.name + " twice"
		}
		d.state.udsRead[i] = true
	}

	return e.readFn(d, addr), ""
}

func (d *TK1Device) write(addr uint32, val uint32, size int) string {
	// The debug register takes the low byte straight to the host and
	// is exempt from the width and alignment checks.
	if addr == MMIO_EMU_DEBUG {
		d.debugOut.Write([]byte{byte(val)})
		return ""
	}

	if insideFWRAM(addr, size) {
		if d.state.appMode {
			return "write to FW_RAM in app-mode"
		}
		off := addr - MMIO_FW_RAM_BASE
		for i := 0; i < size; i++ {
			d.state.fwRAM[off+uint32(i)] = byte(val >> (8 * i))
		}
		return ""
	}

	if size != 4 {
		return "size not 32 bits"
	}
	if addr%4 != 0 {
		return "addr not 32-bit aligned"
	}

	e := d.lookup(addr)
	if e == nil {
		return "addr/val/state not handled"
	}

	switch e.write {
	case regWriteBad:
		if e.writeBadMsg != "" {
			return e.writeBadMsg
		}
		return "addr/val/state not handled"
	case regWriteFirmware:
		if d.state.appMode {
			return "write to " + e.name + " in app-mode"
		}
	}

	return e.writeFn(d, addr, val)
}

// Reset performs the same device-level reset the watchdog does on
// expiry. Exposed for the monitor's reset command.
func (d *TK1Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.watchdogReset()
}

// DeviceSnapshot is a copy of the observable device state for the
// monitor's state command and the LED frontend. Secrets stay inside.
type DeviceSnapshot struct {
	Variant         string
	AppMode         bool
	LED             uint32
	AppAddr         uint32
	AppSize         uint32
	Blake2s         uint32
	CDI             [8]uint32
	Timer           uint32
	TimerInitial    uint32
	TimerPrescaler  uint32
	TimerRunning    bool
	WatchdogInitial uint32
	WatchdogRunning bool
	RxLen           int
}

// Snapshot copies the observable state under the device lock.
func (d *TK1Device) Snapshot() DeviceSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DeviceSnapshot{
		Variant:         d.profile.Name,
		AppMode:         d.state.appMode,
		LED:             d.state.led,
		AppAddr:         d.state.appAddr,
		AppSize:         d.state.appSize,
		Blake2s:         d.state.blake2s,
		CDI:             d.state.cdi,
		Timer:           d.state.timer,
		TimerInitial:    d.state.timerInitial,
		TimerPrescaler:  d.state.timerPrescaler,
		TimerRunning:    d.state.timerRunning,
		WatchdogInitial: d.state.watchdogInitial,
		WatchdogRunning: d.state.watchdogRunning,
		RxLen:           int(d.fifo.RxStatus()),
	}
}
