// registers.go - Centralized MMIO register address map and access policy table

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

/*
registers.go - Master MMIO Register Map

This file provides a centralized reference for all memory-mapped I/O in
the TKey Engine, plus the declarative access-policy table the dispatcher
runs on. Address constants live in tk1_constants.go.

MEMORY MAP OVERVIEW
===================

Address Range           Size    Region              Constants
---------------------------------------------------------------------------
0x00000000-0x0001FFFF   128KB   ROM                 tk1_constants.go
0x40000000-0x4001FFFF   128KB   RAM                 tk1_constants.go
0xC0000000-0xFFFFFFFE   ~1GB    MMIO window         below

MMIO SUB-BLOCKS (offsets from 0xC0000000)
=========================================

0x00000000  TRNG        STATUS (+0x24), ENTROPY (+0x80)
0x01000000  Timer       CTRL (+0x20), STATUS (+0x24), PRESCALER (+0x28),
                        TIMER (+0x2C)
0x02000000  UDS         eight words at +0x40..+0x5C, read-once each
0x03000000  UART        RX_STATUS (+0x80), RX_DATA (+0x84),
                        TX_STATUS (+0x100), TX_DATA (+0x104)
0x04000000  Touch       STATUS (+0x24)
0x10000000  FW RAM      2KB byte-addressable scratch, firmware mode only
0x3E000000  Emulator    UDA words (+0x20..+0x2C), DEBUG putchar (+0x1000)
0x3F000000  TK1 core    NAME0/NAME1/VERSION (+0x00/+0x04/+0x08),
                        SWITCH_APP (+0x20), LED (+0x24), APP_ADDR (+0x30),
                        APP_SIZE (+0x34), BLAKE2S (+0x40),
                        CDI (+0x80..+0x9C), UDI (+0xC0..+0xC4),
                        WATCHDOG_CTRL (+0xC8), WATCHDOG_TIMER_INIT (+0xCC)

Every register outside FW RAM and the DEBUG putchar is a 32-bit word and
must be accessed with width 4 at a 4-aligned address. Access policy per
register is data, not code: the table below carries the mode gating, the
read-once flag and the read-only/write-only markers, so the security
rules of the device can be audited in one place.
*/

package main

// regReadPolicy classifies who may read a register.
type regReadPolicy int

const (
	regReadBad      regReadPolicy = iota // never readable
	regReadAlways                        // readable in both modes
	regReadFirmware                      // firmware mode only
)

// regWritePolicy classifies who may write a register.
type regWritePolicy int

const (
	regWriteBad      regWritePolicy = iota // never writable
	regWriteAlways                         // writable in both modes
	regWriteFirmware                       // firmware mode only
)

// regEntry is one row of the register map: a word register or a
// contiguous range of word registers sharing one policy.
type regEntry struct {
	name        string
	first, last uint32 // inclusive, word granular
	read        regReadPolicy
	write       regWritePolicy

	// oneShot marks a range whose words may each be read at most once
	// between resets (the UDS). The dispatcher keeps the per-word flags.
	oneShot bool

	// readFn/writeFn run after the policy checks pass. writeFn may
	// still reject with a reason for state-dependent rules (e.g. a
	// running timer).
	readFn  func(d *TK1Device, addr uint32) uint32
	writeFn func(d *TK1Device, addr uint32, val uint32) string

	// Log-message overrides for policy violations. Empty means the
	// dispatcher's generic messages are used.
	readBadMsg  string
	writeBadMsg string
}

// covers reports whether addr falls on this entry.
func (e *regEntry) covers(addr uint32) bool {
	return addr >= e.first && addr <= e.last
}

// buildRegisterMap constructs the access-policy table for the device's
// variant. The UDI gating is the only policy difference between the TK1
// and the legacy MTA1-MKDF profile.
func buildRegisterMap(profile *VariantProfile) []regEntry {
	udiRead := regReadFirmware
	if !profile.UDIGated {
		udiRead = regReadAlways
	}

	return []regEntry{
		{
			name: "UDS", first: MMIO_UDS_FIRST, last: MMIO_UDS_LAST,
			read: regReadFirmware, write: regWriteBad, oneShot: true,
			readFn:      func(d *TK1Device, addr uint32) uint32 { return d.state.uds[(addr-MMIO_UDS_FIRST)/4] },
			writeBadMsg: "write to UDS",
		},
		{
			name: "UDA", first: MMIO_EMU_UDA_FIRST, last: MMIO_EMU_UDA_LAST,
			read: regReadFirmware, write: regWriteBad,
			readFn:      func(d *TK1Device, addr uint32) uint32 { return d.state.uda[(addr-MMIO_EMU_UDA_FIRST)/4] },
			writeBadMsg: "write to UDA",
		},
		{
			name: "UDI", first: MMIO_TK1_UDI_FIRST, last: MMIO_TK1_UDI_LAST,
			read: udiRead, write: regWriteBad,
			readFn:      func(d *TK1Device, addr uint32) uint32 { return d.state.udi[(addr-MMIO_TK1_UDI_FIRST)/4] },
			writeBadMsg: "write to UDI",
		},
		{
			name: "CDI", first: MMIO_TK1_CDI_FIRST, last: MMIO_TK1_CDI_LAST,
			read: regReadAlways, write: regWriteFirmware,
			readFn: func(d *TK1Device, addr uint32) uint32 { return d.state.cdi[(addr-MMIO_TK1_CDI_FIRST)/4] },
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				d.state.cdi[(addr-MMIO_TK1_CDI_FIRST)/4] = val
				return ""
			},
		},

		{
			name: "NAME0", first: MMIO_TK1_NAME0, last: MMIO_TK1_NAME0,
			read: regReadAlways, write: regWriteBad,
			readFn: func(d *TK1Device, addr uint32) uint32 { return d.profile.Name0 },
		},
		{
			name: "NAME1", first: MMIO_TK1_NAME1, last: MMIO_TK1_NAME1,
			read: regReadAlways, write: regWriteBad,
			readFn: func(d *TK1Device, addr uint32) uint32 { return NAME1_MKDF },
		},
		{
			name: "VERSION", first: MMIO_TK1_VERSION, last: MMIO_TK1_VERSION,
			read: regReadAlways, write: regWriteBad,
			readFn: func(d *TK1Device, addr uint32) uint32 { return 1 },
		},

		{
			name: "SWITCH_APP", first: MMIO_TK1_SWITCH_APP, last: MMIO_TK1_SWITCH_APP,
			read: regReadAlways, write: regWriteFirmware,
			readFn: func(d *TK1Device, addr uint32) uint32 {
				if d.state.appMode {
					return 0xffffffff
				}
				return 0
			},
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				d.state.appMode = true
				return ""
			},
		},
		{
			name: "LED", first: MMIO_TK1_LED, last: MMIO_TK1_LED,
			read: regReadAlways, write: regWriteAlways,
			readFn: func(d *TK1Device, addr uint32) uint32 { return d.state.led },
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				d.state.led = val
				return ""
			},
		},
		{
			name: "APP_ADDR", first: MMIO_TK1_APP_ADDR, last: MMIO_TK1_APP_ADDR,
			read: regReadAlways, write: regWriteFirmware,
			readFn: func(d *TK1Device, addr uint32) uint32 { return d.state.appAddr },
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				d.state.appAddr = val
				return ""
			},
		},
		{
			name: "APP_SIZE", first: MMIO_TK1_APP_SIZE, last: MMIO_TK1_APP_SIZE,
			read: regReadAlways, write: regWriteFirmware,
			readFn: func(d *TK1Device, addr uint32) uint32 { return d.state.appSize },
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				d.state.appSize = val
				return ""
			},
		},
		{
			name: "BLAKE2S", first: MMIO_TK1_BLAKE2S, last: MMIO_TK1_BLAKE2S,
			read: regReadAlways, write: regWriteAlways,
			readFn: func(d *TK1Device, addr uint32) uint32 { return d.state.blake2s },
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				d.state.blake2s = val
				return ""
			},
		},

		{
			name: "TRNG_STATUS", first: MMIO_TRNG_STATUS, last: MMIO_TRNG_STATUS,
			read: regReadAlways, write: regWriteBad,
			readFn: func(d *TK1Device, addr uint32) uint32 { return 1 << MMIO_TRNG_STATUS_READY_BIT },
		},
		{
			name: "TRNG_ENTROPY", first: MMIO_TRNG_ENTROPY, last: MMIO_TRNG_ENTROPY,
			read: regReadAlways, write: regWriteBad,
			readFn: func(d *TK1Device, addr uint32) uint32 { return d.entropy.Word() },
		},

		{
			name: "TOUCH_STATUS", first: MMIO_TOUCH_STATUS, last: MMIO_TOUCH_STATUS,
			read: regReadAlways, write: regWriteAlways,
			readFn: func(d *TK1Device, addr uint32) uint32 { return 1 << MMIO_TOUCH_STATUS_EVENT_BIT },
			// A write acknowledges the touch event. We don't model
			// touch reset, so the value is discarded.
			writeFn: func(d *TK1Device, addr uint32, val uint32) string { return "" },
		},

		{
			name: "TIMER_CTRL", first: MMIO_TIMER_CTRL, last: MMIO_TIMER_CTRL,
			read: regReadBad, write: regWriteAlways,
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				d.timerCtrl()
				return ""
			},
		},
		{
			name: "TIMER_STATUS", first: MMIO_TIMER_STATUS, last: MMIO_TIMER_STATUS,
			read: regReadAlways, write: regWriteBad,
			readFn: func(d *TK1Device, addr uint32) uint32 {
				if d.state.timerRunning {
					return 0
				}
				return 1 << MMIO_TIMER_STATUS_READY_BIT
			},
		},
		{
			name: "TIMER_PRESCALER", first: MMIO_TIMER_PRESCALER, last: MMIO_TIMER_PRESCALER,
			read: regReadAlways, write: regWriteAlways,
			readFn: func(d *TK1Device, addr uint32) uint32 { return d.state.timerPrescaler },
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				if d.state.timerRunning {
					return "write to TIMER_PRESCALER while timer running"
				}
				d.setPrescaler(val)
				return ""
			},
		},
		{
			name: "TIMER_TIMER", first: MMIO_TIMER_TIMER, last: MMIO_TIMER_TIMER,
			read: regReadAlways, write: regWriteFirmware,
			readFn: func(d *TK1Device, addr uint32) uint32 { return d.state.timer },
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				if d.state.timerRunning {
					return "write to TIMER_TIMER while timer running"
				}
				d.state.timerInitial = val
				d.state.timer = val
				return ""
			},
		},

		{
			name: "WATCHDOG_CTRL", first: MMIO_WATCHDOG_CTRL, last: MMIO_WATCHDOG_CTRL,
			read: regReadBad, write: regWriteAlways,
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				d.watchdogCtrl(val)
				return ""
			},
		},
		{
			name: "WATCHDOG_TIMER_INIT", first: MMIO_WATCHDOG_TIMER_INIT, last: MMIO_WATCHDOG_TIMER_INIT,
			read: regReadBad, write: regWriteAlways,
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				d.state.watchdogInitial = val
				return ""
			},
		},

		{
			name: "UART_RX_STATUS", first: MMIO_UART_RX_STATUS, last: MMIO_UART_RX_STATUS,
			read: regReadAlways, write: regWriteBad,
			readFn: func(d *TK1Device, addr uint32) uint32 { return d.fifo.RxStatus() },
		},
		{
			name: "UART_RX_DATA", first: MMIO_UART_RX_DATA, last: MMIO_UART_RX_DATA,
			read: regReadAlways, write: regWriteBad,
			readFn: func(d *TK1Device, addr uint32) uint32 { return d.fifo.RxData() },
		},
		{
			name: "UART_TX_STATUS", first: MMIO_UART_TX_STATUS, last: MMIO_UART_TX_STATUS,
			read: regReadAlways, write: regWriteBad,
			readFn: func(d *TK1Device, addr uint32) uint32 { return 1 },
		},
		{
			name: "UART_TX_DATA", first: MMIO_UART_TX_DATA, last: MMIO_UART_TX_DATA,
			read: regReadBad, write: regWriteAlways,
			readBadMsg: "read from TX_DATA",
			writeFn: func(d *TK1Device, addr uint32, val uint32) string {
				d.fifo.TxWrite(byte(val))
				return ""
			},
		},
	}
}
