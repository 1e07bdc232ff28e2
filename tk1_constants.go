// tk1_constants.go - Memory map and MMIO register constants for the TK1 board

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

// The board runs a single PicoRV32 hart at 18 MHz. Timer and watchdog
// intervals are derived from this frequency in virtual nanoseconds.
const (
	TK1_CLOCK_FREQ   = 18_000_000
	NANOS_PER_SECOND = 1_000_000_000

	TK1_RX_FIFO_SIZE = 16
)

// Physical memory map. The top two address bits select the region.
const (
	TK1_ROM_BASE uint32 = 0x00000000
	TK1_ROM_SIZE uint32 = 0x20000 // 128KB

	TK1_RAM_BASE uint32 = 0x40000000
	TK1_RAM_SIZE uint32 = 0x20000 // 128KB

	TK1_MMIO_BASE uint32 = 0xc0000000
	TK1_MMIO_SIZE uint32 = 0x3fffffff
)

// MMIO sub-block bases. Bits 24..29 of the offset select the core.
const (
	MMIO_TRNG_BASE  = TK1_MMIO_BASE | 0x00000000
	MMIO_TIMER_BASE = TK1_MMIO_BASE | 0x01000000
	MMIO_UDS_BASE   = TK1_MMIO_BASE | 0x02000000
	MMIO_UART_BASE  = TK1_MMIO_BASE | 0x03000000
	MMIO_TOUCH_BASE = TK1_MMIO_BASE | 0x04000000

	// Firmware-mode scratch RAM, byte addressable.
	MMIO_FW_RAM_BASE = TK1_MMIO_BASE | 0x10000000
	MMIO_FW_RAM_SIZE = 0x800 // 2KB

	// This core only exists in the emulator, never in hardware.
	MMIO_EMU_BASE = TK1_MMIO_BASE | 0x3e000000

	MMIO_TK1_BASE = TK1_MMIO_BASE | 0x3f000000
)

// TRNG core.
const (
	MMIO_TRNG_STATUS           = MMIO_TRNG_BASE | 0x24
	MMIO_TRNG_STATUS_READY_BIT = 0
	MMIO_TRNG_ENTROPY          = MMIO_TRNG_BASE | 0x80
)

// Timer core. The watchdog lives in the TK1 core block below.
const (
	MMIO_TIMER_CTRL             = MMIO_TIMER_BASE | 0x20
	MMIO_TIMER_STATUS           = MMIO_TIMER_BASE | 0x24
	MMIO_TIMER_STATUS_READY_BIT = 0
	MMIO_TIMER_PRESCALER        = MMIO_TIMER_BASE | 0x28
	MMIO_TIMER_TIMER            = MMIO_TIMER_BASE | 0x2c
)

// UDS core. Eight 32-bit words, each readable exactly once per reset.
const (
	MMIO_UDS_FIRST = MMIO_UDS_BASE | 0x40
	MMIO_UDS_LAST  = MMIO_UDS_BASE | 0x5c
)

// UART core. The bit-rate/framing registers exist in hardware but the
// emulated FIFO ignores framing, so they are not wired to any state.
const (
	MMIO_UART_BIT_RATE  = MMIO_UART_BASE | 0x40
	MMIO_UART_DATA_BITS = MMIO_UART_BASE | 0x44
	MMIO_UART_STOP_BITS = MMIO_UART_BASE | 0x48
	MMIO_UART_RX_STATUS = MMIO_UART_BASE | 0x80
	MMIO_UART_RX_DATA   = MMIO_UART_BASE | 0x84
	MMIO_UART_TX_STATUS = MMIO_UART_BASE | 0x100
	MMIO_UART_TX_DATA   = MMIO_UART_BASE | 0x104
)

// Reading RX_DATA with an empty FIFO returns this sentinel. Firmware
// should poll RX_STATUS instead of relying on it.
const UART_RX_EMPTY_SENTINEL uint32 = 0x80000000

// Touch sensor core. The emulated sensor is always touched.
const (
	MMIO_TOUCH_STATUS           = MMIO_TOUCH_BASE | 0x24
	MMIO_TOUCH_STATUS_EVENT_BIT = 0
)

// Emulator-only core: the UDA words (no hardware address is defined for
// them yet) and a debug register whose writes land on the host's stdout.
const (
	MMIO_EMU_UDA_FIRST = MMIO_EMU_BASE | 0x20
	MMIO_EMU_UDA_LAST  = MMIO_EMU_BASE | 0x2c
	MMIO_EMU_DEBUG     = MMIO_EMU_BASE | 0x1000
)

// TK1 core: identity, mode switch, LED, app descriptors, CDI, UDI and
// the watchdog.
const (
	MMIO_TK1_NAME0      = MMIO_TK1_BASE | 0x00
	MMIO_TK1_NAME1      = MMIO_TK1_BASE | 0x04
	MMIO_TK1_VERSION    = MMIO_TK1_BASE | 0x08
	MMIO_TK1_SWITCH_APP = MMIO_TK1_BASE | 0x20

	MMIO_TK1_LED       = MMIO_TK1_BASE | 0x24
	MMIO_TK1_LED_R_BIT = 2
	MMIO_TK1_LED_G_BIT = 1
	MMIO_TK1_LED_B_BIT = 0

	MMIO_TK1_GPIO = MMIO_TK1_BASE | 0x28

	MMIO_TK1_APP_ADDR = MMIO_TK1_BASE | 0x30
	MMIO_TK1_APP_SIZE = MMIO_TK1_BASE | 0x34

	MMIO_TK1_BLAKE2S = MMIO_TK1_BASE | 0x40

	MMIO_TK1_CDI_FIRST = MMIO_TK1_BASE | 0x80
	MMIO_TK1_CDI_LAST  = MMIO_TK1_BASE | 0x9c

	MMIO_TK1_UDI_FIRST = MMIO_TK1_BASE | 0xc0
	MMIO_TK1_UDI_LAST  = MMIO_TK1_BASE | 0xc4

	MMIO_WATCHDOG_CTRL           = MMIO_TK1_BASE | 0xc8
	MMIO_WATCHDOG_CTRL_START_BIT = 0
	MMIO_WATCHDOG_CTRL_STOP_BIT  = 1
	MMIO_WATCHDOG_TIMER_INIT     = MMIO_TK1_BASE | 0xcc
)

// Power-on watchdog countdown, about 7.5s at 18 MHz.
const WATCHDOG_DEFAULT_INITIAL uint32 = 0x07ffffff

// NAME0/NAME1 words, ASCII with the first character in the most
// significant byte.
const (
	NAME0_TK1  uint32 = 0x746b3120 // "tk1 "
	NAME0_MTA1 uint32 = 0x6d746131 // "mta1"
	NAME1_MKDF uint32 = 0x6d6b6466 // "mkdf"
)
