// device_state.go - Durable device state and reset behaviour for the TK1 board

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

// DeviceState holds every durable field of the emulated token: the
// provisioned secrets, the identity words, the mode latch, the app-load
// descriptors, the scratch registers and the timer/watchdog state. It
// is mutated only by the MMIO dispatcher and the clock callbacks, both
// of which run under the device lock.
//
// The secrets are fixed development literals. This is an emulator for
// firmware bring-up, not a key-provisioning device.
type DeviceState struct {
	uds     [8]uint32 // Unique Device Secret, read-once per word
	udsRead [8]bool   // per-word consumption flags
	uda     [4]uint32 // Unique Device Authentication key
	udi     [2]uint32 // Unique Device Identity
	cdi     [8]uint32 // Compound Device Identity, written by firmware

	fwRAM [MMIO_FW_RAM_SIZE]byte

	appMode bool // one-way latch, cleared only by watchdog reset
	appAddr uint32
	appSize uint32

	led     uint32
	blake2s uint32

	timerInitial   uint32
	timer          uint32
	timerPrescaler uint32
	timerRunning   bool
	timerInterval  int64 // nanoseconds per tick

	watchdogInitial uint32
	watchdogRunning bool
}

// powerOn sets the state a freshly constructed machine starts from.
func (s *DeviceState) powerOn() {
	s.uds = [8]uint32{
		0x80808080,
		0x91919191,
		0xa2a2a2a2,
		0xb3b3b3b3,
		0xc4c4c4c4,
		0xd5d5d5d5,
		0xe6e6e6e6,
		0xf7f7f7f7,
	}
	for i := range s.udsRead {
		s.udsRead[i] = false
	}

	s.uda = [4]uint32{0x47111747, 0x47111747, 0x47111747, 0x47111747}
	s.udi = [2]uint32{0x00010203, 0x04050607}

	s.timerInitial = 0
	s.timer = 0
	s.timerPrescaler = 0
	s.timerRunning = false
	// Default interval is one 18 MHz cycle, ~55ns.
	s.timerInterval = NANOS_PER_SECOND / TK1_CLOCK_FREQ

	s.watchdogInitial = WATCHDOG_DEFAULT_INITIAL
	s.watchdogRunning = false
}

// watchdogReset is the device-level reset the watchdog performs on
// expiry. It returns the token to firmware mode, re-arms the UDS
// read-once flags and zeroes everything the firmware derives. The
// secrets themselves and FW RAM keep their contents, as on hardware.
func (s *DeviceState) watchdogReset() {
	s.timerInitial = 0
	s.timer = 0
	s.timerPrescaler = 0
	s.timerRunning = false
	s.timerInterval = NANOS_PER_SECOND / TK1_CLOCK_FREQ

	s.watchdogInitial = WATCHDOG_DEFAULT_INITIAL
	s.watchdogRunning = false

	s.appMode = false
	s.appAddr = 0
	s.appSize = 0

	for i := range s.udsRead {
		s.udsRead[i] = false
	}

	s.led = 0
	s.blake2s = 0

	for i := range s.cdi {
		s.cdi[i] = 0
	}
}
