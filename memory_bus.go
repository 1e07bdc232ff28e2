// memory_bus.go - System bus: ROM, RAM and memory-mapped I/O routing

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

/*
memory_bus.go - Memory Bus for the TKey Engine

The bus models the board's 32-bit physical address space: a ROM image
at the reset vector, working RAM, and the MMIO window routed to the
peripheral model via registered I/O regions. The TK1 map is sparse —
the regions sit gigabytes apart — so the bus keeps ROM and RAM as
separate slices at their bases rather than one contiguous block, and
resolves I/O by scanning a short region list.

Accesses carry an explicit width because the MMIO dispatcher enforces
width policy itself (the firmware scratch RAM is byte granular, the
register file is word granular). RAM and ROM accept 1-, 2- and 4-byte
accesses little-endian, like the hart they serve.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// MemoryBus is the guest-visible memory surface.
type MemoryBus interface {
	Read32(addr uint32) uint32
	Write32(addr uint32, value uint32)
	Read16(addr uint32) uint16
	Write16(addr uint32, value uint16)
	Read8(addr uint32) uint8
	Write8(addr uint32, value uint8)
	Reset()
}

// IORegion is a memory-mapped I/O range with its access callbacks.
type IORegion struct {
	start   uint32
	end     uint32
	onRead  func(addr uint32, size int) uint32
	onWrite func(addr uint32, value uint32, size int)
}

// SystemBus implements MemoryBus for the TK1 board.
type SystemBus struct {
	mutex sync.RWMutex

	rom []byte
	ram []byte

	ioRegions []IORegion
	log       GuestLogger
}

func NewSystemBus(log GuestLogger) *SystemBus {
	return &SystemBus{
		rom: make([]byte, TK1_ROM_SIZE),
		ram: make([]byte, TK1_RAM_SIZE),
		log: log,
	}
}

// MapIO registers an I/O region; end is inclusive. Earlier
// registrations win on overlap;
// the board maps each sub-window exactly once, so in practice the list
// is short and disjoint.
func (bus *SystemBus) MapIO(start, end uint32, onRead func(addr uint32, size int) uint32, onWrite func(addr uint32, value uint32, size int)) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	bus.ioRegions = append(bus.ioRegions, IORegion{
		start:   start,
		end:     end,
		onRead:  onRead,
		onWrite: onWrite,
	})
}

// LoadROM copies a firmware image into ROM at the given offset.
func (bus *SystemBus) LoadROM(image []byte, offset uint32) error {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	if int(offset)+len(image) > len(bus.rom) {
		return fmt.Errorf("firmware image of %d bytes does not fit in %d bytes of ROM", len(image), len(bus.rom))
	}
	copy(bus.rom[offset:], image)
	return nil
}

func (bus *SystemBus) read(addr uint32, size int) uint32 {
	bus.mutex.RLock()
	for _, region := range bus.ioRegions {
		if addr >= region.start && addr <= region.end && region.onRead != nil {
			onRead := region.onRead
			bus.mutex.RUnlock()
			return onRead(addr, size)
		}
	}
	defer bus.mutex.RUnlock()

	if insideRegion(addr, size, TK1_ROM_BASE, TK1_ROM_SIZE) {
		return readLE(bus.rom[addr-TK1_ROM_BASE:], size)
	}
	if insideRegion(addr, size, TK1_RAM_BASE, TK1_RAM_SIZE) {
		return readLE(bus.ram[addr-TK1_RAM_BASE:], size)
	}

	bus.log.Logf("bus: unmapped read: addr=0x%x size=%d", addr, size)
	return 0
}

func (bus *SystemBus) write(addr uint32, value uint32, size int) {
	bus.mutex.Lock()
	for _, region := range bus.ioRegions {
		if addr >= region.start && addr <= region.end && region.onWrite != nil {
			onWrite := region.onWrite
			bus.mutex.Unlock()
			onWrite(addr, value, size)
			return
		}
	}
	defer bus.mutex.Unlock()

	if insideRegion(addr, size, TK1_ROM_BASE, TK1_ROM_SIZE) {
		bus.log.Logf("bus: write to ROM: addr=0x%x size=%d val=0x%x", addr, size, value)
		return
	}
	if insideRegion(addr, size, TK1_RAM_BASE, TK1_RAM_SIZE) {
		writeLE(bus.ram[addr-TK1_RAM_BASE:], value, size)
		return
	}

	bus.log.Logf("bus: unmapped write: addr=0x%x size=%d val=0x%x", addr, size, value)
}

func (bus *SystemBus) Read32(addr uint32) uint32         { return bus.read(addr, 4) }
func (bus *SystemBus) Read16(addr uint32) uint16         { return uint16(bus.read(addr, 2)) }
func (bus *SystemBus) Read8(addr uint32) uint8           { return uint8(bus.read(addr, 1)) }
func (bus *SystemBus) Write32(addr uint32, value uint32) { bus.write(addr, value, 4) }
func (bus *SystemBus) Write16(addr uint32, value uint16) { bus.write(addr, uint32(value), 2) }
func (bus *SystemBus) Write8(addr uint32, value uint8)   { bus.write(addr, uint32(value), 1) }

// Reset clears RAM. ROM keeps the loaded firmware image.
func (bus *SystemBus) Reset() {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	for i := range bus.ram {
		bus.ram[i] = 0
	}
}

// insideRegion checks range containment in 64 bits so accesses at the
// top of the address space cannot wrap back in.
func insideRegion(addr uint32, size int, base, length uint32) bool {
	return addr >= base && uint64(addr)+uint64(size) <= uint64(base)+uint64(length)
}

func readLE(b []byte, size int) uint32 {
	switch size {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(b))
	default:
		return binary.LittleEndian.Uint32(b)
	}
}

func writeLE(b []byte, value uint32, size int) {
	switch size {
	case 1:
		b[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(value))
	default:
		binary.LittleEndian.PutUint32(b, value)
	}
}
