package main

import "testing"

func newTestBus() (*SystemBus, *CaptureLogger) {
	log := &CaptureLogger{}
	return NewSystemBus(log), log
}

func TestSystemBus_RAMWidths(t *testing.T) {
	bus, _ := newTestBus()

	bus.Write32(TK1_RAM_BASE, 0x44332211)
	if got := bus.Read32(TK1_RAM_BASE); got != 0x44332211 {
		t.Fatalf("expected 0x44332211, got 0x%x", got)
	}
	if got := bus.Read16(TK1_RAM_BASE + 2); got != 0x4433 {
		t.Fatalf("expected little-endian half 0x4433, got 0x%x", got)
	}
	if got := bus.Read8(TK1_RAM_BASE + 1); got != 0x22 {
		t.Fatalf("expected byte 0x22, got 0x%x", got)
	}

	bus.Write8(TK1_RAM_BASE+3, 0x99)
	if got := bus.Read32(TK1_RAM_BASE); got != 0x99332211 {
		t.Fatalf("expected byte write merged to 0x99332211, got 0x%x", got)
	}
}

func TestSystemBus_ROMIsReadOnly(t *testing.T) {
	bus, log := newTestBus()

	if err := bus.LoadROM([]byte{0xaa, 0xbb}, 0); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	bus.Write8(TK1_ROM_BASE, 0x00)
	if !log.Contains("write to ROM") {
		t.Fatalf("expected ROM write to be logged")
	}
	if got := bus.Read8(TK1_ROM_BASE); got != 0xaa {
		t.Fatalf("expected ROM byte unchanged, got 0x%x", got)
	}
}

func TestSystemBus_LoadROMBounds(t *testing.T) {
	bus, _ := newTestBus()
	if err := bus.LoadROM(make([]byte, TK1_ROM_SIZE+1), 0); err == nil {
		t.Fatalf("expected oversized image to be rejected")
	}
	if err := bus.LoadROM(make([]byte, 16), TK1_ROM_SIZE-8); err == nil {
		t.Fatalf("expected out-of-bounds offset to be rejected")
	}
}

func TestSystemBus_UnmappedAccessLogs(t *testing.T) {
	bus, log := newTestBus()

	if got := bus.Read32(0x80000000); got != 0 {
		t.Fatalf("expected unmapped read to return 0, got 0x%x", got)
	}
	if !log.Contains("unmapped read") {
		t.Fatalf("expected unmapped read log")
	}
	bus.Write32(0x80000000, 1)
	if !log.Contains("unmapped write") {
		t.Fatalf("expected unmapped write log")
	}
}

func TestSystemBus_IORegionRouting(t *testing.T) {
	bus, _ := newTestBus()

	var lastAddr uint32
	var lastVal uint32
	var lastSize int
	bus.MapIO(0xc0000000, 0xc00000ff,
		func(addr uint32, size int) uint32 {
			lastAddr, lastSize = addr, size
			return 0x1234
		},
		func(addr uint32, value uint32, size int) {
			lastAddr, lastVal, lastSize = addr, value, size
		})

	if got := bus.Read32(0xc0000010); got != 0x1234 {
		t.Fatalf("expected region read 0x1234, got 0x%x", got)
	}
	if lastAddr != 0xc0000010 || lastSize != 4 {
		t.Fatalf("expected callback addr 0xc0000010 size 4, got 0x%x size %d", lastAddr, lastSize)
	}

	bus.Write8(0xc0000020, 0x7f)
	if lastAddr != 0xc0000020 || lastVal != 0x7f || lastSize != 1 {
		t.Fatalf("expected byte write routed with size 1, got addr=0x%x val=0x%x size=%d",
			lastAddr, lastVal, lastSize)
	}

	// Accesses outside the region still hit memory rules.
	bus.Write32(TK1_RAM_BASE, 5)
	if got := bus.Read32(TK1_RAM_BASE); got != 5 {
		t.Fatalf("expected RAM untouched by region, got 0x%x", got)
	}
}

func TestSystemBus_ResetClearsRAMOnly(t *testing.T) {
	bus, _ := newTestBus()
	if err := bus.LoadROM([]byte{0xaa}, 0); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	bus.Write32(TK1_RAM_BASE, 0x12345678)

	bus.Reset()

	if got := bus.Read32(TK1_RAM_BASE); got != 0 {
		t.Fatalf("expected RAM cleared, got 0x%x", got)
	}
	if got := bus.Read8(TK1_ROM_BASE); got != 0xaa {
		t.Fatalf("expected ROM to survive reset, got 0x%x", got)
	}
}
