// machine.go - Board construction and wiring for the TK1 and MTA1-MKDF variants

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
)

// VariantProfile is the data that distinguishes the two board
// variants. Both share the register layout; the profile only carries
// the identity word and the UDI secrecy gating.
type VariantProfile struct {
	Name     string
	Desc     string
	Name0    uint32
	UDIGated bool
}

var variantProfiles = []*VariantProfile{
	{
		Name:     "tk1",
		Desc:     "Tillitis TK1 Board",
		Name0:    NAME0_TK1,
		UDIGated: true,
	},
	{
		Name:     "mta1_mkdf",
		Desc:     "Mullvad MTA1-MKDF Board",
		Name0:    NAME0_MTA1,
		UDIGated: false,
	},
}

// LookupVariant resolves a -machine name to its profile.
func LookupVariant(name string) (*VariantProfile, error) {
	for _, p := range variantProfiles {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown machine type %q (want tk1 or mta1_mkdf)", name)
}

// InitError wraps a machine-construction failure with the operation
// that failed.
type InitError struct {
	Op      string
	Details string
	Err     error
}

func (e *InitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("machine %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("machine %s failed: %s", e.Op, e.Details)
}

func (e *InitError) Unwrap() error { return e.Err }

// MachineConfig carries everything construction needs. No global
// state: the config plus the injected clock and logger fully determine
// the machine.
type MachineConfig struct {
	Machine      string // variant name, tk1 or mta1_mkdf
	CPUType      string // empty means the board default, picorv32
	FirmwarePath string
	FIFOChan     string // character-device name for OpenCharDevice
	RAMSize      uint32 // 0 means the board default; anything else must match it
}

// The only hart this board takes. The core itself lives in the hosting
// emulator; the name is validated so a mismatched invocation fails at
// init instead of running firmware against the wrong ISA.
const TK1_CPU_TYPE = "picorv32"

// Machine is the assembled board: bus, peripheral model, character
// device and clock. The emulated hart is not part of this model; the
// guest side is driven through MMIORead/MMIOWrite and the bus.
type Machine struct {
	cfg     MachineConfig
	profile *VariantProfile

	bus   *SystemBus
	dev   *TK1Device
	chr   CharDevice
	clock Clock
	log   GuestLogger
}

// NewMachine validates the config, loads the firmware image and wires
// the components. Every failure path returns an InitError; the caller
// decides the exit code.
func NewMachine(cfg MachineConfig, clock Clock, log GuestLogger) (*Machine, error) {
	profile, err := LookupVariant(cfg.Machine)
	if err != nil {
		return nil, &InitError{Op: "init", Details: "machine type", Err: err}
	}

	if cfg.CPUType != "" && cfg.CPUType != TK1_CPU_TYPE {
		return nil, &InitError{Op: "init",
			Details: fmt.Sprintf("this board can only be used with a %s CPU, not %q", TK1_CPU_TYPE, cfg.CPUType)}
	}

	if cfg.RAMSize != 0 && cfg.RAMSize != TK1_RAM_SIZE {
		return nil, &InitError{Op: "init",
			Details: fmt.Sprintf("invalid RAM size 0x%x, should be 0x%x", cfg.RAMSize, TK1_RAM_SIZE)}
	}

	if cfg.FirmwarePath == "" {
		return nil, &InitError{Op: "init", Details: "no firmware provided, use -firmware"}
	}
	image, err := os.ReadFile(cfg.FirmwarePath)
	if err != nil {
		return nil, &InitError{Op: "init", Details: "firmware load", Err: err}
	}

	chr, err := OpenCharDevice(cfg.FIFOChan)
	if err != nil {
		return nil, &InitError{Op: "init", Details: "fifo chardev", Err: err}
	}

	bus := NewSystemBus(log)
	if err := bus.LoadROM(image, 0); err != nil {
		chr.Close()
		return nil, &InitError{Op: "init", Details: "firmware load", Err: err}
	}

	fifo := NewFIFOBridge(chr, log)
	dev := NewTK1Device(profile, clock, HostEntropy{}, log, fifo)

	m := &Machine{
		cfg:     cfg,
		profile: profile,
		bus:     bus,
		dev:     dev,
		chr:     chr,
		clock:   clock,
		log:     log,
	}

	// The watchdog's machine-wide reset is best effort: the device
	// reset is authoritative, the host side just clears RAM.
	dev.requestMachineReset = func() {
		log.Logf("machine: watchdog requested machine reset, clearing RAM")
		bus.Reset()
	}

	bus.MapIO(TK1_MMIO_BASE, TK1_MMIO_BASE+TK1_MMIO_SIZE-1, dev.HandleRead, dev.HandleWrite)

	return m, nil
}

// MMIORead dispatches a load at a base-relative MMIO offset, the entry
// point the hosting emulator wires into its address map.
func (m *Machine) MMIORead(offset uint32, size int) uint32 {
	return m.dev.HandleRead(TK1_MMIO_BASE+offset, size)
}

// MMIOWrite dispatches a store at a base-relative MMIO offset.
func (m *Machine) MMIOWrite(offset uint32, val uint32, size int) {
	m.dev.HandleWrite(TK1_MMIO_BASE+offset, val, size)
}

// Bus exposes the system bus for the monitor and frontends.
func (m *Machine) Bus() *SystemBus { return m.bus }

// Device exposes the peripheral model.
func (m *Machine) Device() *TK1Device { return m.dev }

// CharDev exposes the attached character device.
func (m *Machine) CharDev() CharDevice { return m.chr }

// Snapshot returns the observable device state.
func (m *Machine) Snapshot() DeviceSnapshot { return m.dev.Snapshot() }

// Close detaches the character device.
func (m *Machine) Close() error {
	return m.chr.Close()
}
