// debug_monitor.go - Interactive machine monitor

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
)

// MachineMonitor is a small interactive monitor over the live machine:
// peek and poke the bus, advance virtual time, inject FIFO bytes and
// run Lua scripts. It stands in for the emulated hart during firmware
// register-layout work.
type MachineMonitor struct {
	machine *Machine
	vclock  *VirtualClock   // nil when the machine runs on the wall clock
	pipe    *PipeCharDevice // nil unless the fifo backend is the pipe
	out     io.Writer
	quit    bool
}

func NewMachineMonitor(m *Machine, clock Clock) *MachineMonitor {
	mon := &MachineMonitor{
		machine: m,
		out:     os.Stdout,
	}
	if vc, ok := clock.(*VirtualClock); ok {
		mon.vclock = vc
	}
	if p, ok := m.CharDev().(*PipeCharDevice); ok {
		mon.pipe = p
	}
	return mon
}

// Run reads commands until quit or EOF.
func (mon *MachineMonitor) Run() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Fprintf(mon.out, "%s monitor, type help for commands\n", mon.machine.profile.Desc)

	for !mon.quit {
		input, err := line.Prompt("(tkey) ")
		if err == liner.ErrPromptAborted {
			continue
		}
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if err := mon.Execute(input); err != nil {
			fmt.Fprintf(mon.out, "error: %v\n", err)
		}
	}
}

// Execute runs one monitor command line.
func (mon *MachineMonitor) Execute(input string) error {
	args := strings.Fields(input)
	cmd, args := args[0], args[1:]

	switch cmd {
	case "help", "?":
		mon.printHelp()
		return nil

	case "rd":
		addr, err := monArg(args, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(mon.out, "0x%08x: 0x%08x\n", addr, mon.machine.Bus().Read32(addr))
		return nil

	case "wr":
		addr, err := monArg(args, 0)
		if err != nil {
			return err
		}
		val, err := monArg(args, 1)
		if err != nil {
			return err
		}
		mon.machine.Bus().Write32(addr, val)
		return nil

	case "rb":
		addr, err := monArg(args, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(mon.out, "0x%08x: 0x%02x\n", addr, mon.machine.Bus().Read8(addr))
		return nil

	case "wb":
		addr, err := monArg(args, 0)
		if err != nil {
			return err
		}
		val, err := monArg(args, 1)
		if err != nil {
			return err
		}
		mon.machine.Bus().Write8(addr, uint8(val))
		return nil

	case "adv":
		ns, err := monArg(args, 0)
		if err != nil {
			return err
		}
		return mon.advance(int64(ns))

	case "tick":
		n, err := monArg(args, 0)
		if err != nil {
			return err
		}
		snap := mon.machine.Snapshot()
		interval := int64(NANOS_PER_SECOND / TK1_CLOCK_FREQ)
		if snap.TimerPrescaler > 0 {
			interval = int64(snap.TimerPrescaler) * NANOS_PER_SECOND / TK1_CLOCK_FREQ
		}
		return mon.advance(int64(n) * interval)

	case "state":
		mon.printState()
		return nil

	case "fifo":
		if mon.pipe == nil {
			return fmt.Errorf("fifo injection needs the pipe chardev (-fifo pipe)")
		}
		if len(args) == 0 {
			return fmt.Errorf("usage: fifo <byte> [byte ...]")
		}
		bytes := make([]byte, len(args))
		for i, a := range args {
			v, err := parseNum(a)
			if err != nil || v > 0xff {
				return fmt.Errorf("bad byte %q", a)
			}
			bytes[i] = byte(v)
		}
		mon.pipe.HostWrite(bytes)
		return nil

	case "drain":
		if mon.pipe == nil {
			return fmt.Errorf("drain needs the pipe chardev (-fifo pipe)")
		}
		out := mon.pipe.HostRead()
		if len(out) == 0 {
			fmt.Fprintf(mon.out, "no tx bytes\n")
			return nil
		}
		fmt.Fprintf(mon.out, "tx % x\n", out)
		return nil

	case "script":
		if len(args) != 1 {
			return fmt.Errorf("usage: script <file.lua>")
		}
		return mon.RunScript(args[0])

	case "reset":
		mon.machine.Device().Reset()
		return nil

	case "quit", "q", "exit":
		mon.quit = true
		return nil
	}

	return fmt.Errorf("unknown command %q, try help", cmd)
}

func (mon *MachineMonitor) advance(ns int64) error {
	if mon.vclock == nil {
		return fmt.Errorf("machine runs on the wall clock, nothing to advance")
	}
	if ns < 0 {
		return fmt.Errorf("cannot advance backwards")
	}
	mon.vclock.Advance(ns)
	return nil
}

func (mon *MachineMonitor) printState() {
	s := mon.machine.Snapshot()
	mode := "firmware"
	if s.AppMode {
		mode = "app"
	}
	r, g, b := ledRGB(s.LED)
	fmt.Fprintf(mon.out, "machine:  %s (%s mode)\n", s.Variant, mode)
	fmt.Fprintf(mon.out, "led:      r=%v g=%v b=%v (0x%x)\n", r, g, b, s.LED)
	fmt.Fprintf(mon.out, "app:      addr=0x%08x size=0x%x\n", s.AppAddr, s.AppSize)
	fmt.Fprintf(mon.out, "blake2s:  0x%08x\n", s.Blake2s)
	fmt.Fprintf(mon.out, "cdi:      %08x %08x %08x %08x %08x %08x %08x %08x\n",
		s.CDI[0], s.CDI[1], s.CDI[2], s.CDI[3], s.CDI[4], s.CDI[5], s.CDI[6], s.CDI[7])
	fmt.Fprintf(mon.out, "timer:    %d/%d prescaler=%d running=%v\n",
		s.Timer, s.TimerInitial, s.TimerPrescaler, s.TimerRunning)
	fmt.Fprintf(mon.out, "watchdog: initial=0x%x running=%v\n", s.WatchdogInitial, s.WatchdogRunning)
	fmt.Fprintf(mon.out, "fifo rx:  %d bytes buffered\n", s.RxLen)
	if mon.vclock != nil {
		fmt.Fprintf(mon.out, "clock:    %d ns virtual\n", mon.vclock.Now())
	}
}

func (mon *MachineMonitor) printHelp() {
	fmt.Fprint(mon.out, `commands:
  rd <addr>          32-bit bus read
  wr <addr> <val>    32-bit bus write
  rb <addr>          8-bit bus read (FW RAM, ROM, RAM)
  wb <addr> <val>    8-bit bus write
  adv <ns>           advance the virtual clock
  tick <n>           advance n timer periods at the current prescaler
  state              dump observable device state
  fifo <b> [b ...]   inject bytes on the host side of the FIFO
  drain              print bytes the guest transmitted
  script <file.lua>  run a Lua script against the machine
  reset              watchdog-style device reset
  quit               leave the monitor
numbers accept 0x prefixes; addresses are absolute physical addresses
`)
}

func monArg(args []string, i int) (uint32, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument")
	}
	return parseNum(args[i])
}

func parseNum(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return uint32(v), nil
}
