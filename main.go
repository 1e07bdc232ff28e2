// main.go - Main entry point for the TKey Engine

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
	"time"
)

func boilerPlate() {
	fmt.Println("TKey Engine - Tillitis TK1 / MTA1-MKDF security token emulator")
	fmt.Println("https://github.com/tillitis/tkey-engine")
	fmt.Println("License: GPLv3 or later")
}

func usage() {
	fmt.Println("Usage: tkey-engine -machine tk1|mta1_mkdf -firmware <path> -fifo <chardev> [options]")
	fmt.Println()
	fmt.Println("  -machine <name>   board variant, tk1 (default) or mta1_mkdf")
	fmt.Println("  -cpu <type>       hart type, only picorv32 is accepted")
	fmt.Println("  -firmware <path>  firmware image loaded into ROM (required)")
	fmt.Println("  -fifo <chardev>   FIFO channel: stdio, pipe, null, serial:DEV[@BAUD] (required)")
	fmt.Println("  -gui              open the LED/status window")
	fmt.Println("  -wall-clock       run timers on the wall clock instead of the")
	fmt.Println("                    monitor-advanced virtual clock")
	fmt.Println("  -no-monitor       don't start the interactive monitor")
}

func main() {
	boilerPlate()

	cfg := MachineConfig{Machine: "tk1"}
	gui := false
	wallClock := false
	monitor := true

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-machine":
			i++
			if i >= len(args) {
				usage()
				os.Exit(1)
			}
			cfg.Machine = args[i]
		case "-cpu":
			i++
			if i >= len(args) {
				usage()
				os.Exit(1)
			}
			cfg.CPUType = args[i]
		case "-firmware":
			i++
			if i >= len(args) {
				usage()
				os.Exit(1)
			}
			cfg.FirmwarePath = args[i]
		case "-fifo":
			i++
			if i >= len(args) {
				usage()
				os.Exit(1)
			}
			cfg.FIFOChan = args[i]
		case "-gui":
			gui = true
		case "-wall-clock":
			wallClock = true
		case "-no-monitor":
			monitor = false
		case "-h", "-help", "--help":
			usage()
			os.Exit(0)
		default:
			fmt.Printf("Unknown option %q\n", args[i])
			usage()
			os.Exit(1)
		}
	}

	var clock Clock
	var vclock *VirtualClock
	if wallClock {
		clock = NewWallClock()
	} else {
		vclock = NewVirtualClock()
		clock = vclock
	}

	machine, err := NewMachine(cfg, clock, StderrLogger{})
	if err != nil {
		fmt.Printf("Failed to initialize machine: %v\n", err)
		os.Exit(1)
	}
	defer machine.Close()

	ledBackend := LED_BACKEND_HEADLESS
	if gui {
		ledBackend = LED_BACKEND_EBITEN
	}
	led, err := NewLEDOutput(ledBackend, machine.Snapshot)
	if err != nil {
		fmt.Printf("Failed to initialize LED frontend: %v\n", err)
		os.Exit(1)
	}
	if err := led.Start(); err != nil {
		fmt.Printf("Failed to start LED frontend: %v\n", err)
		os.Exit(1)
	}
	defer led.Close()

	if monitor {
		mon := NewMachineMonitor(machine, clock)
		mon.Run()
		return
	}

	if gui {
		// No monitor: the LED window is the session. Run until it closes.
		for led.IsStarted() {
			time.Sleep(200 * time.Millisecond)
		}
		return
	}

	fmt.Println("Nothing to do: no monitor and no GUI. See -help.")
	os.Exit(1)
}
