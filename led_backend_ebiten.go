// led_backend_ebiten.go - Ebiten LED/status window backend

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

const (
	ledWindowW = 240
	ledWindowH = 160
	ledPanelH  = 96
)

// EbitenLEDOutput renders the token's RGB LED as a filled panel with a
// status line underneath, polling the device snapshot each frame.
type EbitenLEDOutput struct {
	mu      sync.Mutex
	running bool
	source  func() DeviceSnapshot
	frame   DeviceSnapshot
}

func NewEbitenLEDOutput(source func() DeviceSnapshot) *EbitenLEDOutput {
	return &EbitenLEDOutput{source: source}
}

func (eo *EbitenLEDOutput) Start() error {
	eo.mu.Lock()
	if eo.running {
		eo.mu.Unlock()
		return &LEDError{Operation: "start", Details: "already running"}
	}
	eo.running = true
	eo.mu.Unlock()

	ebiten.SetWindowSize(ledWindowW*2, ledWindowH*2)
	ebiten.SetWindowTitle("TKey Engine")
	ebiten.SetTPS(30)

	go func() {
		if err := ebiten.RunGame(eo); err != nil {
			fmt.Printf("LED window terminated: %v\n", err)
		}
		eo.mu.Lock()
		eo.running = false
		eo.mu.Unlock()
	}()
	return nil
}

func (eo *EbitenLEDOutput) Stop() error {
	eo.mu.Lock()
	eo.running = false
	eo.mu.Unlock()
	return nil
}

func (eo *EbitenLEDOutput) Close() error { return eo.Stop() }

func (eo *EbitenLEDOutput) IsStarted() bool {
	eo.mu.Lock()
	defer eo.mu.Unlock()
	return eo.running
}

// Update polls the device under its lock once per tick.
func (eo *EbitenLEDOutput) Update() error {
	eo.mu.Lock()
	defer eo.mu.Unlock()
	if !eo.running {
		return ebiten.Termination
	}
	eo.frame = eo.source()
	return nil
}

func (eo *EbitenLEDOutput) Draw(screen *ebiten.Image) {
	eo.mu.Lock()
	snap := eo.frame
	eo.mu.Unlock()

	screen.Fill(color.RGBA{0x10, 0x10, 0x10, 0xff})

	r, g, b := ledRGB(snap.LED)
	panel := color.RGBA{channel(r), channel(g), channel(b), 0xff}
	screen.SubImage(image.Rect(0, 0, ledWindowW, ledPanelH)).(*ebiten.Image).Fill(panel)

	mode := "firmware"
	if snap.AppMode {
		mode = "app"
	}
	timer := "stopped"
	if snap.TimerRunning {
		timer = "running"
	}
	wd := "off"
	if snap.WatchdogRunning {
		wd = "armed"
	}

	face := basicfont.Face7x13
	white := color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	text.Draw(screen, fmt.Sprintf("%s  mode: %s", snap.Variant, mode), face, 8, ledPanelH+18, white)
	text.Draw(screen, fmt.Sprintf("timer: %d (%s)", snap.Timer, timer), face, 8, ledPanelH+34, white)
	text.Draw(screen, fmt.Sprintf("watchdog: %s  rx: %d", wd, snap.RxLen), face, 8, ledPanelH+50, white)
}

func (eo *EbitenLEDOutput) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ledWindowW, ledWindowH
}

func channel(on bool) uint8 {
	if on {
		return 0xff
	}
	return 0x18
}
