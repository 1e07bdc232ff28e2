// led_interface.go - Status LED frontend interface for the TKey Engine

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import "fmt"

// LEDError provides error context for frontend operations.
type LEDError struct {
	Operation string
	Details   string
	Err       error
}

func (e *LEDError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("led %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("led %s failed: %s", e.Operation, e.Details)
}

// LEDOutput is the minimal frontend surface: it polls the device
// snapshot it was given at construction and shows the RGB LED plus a
// little board status. Backends decide how.
type LEDOutput interface {
	Start() error
	Stop() error
	Close() error
	IsStarted() bool
}

// Predefined LED backend types.
const (
	LED_BACKEND_HEADLESS = iota
	LED_BACKEND_EBITEN
)

// NewLEDOutput creates a frontend polling the given snapshot source.
func NewLEDOutput(backend int, source func() DeviceSnapshot) (LEDOutput, error) {
	switch backend {
	case LED_BACKEND_HEADLESS:
		return NewHeadlessLEDOutput(source), nil
	case LED_BACKEND_EBITEN:
		return NewEbitenLEDOutput(source), nil
	}
	return nil, &LEDError{
		Operation: "backend creation",
		Details:   fmt.Sprintf("unknown backend type: %d", backend),
	}
}

// ledRGB splits the LED register into channel states. Bit 0 is blue,
// bit 1 green, bit 2 red.
func ledRGB(led uint32) (r, g, b bool) {
	return led&(1<<MMIO_TK1_LED_R_BIT) != 0,
		led&(1<<MMIO_TK1_LED_G_BIT) != 0,
		led&(1<<MMIO_TK1_LED_B_BIT) != 0
}
