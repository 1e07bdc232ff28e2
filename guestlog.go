// guestlog.go - Guest-error log sink

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// GuestLogger receives guest-error diagnostics: accesses the device
// rejected, FIFO overruns, watchdog resets. Guest errors are never
// fatal; they exist so firmware authors can see what their code did.
type GuestLogger interface {
	Logf(format string, args ...any)
}

// StderrLogger writes guest errors to the host's stderr, one per line.
type StderrLogger struct{}

func (StderrLogger) Logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// CaptureLogger buffers guest errors for inspection. Used by tests.
type CaptureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *CaptureLogger) Logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of everything logged so far.
func (l *CaptureLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Contains reports whether any logged line contains substr.
func (l *CaptureLogger) Contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// Len returns the number of logged lines.
func (l *CaptureLogger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}
