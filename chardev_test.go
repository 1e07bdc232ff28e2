package main

import (
	"bytes"
	"testing"
)

func TestOpenCharDevice_Resolution(t *testing.T) {
	if _, err := OpenCharDevice(""); err == nil {
		t.Fatalf("expected error for empty channel name")
	}
	if _, err := OpenCharDevice("bogus"); err == nil {
		t.Fatalf("expected error for unknown channel name")
	}

	chr, err := OpenCharDevice("null")
	if err != nil {
		t.Fatalf("null chardev: %v", err)
	}
	if _, ok := chr.(*NullCharDevice); !ok {
		t.Fatalf("expected NullCharDevice, got %T", chr)
	}

	chr, err = OpenCharDevice("pipe")
	if err != nil {
		t.Fatalf("pipe chardev: %v", err)
	}
	if _, ok := chr.(*PipeCharDevice); !ok {
		t.Fatalf("expected PipeCharDevice, got %T", chr)
	}
}

func TestOpenCharDevice_SerialBadBaud(t *testing.T) {
	if _, err := OpenCharDevice("serial:/dev/ttyUSB0@fast"); err == nil {
		t.Fatalf("expected error for non-numeric baud rate")
	}
}

func TestNullCharDevice_Discards(t *testing.T) {
	var n NullCharDevice
	if wrote, err := n.Write([]byte("gone")); err != nil || wrote != 4 {
		t.Fatalf("expected discard write of 4 bytes, got %d %v", wrote, err)
	}
}

func TestPipeCharDevice_HonorsCapacity(t *testing.T) {
	p := NewPipeCharDevice()

	var received []byte
	capacity := 3
	p.SetHandlers(CharDevHandlers{
		CanReceive: func() int { return capacity - len(received) },
		Receive:    func(b []byte) { received = append(received, b...) },
	})

	p.HostWrite([]byte{1, 2, 3, 4, 5})
	if !bytes.Equal(received, []byte{1, 2, 3}) {
		t.Fatalf("expected delivery capped at capacity, got % x", received)
	}
	if got := p.Pending(); got != 2 {
		t.Fatalf("expected 2 pending bytes, got %d", got)
	}

	capacity = 5
	p.AcceptInput()
	if !bytes.Equal(received, []byte{1, 2, 3, 4, 5}) {
		t.Fatalf("expected full delivery after AcceptInput, got % x", received)
	}
	if got := p.Pending(); got != 0 {
		t.Fatalf("expected nothing pending, got %d", got)
	}
}

func TestPipeCharDevice_TxRoundtrip(t *testing.T) {
	p := NewPipeCharDevice()
	p.Write([]byte{0xde, 0xad})
	p.Write([]byte{0xbe, 0xef})
	if got := p.HostRead(); !bytes.Equal(got, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Fatalf("expected tx accumulation, got % x", got)
	}
	if got := p.HostRead(); len(got) != 0 {
		t.Fatalf("expected drained tx buffer, got % x", got)
	}
}

func TestPipeCharDevice_NoHandlersQueues(t *testing.T) {
	p := NewPipeCharDevice()
	p.HostWrite([]byte{1, 2, 3})
	if got := p.Pending(); got != 3 {
		t.Fatalf("expected bytes to queue without handlers, got %d", got)
	}
}
