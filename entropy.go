// entropy.go - Host entropy source behind the TRNG core

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"crypto/rand"
	"encoding/binary"
)

// EntropySource fills the TRNG_ENTROPY register. The interface is
// get-or-die: the read path has no way to report failure, so an
// implementation that cannot produce bits must panic.
type EntropySource interface {
	Word() uint32
}

// HostEntropy draws from the host's CSPRNG.
type HostEntropy struct{}

func (HostEntropy) Word() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("entropy: host random source failed: " + err.Error())
	}
	return binary.LittleEndian.Uint32(buf[:])
}

// FixedEntropy replays a fixed sequence, wrapping around. Tests use it
// to make TRNG reads deterministic.
type FixedEntropy struct {
	Words []uint32
	next  int
}

func (f *FixedEntropy) Word() uint32 {
	if len(f.Words) == 0 {
		return 0
	}
	w := f.Words[f.next%len(f.Words)]
	f.next++
	return w
}
