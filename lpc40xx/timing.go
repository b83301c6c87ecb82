// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc40xx

import (
	"github.com/go-lpc/eeprom/lpc40xx/internal/regs"
)

// Clock reports the operating frequency of the micro-controller.
type Clock interface {
	// SystemFrequency returns the system clock rate, in Hz.
	SystemFrequency() uint32
}

// FixedClock is a Clock running at a constant rate, in Hz.
type FixedClock uint32

func (clk FixedClock) SystemFrequency() uint32 { return uint32(clk) }

// minimal duration of the internal phases of an EEPROM access, in ns.
const (
	phase1 = 35
	phase2 = 55
	phase3 = 15
)

// WaitStates returns the value of the WSTATE register for a system clock
// running at hz.
func WaitStates(hz uint32) uint32 {
	return waitState(phase3, hz)<<regs.SHIFT_WSTATE_PHASE3 |
		waitState(phase2, hz)<<regs.SHIFT_WSTATE_PHASE2 |
		waitState(phase1, hz)<<regs.SHIFT_WSTATE_PHASE1
}

// waitState returns the number of clock cycles covering ns nanoseconds,
// plus one. Lanes are 8-bit wide.
func waitState(ns, hz uint32) uint32 {
	n := uint64(ns)*uint64(hz)/1e9 + 1
	if n > 0xff {
		n = 0xff
	}
	return uint32(n)
}

// ClockDivider returns the value of the CLKDIV register for a system clock
// running at hz.
func ClockDivider(hz uint32) uint32 {
	return hz / regs.EEPROM_CLK
}
