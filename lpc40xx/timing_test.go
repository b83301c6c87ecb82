// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc40xx

import (
	"testing"
)

func TestClockDivider(t *testing.T) {
	for _, tc := range []struct {
		hz   uint32
		want uint32
	}{
		{96_000_000, 256},
		{120_000_000, 320},
		{12_000_000, 32},
		{375_000, 1},
		{374_999, 0},
	} {
		if got := ClockDivider(tc.hz); got != tc.want {
			t.Fatalf("invalid clkdiv(%d): got=%d, want=%d", tc.hz, got, tc.want)
		}
	}
}

func TestWaitStates(t *testing.T) {
	for _, tc := range []struct {
		hz   uint32
		want uint32
	}{
		{96_000_000, 0x040602},
		{120_000_000, 0x050702},
		{12_000_000, 0x010101},
		{0, 0x010101},
		{0xffff_ffff, 0x97ed41},
	} {
		if got := WaitStates(tc.hz); got != tc.want {
			t.Fatalf("invalid wstate(%d): got=0x%06x, want=0x%06x", tc.hz, got, tc.want)
		}
	}
}

func TestWaitStatesMonotonic(t *testing.T) {
	lanes := func(v uint32) [3]uint32 {
		return [3]uint32{v & 0xff, (v >> 8) & 0xff, (v >> 16) & 0xff}
	}

	prev := lanes(WaitStates(0))
	for hz := uint32(1_000_000); hz < 4_000_000_000; hz += 7_919_000 {
		cur := lanes(WaitStates(hz))
		for i := range cur {
			if cur[i] < prev[i] {
				t.Fatalf("lane %d decreased at %d Hz: %d -> %d", i, hz, prev[i], cur[i])
			}
		}
		prev = cur
	}
}
