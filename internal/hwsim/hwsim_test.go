// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hwsim

import (
	"encoding/binary"
	"testing"
)

func wr(t *testing.T, blk *Block, off int64, v uint32) {
	t.Helper()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := blk.WriteAt(buf[:], off)
	if err != nil {
		t.Fatalf("could not write register 0x%x: %+v", off, err)
	}
}

func rd(t *testing.T, blk *Block, off int64) uint32 {
	t.Helper()
	var buf [4]byte
	_, err := blk.ReadAt(buf[:], off)
	if err != nil {
		t.Fatalf("could not read register 0x%x: %+v", off, err)
	}
	return binary.LittleEndian.Uint32(buf[:])
}

func TestWriteProgramRead(t *testing.T) {
	blk := New()
	blk.SetLatency(2)

	wr(t, blk, regADDR, 0x104)
	wr(t, blk, regCMD, cmdWrite32)
	wr(t, blk, regWDATA, 0xdeadbeef)

	for i, want := range []uint32{1 << BitRW, 1 << BitRW, 0} {
		if got := rd(t, blk, regINTStatus) & (1 << BitRW); got != want {
			t.Fatalf("poll[%d]: invalid status: got=0x%x, want=0x%x", i, got, want)
		}
	}

	if got, want := blk.Mem()[0x104], byte(0xff); got != want {
		t.Fatalf("page buffer leaked before program: got=0x%x, want=0x%x", got, want)
	}

	wr(t, blk, regCMD, cmdEraseProgram)
	if got := rd(t, blk, regINTStatus) & (1 << BitProg); got == 0 {
		t.Fatalf("program status bit not raised")
	}

	wr(t, blk, regADDR, 0x104)
	wr(t, blk, regCMD, cmdRead32)
	if got, want := rd(t, blk, regRDATA), uint32(0xdeadbeef); got != want {
		t.Fatalf("invalid read-back: got=0x%x, want=0x%x", got, want)
	}

	// only the latched word is programmed.
	mem := blk.Mem()
	if got, want := mem[0x100], byte(0xff); got != want {
		t.Fatalf("invalid untouched byte: got=0x%x, want=0x%x", got, want)
	}

	if got, want := len(blk.Programs()), 1; got != want {
		t.Fatalf("invalid number of programs: got=%d, want=%d", got, want)
	}
}

func TestStick(t *testing.T) {
	blk := New()
	blk.Stick(BitProg)
	for i := 0; i < 10; i++ {
		if got := rd(t, blk, regINTStatus); got&(1<<BitProg) == 0 {
			t.Fatalf("poll[%d]: stuck bit cleared", i)
		}
	}
	wr(t, blk, regINTClrStatus, 1<<BitProg)
	if got := rd(t, blk, regINTStatus); got&(1<<BitProg) == 0 {
		t.Fatalf("stuck bit cleared by INT_CLR_STATUS")
	}
	blk.Unstick(BitProg)
	if got := rd(t, blk, regINTStatus); got != 0 {
		t.Fatalf("invalid status: got=0x%x", got)
	}
	if got, want := blk.Polls(), 12; got != want {
		t.Fatalf("invalid polls: got=%d, want=%d", got, want)
	}
}

func TestPowerDown(t *testing.T) {
	blk := New()
	blk.PowerDown()

	wr(t, blk, regADDR, 0)
	wr(t, blk, regCMD, cmdWrite32)
	wr(t, blk, regWDATA, 0x01020304)
	wr(t, blk, regCMD, cmdEraseProgram)
	if got, want := blk.Mem()[0], byte(0xff); got != want {
		t.Fatalf("powered-down block was programmed: got=0x%x", got)
	}

	wr(t, blk, regPWRDWN, 0)
	if got := blk.Reg(regPWRDWN); got != 0 {
		t.Fatalf("could not power on block")
	}
}

func TestInvalidAccess(t *testing.T) {
	blk := New()
	for _, tc := range []struct {
		name string
		off  int64
		n    int
	}{
		{"negative", -4, 4},
		{"out-of-span", span, 4},
		{"unaligned-offset", 2, 4},
		{"unaligned-size", 0, 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, tc.n)
			if _, err := blk.ReadAt(buf, tc.off); err == nil {
				t.Fatalf("expected a read error")
			}
			if _, err := blk.WriteAt(buf, tc.off); err == nil {
				t.Fatalf("expected a write error")
			}
		})
	}
}
