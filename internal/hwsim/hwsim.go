// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hwsim simulates the register block of the LPC40xx EEPROM
// controller.
//
// A Block behaves like the memory-mapped register window of the
// peripheral: 32-bit registers are accessed through ReadAt and WriteAt at
// their offsets from the block base, and writing to CMD or WDATA has the
// side effects of the real controller (page buffer latching, erase/program
// of a page, read-back into RDATA).
//
// While an operation runs, its status bit (26 for read/write, 28 for
// erase/program) reads as 1 in INT_STATUS. It reads as 0 again once the
// configured number of INT_STATUS polls has elapsed.
package hwsim // import "github.com/go-lpc/eeprom/internal/hwsim"

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Register offsets and bits, as laid out on the LPC40xx.
const (
	regCMD          = 0x000
	regADDR         = 0x004
	regWDATA        = 0x008
	regRDATA        = 0x00c
	regWSTATE       = 0x010
	regCLKDIV       = 0x014
	regPWRDWN       = 0x018
	regINTCLREnable = 0xfd8
	regINTSetEnable = 0xfdc
	regINTStatus    = 0xfe0
	regINTEnable    = 0xfe4
	regINTClrStatus = 0xfe8
	regINTSetStatus = 0xfec

	span = 0x0ff0

	cmdRead32       = 0b010
	cmdWrite32      = 0b101
	cmdEraseProgram = 0b110

	// BitRW is the read/write status bit of INT_STATUS.
	BitRW = 26
	// BitProg is the program status bit of INT_STATUS.
	BitProg = 28

	addrMask = 0b1111_1111_1100
	pageSize = 64

	// Size is the size of the simulated EEPROM, in bytes.
	Size = addrMask + 4
)

// Block is a simulated EEPROM register block.
// It is safe for concurrent use.
type Block struct {
	mu sync.Mutex

	cmd    uint32
	addr   uint32
	wdata  uint32
	rdata  uint32
	wstate uint32
	clkdiv uint32
	pwrdwn uint32
	intena uint32
	status uint32 // latched status bits

	latency int
	busy    map[uint32]int // status bit -> remaining polls
	stuck   uint32         // status bits that never clear

	mem   [Size]byte
	pbuf  [pageSize]byte
	dirty [pageSize / 4]bool

	progs []uint32 // addresses of erase/program commands
	polls int
}

// New returns a new simulated register block.
// The EEPROM content is in its erased state (all 0xff).
func New() *Block {
	blk := &Block{
		latency: 1,
		busy:    make(map[uint32]int),
	}
	for i := range blk.mem {
		blk.mem[i] = 0xff
	}
	return blk
}

// SetLatency sets the number of INT_STATUS polls during which the status
// bit of an operation stays raised.
func (blk *Block) SetLatency(n int) {
	blk.mu.Lock()
	defer blk.mu.Unlock()
	if n < 0 {
		n = 0
	}
	blk.latency = n
}

// Stick makes the provided INT_STATUS bit read as 1 forever.
func (blk *Block) Stick(bit uint) {
	blk.mu.Lock()
	defer blk.mu.Unlock()
	blk.stuck |= 1 << bit
}

// Unstick releases a bit previously stuck with Stick.
func (blk *Block) Unstick(bit uint) {
	blk.mu.Lock()
	defer blk.mu.Unlock()
	blk.stuck &^= 1 << bit
}

// PowerDown switches the simulated controller off.
// Commands are ignored until PWRDWN is cleared.
func (blk *Block) PowerDown() {
	blk.mu.Lock()
	defer blk.mu.Unlock()
	blk.pwrdwn = 1
}

// Programs returns the addresses of all the erase/program commands
// received so far.
func (blk *Block) Programs() []uint32 {
	blk.mu.Lock()
	defer blk.mu.Unlock()
	o := make([]uint32, len(blk.progs))
	copy(o, blk.progs)
	return o
}

// Polls returns the number of INT_STATUS reads so far.
func (blk *Block) Polls() int {
	blk.mu.Lock()
	defer blk.mu.Unlock()
	return blk.polls
}

// Reset clears the program log and the poll counter.
func (blk *Block) Reset() {
	blk.mu.Lock()
	defer blk.mu.Unlock()
	blk.progs = blk.progs[:0]
	blk.polls = 0
}

// Reg returns the current value of the register at offset off, without
// side effects.
func (blk *Block) Reg(off int64) uint32 {
	blk.mu.Lock()
	defer blk.mu.Unlock()
	v, _ := blk.peek(off)
	return v
}

// Mem returns a copy of the non-volatile content of the EEPROM.
func (blk *Block) Mem() []byte {
	blk.mu.Lock()
	defer blk.mu.Unlock()
	o := make([]byte, len(blk.mem))
	copy(o, blk.mem[:])
	return o
}

// Load sets the non-volatile content of the EEPROM at offset off.
func (blk *Block) Load(off int, p []byte) {
	blk.mu.Lock()
	defer blk.mu.Unlock()
	copy(blk.mem[off:], p)
}

// ReadAt implements io.ReaderAt over the register block.
// Accesses must be 32-bit wide and aligned.
func (blk *Block) ReadAt(p []byte, off int64) (int, error) {
	if err := check(p, off); err != nil {
		return 0, err
	}

	blk.mu.Lock()
	defer blk.mu.Unlock()

	for i := 0; i < len(p); i += 4 {
		v := blk.read(off + int64(i))
		binary.LittleEndian.PutUint32(p[i:i+4], v)
	}
	return len(p), nil
}

// WriteAt implements io.WriterAt over the register block.
// Accesses must be 32-bit wide and aligned.
func (blk *Block) WriteAt(p []byte, off int64) (int, error) {
	if err := check(p, off); err != nil {
		return 0, err
	}

	blk.mu.Lock()
	defer blk.mu.Unlock()

	for i := 0; i < len(p); i += 4 {
		blk.write(off+int64(i), binary.LittleEndian.Uint32(p[i:i+4]))
	}
	return len(p), nil
}

func check(p []byte, off int64) error {
	switch {
	case off < 0 || off+int64(len(p)) > span:
		return fmt.Errorf("hwsim: invalid register offset 0x%x (len=%d)", off, len(p))
	case off%4 != 0 || len(p)%4 != 0:
		return fmt.Errorf("hwsim: unaligned register access at 0x%x (len=%d)", off, len(p))
	}
	return nil
}

func (blk *Block) peek(off int64) (uint32, bool) {
	switch off {
	case regCMD:
		return blk.cmd, true
	case regADDR:
		return blk.addr, true
	case regWDATA:
		return blk.wdata, true
	case regRDATA:
		return blk.rdata, true
	case regWSTATE:
		return blk.wstate, true
	case regCLKDIV:
		return blk.clkdiv, true
	case regPWRDWN:
		return blk.pwrdwn, true
	case regINTEnable:
		return blk.intena, true
	case regINTStatus:
		v := blk.status | blk.stuck
		for bit, n := range blk.busy {
			if n > 0 {
				v |= 1 << bit
			}
		}
		return v, true
	}
	return 0, false
}

func (blk *Block) read(off int64) uint32 {
	v, _ := blk.peek(off)
	if off == regINTStatus {
		blk.polls++
		for bit, n := range blk.busy {
			if n > 0 {
				blk.busy[bit] = n - 1
			}
		}
	}
	return v
}

func (blk *Block) write(off int64, v uint32) {
	switch off {
	case regCMD:
		blk.cmd = v
		blk.exec()
	case regADDR:
		blk.addr = v
	case regWDATA:
		blk.wdata = v
		if blk.on() && blk.cmd&0x7 == cmdWrite32 {
			i := blk.addr & (pageSize - 1) &^ 3
			binary.LittleEndian.PutUint32(blk.pbuf[i:i+4], v)
			blk.dirty[i/4] = true
			blk.start(BitRW)
		}
	case regWSTATE:
		blk.wstate = v
	case regCLKDIV:
		blk.clkdiv = v
	case regPWRDWN:
		blk.pwrdwn = v & 1
	case regINTSetEnable:
		blk.intena |= v
	case regINTCLREnable:
		blk.intena &^= v
	case regINTClrStatus:
		blk.status &^= v
	case regINTSetStatus:
		blk.status |= v
	}
}

func (blk *Block) on() bool { return blk.pwrdwn == 0 }

func (blk *Block) start(bit uint32) {
	if blk.latency > 0 {
		blk.busy[bit] = blk.latency
	}
}

func (blk *Block) exec() {
	if !blk.on() {
		return
	}
	addr := blk.addr & addrMask
	switch blk.cmd & 0x7 {
	case cmdRead32:
		blk.rdata = binary.LittleEndian.Uint32(blk.mem[addr : addr+4])
		blk.start(BitRW)
	case cmdWrite32:
		// data is latched when WDATA is written.
	case cmdEraseProgram:
		page := addr &^ (pageSize - 1)
		for i, ok := range blk.dirty {
			if !ok {
				continue
			}
			copy(blk.mem[page+uint32(4*i):], blk.pbuf[4*i:4*i+4])
			blk.dirty[i] = false
		}
		blk.progs = append(blk.progs, blk.addr)
		blk.start(BitProg)
	}
}

var (
	_ io.ReaderAt = (*Block)(nil)
	_ io.WriterAt = (*Block)(nil)
)
