// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc40xx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/eeprom/internal/mmap"
	"github.com/go-lpc/eeprom/lpc40xx/internal/regs"
)

// ErrRange is returned when an access runs past the end of the EEPROM.
var ErrRange = errors.New("lpc40xx: access out of EEPROM range")

type device interface {
	Initialize() error
	Read(data []byte, addr uint32) error
	Write(data []byte, addr uint32) error
	Program(addr uint32) error
	DumpRegisters(w io.Writer) error
}

var _ device = (*Device)(nil)

// Device is the EEPROM controller of a LPC40xx.
type Device struct {
	msg *log.Logger
	clk Clock
	cfg config
	mem *mmap.Handle // register window, when mapped by NewDevice

	err  error
	xbuf [4]byte

	regs struct {
		cmd    reg32
		addr   reg32
		wdata  reg32
		rdata  reg32
		wstate reg32
		clkdiv reg32
		pwrdwn reg32

		intStatus reg32
		intClr    reg32
	}
}

// New returns a device driving the EEPROM controller whose registers are
// accessed through rw.
// The clock must stay valid for the lifetime of the device.
func New(rw RegisterBlock, clk Clock, opts ...Option) *Device {
	dev := &Device{
		clk: clk,
		cfg: newConfig(),
	}
	for _, opt := range opts {
		opt(&dev.cfg)
	}
	dev.msg = dev.cfg.msg
	dev.bind(rw)
	return dev
}

// NewDevice maps the EEPROM controller registers from the memory device
// devmem (usually /dev/mem) and returns a device driving them.
func NewDevice(devmem string, clk Clock, opts ...Option) (*Device, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	mem, err := mmap.Open(devmem, cfg.base, regs.EEPROM_SPAN)
	if err != nil {
		return nil, fmt.Errorf("lpc40xx: could not map EEPROM registers: %w", err)
	}

	dev := New(mem, clk, opts...)
	dev.mem = mem
	return dev, nil
}

// Close releases the resources held by the device.
func (dev *Device) Close() error {
	if dev.mem == nil {
		return nil
	}

	err := dev.mem.Close()
	dev.mem = nil
	if err != nil {
		return fmt.Errorf("lpc40xx: could not close register window: %w", err)
	}
	return nil
}

func (dev *Device) bind(rw RegisterBlock) {
	dev.regs.cmd = newReg32(dev, rw, regs.EEPROM_CMD)
	dev.regs.addr = newReg32(dev, rw, regs.EEPROM_ADDR)
	dev.regs.wdata = newReg32(dev, rw, regs.EEPROM_WDATA)
	dev.regs.rdata = newReg32(dev, rw, regs.EEPROM_RDATA)
	dev.regs.wstate = newReg32(dev, rw, regs.EEPROM_WSTATE)
	dev.regs.clkdiv = newReg32(dev, rw, regs.EEPROM_CLKDIV)
	dev.regs.pwrdwn = newReg32(dev, rw, regs.EEPROM_PWRDWN)

	dev.regs.intStatus = newReg32(dev, rw, regs.EEPROM_INT_STATUS)
	dev.regs.intClr = newReg32(dev, rw, regs.EEPROM_INT_CLR_STATUS)
}

func (dev *Device) readU32(r io.ReaderAt, off int64) uint32 {
	if dev.err != nil {
		return 0
	}
	_, dev.err = r.ReadAt(dev.xbuf[:4], off)
	if dev.err != nil {
		dev.err = fmt.Errorf("lpc40xx: could not read register 0x%x: %w", off, dev.err)
		return 0
	}
	return binary.LittleEndian.Uint32(dev.xbuf[:4])
}

func (dev *Device) writeU32(w io.WriterAt, off int64, v uint32) {
	if dev.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(dev.xbuf[:4], v)
	_, dev.err = w.WriteAt(dev.xbuf[:4], off)
	if dev.err != nil {
		dev.err = fmt.Errorf("lpc40xx: could not write register 0x%x: %w", off, dev.err)
		return
	}
}

// Initialize powers the EEPROM controller on and configures its timings
// from the current system clock.
// Initialize must be called once, before any Read or Write.
func (dev *Device) Initialize() error {
	hz := dev.clk.SystemFrequency()
	if hz == 0 {
		return fmt.Errorf("lpc40xx: invalid system clock frequency (0 Hz)")
	}

	var (
		wstate = WaitStates(hz)
		clkdiv = ClockDivider(hz)
	)

	dev.regs.pwrdwn.w(0)
	dev.regs.wstate.w(wstate)
	dev.regs.clkdiv.w(clkdiv)

	if dev.err != nil {
		return fmt.Errorf("lpc40xx: could not initialize EEPROM controller: %w", dev.err)
	}

	dev.msg.Printf("clock=%d Hz, wstate=0x%06x, clkdiv=%d", hz, wstate, clkdiv)
	return nil
}

// Write writes data to the EEPROM, starting at addr.
//
// addr is truncated to a multiple of 4 within the EEPROM address range.
// Data is streamed 32 bits at a time into the page buffer, which is
// programmed each time it fills up and once more at the end, so all of data
// is in non-volatile storage when Write returns without error.
// A trailing partial word is merged with the current EEPROM content.
func (dev *Device) Write(data []byte, addr uint32) error {
	addr = Mask(addr)
	if int(addr)+len(data) > Size {
		return fmt.Errorf("lpc40xx: could not write %d bytes at 0x%03x: %w", len(data), addr, ErrRange)
	}

	var (
		page, off = split(addr)
		cur       = addr
		dirty     = false
	)

	for i := 0; i < len(data); i += 4 {
		cur = join(page, off)

		word, err := dev.word(data[i:], cur)
		if err != nil {
			return fmt.Errorf("lpc40xx: could not read back word at 0x%03x: %w", cur, err)
		}

		err = dev.write32(cur, word)
		if err != nil {
			return fmt.Errorf("lpc40xx: could not write word at 0x%03x: %w", cur, err)
		}
		dirty = true

		off += 4
		if off > regs.OFFSET_MASK {
			err = dev.Program(cur)
			if err != nil {
				return err
			}
			dirty = false
			page++
			off = 0
		}
	}

	if !dirty {
		return nil
	}
	return dev.Program(cur)
}

// word returns the next 32-bit word to write from p.
// When p holds less than 4 bytes, the missing ones are taken from the
// EEPROM at addr.
func (dev *Device) word(p []byte, addr uint32) (uint32, error) {
	if len(p) >= 4 {
		return binary.LittleEndian.Uint32(p), nil
	}

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], dev.read32(addr))
	if dev.err != nil {
		return 0, dev.err
	}
	copy(buf[:], p)
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (dev *Device) write32(addr, v uint32) error {
	dev.regs.addr.w(addr)
	dev.regs.cmd.w(regs.CMD_WRITE32)
	dev.regs.wdata.w(v)

	err := dev.poll(regs.SHIFT_RW_DONE)
	if err != nil {
		return err
	}

	dev.regs.intClr.w(regs.O_RW_DONE)
	return dev.err
}

// Program erases and programs the page holding addr with the content of
// the page buffer.
func (dev *Device) Program(addr uint32) error {
	addr = Mask(addr)
	page, _ := split(addr)

	dev.regs.addr.w(addr)
	dev.regs.cmd.w(regs.CMD_ERASE_PROGRAM)

	err := dev.poll(regs.SHIFT_PROG_DONE)
	if err != nil {
		return fmt.Errorf("lpc40xx: could not program page %d: %w", page, err)
	}

	dev.regs.intClr.w(regs.O_PROG_DONE)
	if dev.err != nil {
		return fmt.Errorf("lpc40xx: could not program page %d: %w", page, dev.err)
	}

	if dev.cfg.verbose {
		dev.msg.Printf("programmed page %d (addr=0x%03x)", page, addr)
	}
	return nil
}

// poll waits for the provided INT_STATUS bit to clear.
func (dev *Device) poll(bit uint) error {
	err := wait(dev.cfg.timeout, func() bool {
		v := dev.regs.intStatus.r()
		return dev.err != nil || (v>>bit)&1 == 0
	})
	if dev.err != nil {
		return dev.err
	}
	if err != nil {
		return fmt.Errorf("status bit %d still set after %v: %w", bit, dev.cfg.timeout, err)
	}
	return nil
}

// Read reads len(data) bytes from the EEPROM, starting at addr.
//
// addr is truncated to a multiple of 4 within the EEPROM address range.
func (dev *Device) Read(data []byte, addr uint32) error {
	addr = Mask(addr)
	if int(addr)+len(data) > Size {
		return fmt.Errorf("lpc40xx: could not read %d bytes at 0x%03x: %w", len(data), addr, ErrRange)
	}

	var buf [4]byte
	for i := 0; i < len(data); i += 4 {
		v := dev.read32(addr + uint32(i))
		if len(data)-i >= 4 {
			binary.LittleEndian.PutUint32(data[i:], v)
			continue
		}
		binary.LittleEndian.PutUint32(buf[:], v)
		copy(data[i:], buf[:])
	}

	if dev.err != nil {
		return fmt.Errorf("lpc40xx: could not read %d bytes at 0x%03x: %w", len(data), addr, dev.err)
	}
	return nil
}

func (dev *Device) read32(addr uint32) uint32 {
	dev.regs.addr.w(addr)
	dev.regs.cmd.w(regs.CMD_READ32)
	return dev.regs.rdata.r()
}

// ReadAt implements io.ReaderAt.
// off must be a multiple of 4.
func (dev *Device) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off%4 != 0 {
		return 0, fmt.Errorf("lpc40xx: invalid ReadAt offset %d", off)
	}
	if off >= Size {
		return 0, io.EOF
	}

	n := len(p)
	if off+int64(n) > Size {
		n = int(Size - off)
	}

	err := dev.Read(p[:n], uint32(off))
	if err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt.
// off must be a multiple of 4.
func (dev *Device) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off%4 != 0 {
		return 0, fmt.Errorf("lpc40xx: invalid WriteAt offset %d", off)
	}
	if off+int64(len(p)) > Size {
		return 0, fmt.Errorf("lpc40xx: could not write %d bytes at 0x%03x: %w", len(p), off, ErrRange)
	}

	err := dev.Write(p, uint32(off))
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// DumpRegisters writes the content of the controller registers to w.
func (dev *Device) DumpRegisters(w io.Writer) error {
	regs := &dev.regs

	fmt.Fprintf(w, "cmd=        0x%08x\n", regs.cmd.r())
	fmt.Fprintf(w, "addr=       0x%08x\n", regs.addr.r())
	fmt.Fprintf(w, "wdata=      0x%08x\n", regs.wdata.r())
	fmt.Fprintf(w, "rdata=      0x%08x\n", regs.rdata.r())
	fmt.Fprintf(w, "wstate=     0x%08x\n", regs.wstate.r())
	fmt.Fprintf(w, "clkdiv=     0x%08x\n", regs.clkdiv.r())
	fmt.Fprintf(w, "pwrdwn=     0x%08x\n", regs.pwrdwn.r())
	fmt.Fprintf(w, "int-status= 0x%08x\n", regs.intStatus.r())

	if dev.err != nil {
		return fmt.Errorf("lpc40xx: could not dump registers: %w", dev.err)
	}
	return nil
}

var (
	_ io.ReaderAt = (*Device)(nil)
	_ io.WriterAt = (*Device)(nil)
	_ io.Closer   = (*Device)(nil)
)
