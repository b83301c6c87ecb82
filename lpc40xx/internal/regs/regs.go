// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs describes the register block of the LPC40xx EEPROM
// controller.
package regs // import "github.com/go-lpc/eeprom/lpc40xx/internal/regs"

// Location of the EEPROM controller in the LPC40xx memory map.
const (
	EEPROM_BASE = 0x0020_0080
	EEPROM_SPAN = 0x0ff0
)

// Register offsets, relative to EEPROM_BASE.
const (
	EEPROM_CMD            = 0x000
	EEPROM_ADDR           = 0x004
	EEPROM_WDATA          = 0x008
	EEPROM_RDATA          = 0x00c
	EEPROM_WSTATE         = 0x010
	EEPROM_CLKDIV         = 0x014
	EEPROM_PWRDWN         = 0x018
	EEPROM_INT_CLR_ENABLE = 0xfd8
	EEPROM_INT_SET_ENABLE = 0xfdc
	EEPROM_INT_STATUS     = 0xfe0
	EEPROM_INT_ENABLE     = 0xfe4
	EEPROM_INT_CLR_STATUS = 0xfe8
	EEPROM_INT_SET_STATUS = 0xfec
)

// Command codes written to EEPROM_CMD.
const (
	CMD_READ32        = 0b010
	CMD_WRITE32       = 0b101
	CMD_ERASE_PROGRAM = 0b110
)

// Bit positions in EEPROM_INT_STATUS and EEPROM_INT_CLR_STATUS.
const (
	SHIFT_RW_DONE   = 26
	SHIFT_PROG_DONE = 28

	O_RW_DONE   = 1 << SHIFT_RW_DONE
	O_PROG_DONE = 1 << SHIFT_PROG_DONE
)

// Wait-state lanes of EEPROM_WSTATE.
const (
	SHIFT_WSTATE_PHASE3 = 0
	SHIFT_WSTATE_PHASE2 = 8
	SHIFT_WSTATE_PHASE1 = 16
)

// Memory geometry.
const (
	ADDR_MASK   = 0b1111_1111_1100
	PAGE_SHIFT  = 6
	PAGE_SIZE   = 1 << PAGE_SHIFT
	OFFSET_MASK = PAGE_SIZE - 1
	SIZE        = ADDR_MASK + 4
	NUM_PAGES   = SIZE / PAGE_SIZE
)

// EEPROM_CLK is the frequency the EEPROM controller runs at, in Hz.
const EEPROM_CLK = 375_000
