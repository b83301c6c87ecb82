// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc40xx

import (
	"github.com/go-lpc/eeprom/lpc40xx/internal/regs"
)

const (
	// Size is the size of the EEPROM, in bytes.
	Size = regs.SIZE
	// PageSize is the size of the EEPROM page buffer, in bytes.
	PageSize = regs.PAGE_SIZE
)

// Mask returns the 32-bit aligned EEPROM address corresponding to addr.
// Bits outside of the controller address range are dropped.
func Mask(addr uint32) uint32 {
	return addr & regs.ADDR_MASK
}

func split(addr uint32) (page, offset uint32) {
	return addr >> regs.PAGE_SHIFT, addr & regs.OFFSET_MASK
}

func join(page, offset uint32) uint32 {
	return page<<regs.PAGE_SHIFT + offset
}
