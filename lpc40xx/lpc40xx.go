// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lpc40xx drives the on-chip EEPROM of LPC40xx micro-controllers.
//
// The EEPROM is only accessible 32 bits at a time, through a 64-byte page
// buffer that must be erased/programmed into the non-volatile cells once
// filled. Device hides that protocol behind byte-oriented Read and Write
// methods operating on the memory-mapped register block of the controller.
//
// Device is not safe for concurrent use: the register block is a single
// hardware resource and all accesses must be serialized by the caller.
package lpc40xx // import "github.com/go-lpc/eeprom/lpc40xx"
