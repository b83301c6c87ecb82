// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc40xx

import (
	"log"
	"os"
	"time"

	"github.com/go-lpc/eeprom/lpc40xx/internal/regs"
)

const (
	// DefaultTimeout is the maximum time a write or a page program may take.
	DefaultTimeout = 20 * time.Millisecond
)

type config struct {
	msg     *log.Logger
	timeout time.Duration
	base    int64
	verbose bool
}

func newConfig() config {
	return config{
		msg:     log.New(os.Stdout, "lpc40xx: ", 0),
		timeout: DefaultTimeout,
		base:    regs.EEPROM_BASE,
	}
}

// Option configures a Device.
type Option func(cfg *config)

// WithTimeout sets the maximum time to wait for the completion of a word
// write or of a page program.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = timeout
	}
}

// WithLogger sets the logger used by the device.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithVerbose enables the logging of every page program.
func WithVerbose(v bool) Option {
	return func(cfg *config) {
		cfg.verbose = v
	}
}

// WithBase sets the physical address of the register block, when mapped
// from a memory device with NewDevice.
func WithBase(base int64) Option {
	return func(cfg *config) {
		cfg.base = base
	}
}
