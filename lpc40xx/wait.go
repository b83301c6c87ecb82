// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc40xx

import (
	"errors"
	"time"
)

// ErrTimeout is returned when the EEPROM controller did not complete an
// operation in time.
var ErrTimeout = errors.New("lpc40xx: timeout")

// wait spins until done returns true or until timeout has elapsed.
func wait(timeout time.Duration, done func() bool) error {
	beg := time.Now()
	for {
		if done() {
			return nil
		}
		if time.Since(beg) >= timeout {
			return ErrTimeout
		}
	}
}
