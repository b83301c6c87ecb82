// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc40xx

import (
	"errors"
	"testing"
	"time"
)

func TestWait(t *testing.T) {
	n := 0
	err := wait(time.Second, func() bool {
		n++
		return n == 3
	})
	if err != nil {
		t.Fatalf("could not wait: %+v", err)
	}
	if n != 3 {
		t.Fatalf("invalid number of polls: got=%d, want=3", n)
	}

	start := time.Now()
	err = wait(5*time.Millisecond, func() bool { return false })
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("invalid error: %+v", err)
	}
	if d := time.Since(start); d < 5*time.Millisecond {
		t.Fatalf("wait returned too early: %v", d)
	}

	// the predicate is evaluated at least once.
	called := false
	err = wait(0, func() bool { called = true; return true })
	if err != nil || !called {
		t.Fatalf("invalid zero-timeout wait: called=%v, err=%+v", called, err)
	}
}
