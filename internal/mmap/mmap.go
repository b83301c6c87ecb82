// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap provides memory-mapped windows over register blocks.
package mmap // import "github.com/go-lpc/eeprom/internal/mmap"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

var (
	errClosed = errors.New("mmap: closed")
)

// Handle is a read/write window over a memory-mapped region.
type Handle struct {
	raw  []byte // whole mapping, page aligned
	data []byte // requested window
}

// Open maps span bytes of fname, starting at offset base.
// base does not need to be page aligned.
func Open(fname string, base, span int64) (*Handle, error) {
	if base < 0 || span <= 0 {
		return nil, fmt.Errorf("mmap: invalid window base=0x%x span=0x%x", base, span)
	}

	f, err := os.OpenFile(fname, os.O_RDWR|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not open %q: %w", fname, err)
	}
	// the mapping outlives the file descriptor.
	defer f.Close()

	var (
		pgsz  = int64(os.Getpagesize())
		start = base &^ (pgsz - 1)
		delta = base - start
	)

	raw, err := unix.Mmap(
		int(f.Fd()),
		start, int(delta+span),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not mmap %q [0x%x, 0x%x): %w", fname, base, base+span, err)
	}
	if int64(len(raw)) != delta+span {
		_ = unix.Munmap(raw)
		return nil, fmt.Errorf("mmap: invalid mmap'd data: %d", len(raw))
	}

	h := &Handle{raw: raw, data: raw[delta : delta+span]}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h, nil
}

// Close closes the mmap handle.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	raw := h.raw
	h.raw = nil
	h.data = nil
	runtime.SetFinalizer(h, nil)

	return unix.Munmap(raw)
}

// Len returns the length of the mapped window.
func (h *Handle) Len() int {
	return len(h.data)
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements the io.WriterAt interface.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid WriteAt offset %d", off)
	}
	n := copy(h.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)
