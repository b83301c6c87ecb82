// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc40xx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-daq/tdaq"
	tlog "github.com/go-daq/tdaq/log"
	"github.com/go-lpc/eeprom/internal/hwsim"
	"github.com/go-lpc/eeprom/lpc40xx/internal/regs"
)

func newTestContext() tdaq.Context {
	return tdaq.Context{
		Ctx: context.Background(),
		Msg: tlog.NewMsgStream("eeprom", tlog.LvlError, io.Discard),
	}
}

func encode(t *testing.T, vs ...uint32) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)
	for _, v := range vs {
		enc.WriteU32(v)
	}
	return buf.Bytes()
}

func TestRunCtl(t *testing.T) {
	blk := hwsim.New()
	blk.PowerDown()

	var (
		ctx = newTestContext()
		dev = New(blk, clk96MHz,
			WithLogger(log.New(io.Discard, "", 0)),
			WithTimeout(2*time.Millisecond),
		)
		rc = NewRunCtl(dev)
	)

	for _, tc := range []struct {
		name string
		h    func(tdaq.Context, *tdaq.Frame, tdaq.Frame) error
	}{
		{"/config", rc.OnConfig},
		{"/init", rc.OnInit},
		{"/reset", rc.OnReset},
		{"/start", rc.OnStart},
		{"/stop", rc.OnStop},
		{"/quit", rc.OnQuit},
	} {
		var resp tdaq.Frame
		err := tc.h(ctx, &resp, tdaq.Frame{})
		if err != nil {
			t.Fatalf("could not run %s: %+v", tc.name, err)
		}
	}

	if blk.Reg(regs.EEPROM_PWRDWN) != 0 {
		t.Fatalf("/config did not power the EEPROM on")
	}

	want := []byte("run-control")
	var resp tdaq.Frame
	err := rc.OnWrite(ctx, &resp, tdaq.Frame{
		Body: append(encode(t, 0x200), want...),
	})
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}

	err = rc.OnRead(ctx, &resp, tdaq.Frame{Body: encode(t, 0x200, uint32(len(want)))})
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if !bytes.Equal(resp.Body, want) {
		t.Fatalf("invalid read-back: got=%q, want=%q", resp.Body, want)
	}

	for _, tc := range []struct {
		name string
		h    func(tdaq.Context, *tdaq.Frame, tdaq.Frame) error
		body []byte
		want error
	}{
		{"read-short", rc.OnRead, encode(t, 0x200), nil},
		{"read-too-big", rc.OnRead, encode(t, 0, Size+1), nil},
		{"read-range", rc.OnRead, encode(t, 0xffc, 8), ErrRange},
		{"write-short", rc.OnWrite, []byte{1, 2}, nil},
		{"write-range", rc.OnWrite, append(encode(t, 0xffc), 1, 2, 3, 4, 5), ErrRange},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var resp tdaq.Frame
			err := tc.h(ctx, &resp, tdaq.Frame{Body: tc.body})
			if err == nil {
				t.Fatalf("expected an error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("invalid error: got=%+v, want=%v", err, tc.want)
			}
		})
	}

	blk.Stick(hwsim.BitRW)
	err = rc.OnWrite(ctx, &resp, tdaq.Frame{Body: append(encode(t, 0x200), want...)})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("invalid timeout error: %+v", err)
	}
}
