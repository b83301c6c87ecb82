// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc40xx

import (
	"bytes"
	"fmt"

	"github.com/go-daq/tdaq"
)

// RunCtl exposes an EEPROM device to a TDAQ run-control.
//
// Besides the standard run-control commands, RunCtl handles:
//   - /eeprom-read:  body is (addr u32, n u32); the reply body holds the n bytes read,
//   - /eeprom-write: body is (addr u32) followed by the bytes to write.
type RunCtl struct {
	dev device
}

// NewRunCtl returns a run-control front-end for dev.
func NewRunCtl(dev *Device) *RunCtl {
	return &RunCtl{dev: dev}
}

func (rc *RunCtl) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	err := rc.dev.Initialize()
	if err != nil {
		ctx.Msg.Errorf("could not initialize EEPROM: %+v", err)
		return fmt.Errorf("could not initialize EEPROM: %w", err)
	}
	return nil
}

func (rc *RunCtl) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	return nil
}

func (rc *RunCtl) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	return nil
}

func (rc *RunCtl) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return nil
}

func (rc *RunCtl) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	return nil
}

func (rc *RunCtl) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

func (rc *RunCtl) OnRead(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /eeprom-read command...")
	if len(req.Body) < 8 {
		return fmt.Errorf("invalid /eeprom-read payload (len=%d)", len(req.Body))
	}

	dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
	addr := dec.ReadU32()
	n := dec.ReadU32()
	if n > Size {
		return fmt.Errorf("invalid /eeprom-read size %d", n)
	}

	buf := make([]byte, n)
	err := rc.dev.Read(buf, addr)
	if err != nil {
		ctx.Msg.Errorf("could not read %d bytes at 0x%03x: %+v", n, addr, err)
		return fmt.Errorf("could not read %d bytes at 0x%03x: %w", n, addr, err)
	}
	resp.Body = buf
	return nil
}

func (rc *RunCtl) OnWrite(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /eeprom-write command...")
	if len(req.Body) < 4 {
		return fmt.Errorf("invalid /eeprom-write payload (len=%d)", len(req.Body))
	}

	dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
	addr := dec.ReadU32()
	data := req.Body[4:]

	err := rc.dev.Write(data, addr)
	if err != nil {
		ctx.Msg.Errorf("could not write %d bytes at 0x%03x: %+v", len(data), addr, err)
		return fmt.Errorf("could not write %d bytes at 0x%03x: %w", len(data), addr, err)
	}
	ctx.Msg.Infof("wrote %d bytes at 0x%03x", len(data), addr)
	return nil
}
