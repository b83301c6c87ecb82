// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// eeprom-tdaq starts a TDAQ server exposing the EEPROM of a LPC40xx board
// to a run-control.
//
// The EEPROM controller is configured from the environment:
//
//   - LPC_DEVMEM: path to the memory device (default: /dev/mem),
//   - LPC_CLOCK:  CPU clock frequency in Hz (default: 96000000),
//   - LPC_SIM:    use a simulated EEPROM controller when set to 1.
package main // import "github.com/go-lpc/eeprom/cmd/eeprom-tdaq"

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/eeprom"
	"github.com/go-lpc/eeprom/internal/ctl"
	"github.com/go-lpc/eeprom/lpc40xx"
)

func main() {
	cmd := flags.New()

	log.SetPrefix("eeprom-tdaq: ")
	log.SetFlags(0)

	version, _ := eeprom.Version()
	log.Printf("version: %s", version)

	dev, err := newDevice()
	if err != nil {
		log.Panicf("could not open EEPROM device: %+v", err)
	}
	defer dev.Close()

	rc := lpc40xx.NewRunCtl(dev)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", rc.OnConfig)
	srv.CmdHandle("/init", rc.OnInit)
	srv.CmdHandle("/reset", rc.OnReset)
	srv.CmdHandle("/start", rc.OnStart)
	srv.CmdHandle("/stop", rc.OnStop)
	srv.CmdHandle("/quit", rc.OnQuit)

	srv.CmdHandle("/eeprom-read", rc.OnRead)
	srv.CmdHandle("/eeprom-write", rc.OnWrite)

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

func newDevice() (*lpc40xx.Device, error) {
	devmem := os.Getenv("LPC_DEVMEM")
	if devmem == "" {
		devmem = "/dev/mem"
	}

	hz := uint64(96_000_000)
	if v := os.Getenv("LPC_CLOCK"); v != "" {
		var err error
		hz, err = strconv.ParseUint(v, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("could not parse $LPC_CLOCK=%q: %w", v, err)
		}
	}

	sim := os.Getenv("LPC_SIM") == "1"

	return ctl.Open(devmem, sim, lpc40xx.FixedClock(hz))
}
