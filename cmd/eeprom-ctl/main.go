// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// eeprom-ctl runs a single command against the EEPROM of a LPC40xx board.
//
// Usage: eeprom-ctl [OPTIONS] COMMAND [ARGS...]
//
// Example:
//
//  $> eeprom-ctl write 0x40 deadbeef
//  $> eeprom-ctl read 0x40 4
//  00000000  de ad be ef                                       |....|
//  $> eeprom-ctl -db=lpc db-save board-42 0x0 4096
package main // import "github.com/go-lpc/eeprom/cmd/eeprom-ctl"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-lpc/eeprom/imgdb"
	"github.com/go-lpc/eeprom/internal/ctl"
	"github.com/go-lpc/eeprom/lpc40xx"
)

func main() {
	log.SetPrefix("eeprom-ctl: ")
	log.SetFlags(0)

	var (
		devmem  = flag.String("devmem", "/dev/mem", "path to the memory device")
		sim     = flag.Bool("sim", false, "use a simulated EEPROM controller")
		hz      = flag.Uint("clk", 96_000_000, "CPU clock frequency (Hz)")
		timeout = flag.Duration("timeout", lpc40xx.DefaultTimeout, "timeout for EEPROM operations")
		verbose = flag.Bool("v", false, "enable verbose mode")
		dbname  = flag.String("db", "", "name of the EEPROM images database")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `eeprom-ctl runs a single command against the EEPROM of a LPC40xx board.

Usage: eeprom-ctl [OPTIONS] COMMAND [ARGS...]

`)
		ctl.Usage(os.Stderr)
		fmt.Fprintf(os.Stderr, "\noptions:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing command")
	}

	err := run(os.Stdout, *devmem, *sim, uint32(*hz), *timeout, *verbose, *dbname, flag.Args())
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(o io.Writer, devmem string, sim bool, hz uint32, timeout time.Duration, verbose bool, dbname string, args []string) error {
	dev, err := ctl.Open(devmem, sim, lpc40xx.FixedClock(hz),
		lpc40xx.WithTimeout(timeout),
		lpc40xx.WithVerbose(verbose),
		lpc40xx.WithLogger(log.New(o, "lpc40xx: ", 0)),
	)
	if err != nil {
		return fmt.Errorf("could not open EEPROM device: %w", err)
	}
	defer dev.Close()

	var db *imgdb.DB
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	c := ctl.Ctl{
		Dev: dev,
		Out: o,
		DB: func() (ctl.ImageStore, error) {
			if dbname == "" {
				return nil, fmt.Errorf("no images db name (use -db)")
			}
			var err error
			db, err = imgdb.Open(dbname)
			if err != nil {
				return nil, err
			}
			return db, nil
		},
	}

	// a freshly mapped controller needs its clock configuration.
	if args[0] != "init" && args[0] != "dump" && args[0] != "help" {
		err = dev.Initialize()
		if err != nil {
			return fmt.Errorf("could not initialize EEPROM: %w", err)
		}
	}

	err = c.Exec(context.Background(), args)
	if err != nil {
		return fmt.Errorf("could not run %q: %w", args[0], err)
	}

	return dev.Close()
}
