// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// eeprom-srv serves the EEPROM of a LPC40xx board over TCP.
//
// Requests are JSON objects:
//
//	{"name": "initialize"}
//	{"name": "read",    "args": {"addr": 64, "n": 4}}
//	{"name": "write",   "args": {"addr": 64, "data": "3q2+7w=="}}
//	{"name": "program", "args": {"addr": 64}}
//	{"name": "dump"}
//	{"name": "quit"}
//
// Alert mails are sent when the EEPROM controller times out, to the
// recipients listed in $ALERT_MAIL_TGTS.
package main // import "github.com/go-lpc/eeprom/cmd/eeprom-srv"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/go-lpc/eeprom"
	"github.com/go-lpc/eeprom/internal/alert"
	"github.com/go-lpc/eeprom/internal/ctl"
	"github.com/go-lpc/eeprom/lpc40xx"
	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetPrefix("eeprom-srv: ")
	log.SetFlags(0)

	var (
		addr    = flag.String("addr", ":8877", "[ip]:port to listen on")
		devmem  = flag.String("devmem", "/dev/mem", "path to the memory device")
		sim     = flag.Bool("sim", false, "use a simulated EEPROM controller")
		hz      = flag.Uint("clk", 96_000_000, "CPU clock frequency (Hz)")
		timeout = flag.Duration("timeout", lpc40xx.DefaultTimeout, "timeout for EEPROM operations")
		verbose = flag.Bool("v", false, "enable verbose mode")
		doMon   = flag.Bool("pmon", false, "enable pmon monitoring")
		doFreq  = flag.Duration("freq", 1*time.Second, "pmon frequency")
		monOut  = flag.String("pmon-out", "eeprom-srv-pmon.log", "pmon output file")
	)

	flag.Parse()

	version, _ := eeprom.Version()
	log.Printf("version: %s", version)

	dev, err := ctl.Open(*devmem, *sim, lpc40xx.FixedClock(*hz),
		lpc40xx.WithTimeout(*timeout),
		lpc40xx.WithVerbose(*verbose),
	)
	if err != nil {
		log.Fatalf("could not open EEPROM device: %+v", err)
	}
	defer dev.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	mon := pmonConfig{
		enabled: *doMon,
		freq:    *doFreq,
		out:     *monOut,
	}

	err = run(*addr, dev, alert.FromEnv(), mon, stop, nil)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

type pmonConfig struct {
	enabled bool
	freq    time.Duration
	out     string
}

type alerter interface {
	Alert(subject, body string) error
}

// run serves dev on addr until the server fails or a signal is received
// on stop. ready, when not nil, receives the server address once it is
// listening.
func run(addr string, dev *lpc40xx.Device, mail alerter, mon pmonConfig, stop chan os.Signal, ready chan<- string) error {
	srv, err := lpc40xx.NewServer(addr, dev,
		lpc40xx.WithAlert(func(err error) {
			log.Printf("sending alert: %+v", err)
			err = mail.Alert(
				"EEPROM timeout",
				fmt.Sprintf("server: %s\nerror: %+v\n", addr, err),
			)
			if err != nil {
				log.Printf("%+v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("could not create EEPROM server: %w", err)
	}
	log.Printf("serving EEPROM on %q...", srv.Addr())

	if mon.enabled {
		p, err := pmon.Monitor(os.Getpid())
		if err != nil {
			_ = srv.Close()
			return fmt.Errorf("could not start monitoring eeprom-srv: %w", err)
		}
		f, err := os.Create(mon.out)
		if err != nil {
			_ = srv.Close()
			return fmt.Errorf("could not create pmon log file: %w", err)
		}
		p.W = f
		p.Freq = mon.freq

		// pmon monitors the current process until it exits.
		go func() {
			log.Printf("run pmon...")
			err := p.Run()
			if err != nil {
				log.Printf("could not run pmon: %+v", err)
			}
		}()
	}

	grp, ctx := errgroup.WithContext(context.Background())
	grp.Go(func() error {
		return srv.Serve()
	})
	grp.Go(func() error {
		select {
		case <-stop:
			log.Printf("received stop signal")
		case <-ctx.Done():
		}
		_ = srv.Close()
		return nil
	})

	if ready != nil {
		ready <- srv.Addr().String()
	}

	err = grp.Wait()
	if err != nil {
		return fmt.Errorf("could not serve EEPROM: %w", err)
	}
	return nil
}
