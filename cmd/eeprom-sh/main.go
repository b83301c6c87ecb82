// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// eeprom-sh is an interactive shell to inspect and modify the EEPROM of
// a LPC40xx board.
//
// Example:
//
//  $> eeprom-sh -sim
//  eeprom> init
//  eeprom> write 0x40 deadbeef
//  eeprom> read 0x40 4
//  00000000  de ad be ef                                       |....|
//  eeprom> quit
package main // import "github.com/go-lpc/eeprom/cmd/eeprom-sh"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-lpc/eeprom/imgdb"
	"github.com/go-lpc/eeprom/internal/ctl"
	"github.com/go-lpc/eeprom/lpc40xx"
	"github.com/peterh/liner"
)

func main() {
	log.SetPrefix("eeprom-sh: ")
	log.SetFlags(0)

	var (
		devmem  = flag.String("devmem", "/dev/mem", "path to the memory device")
		sim     = flag.Bool("sim", false, "use a simulated EEPROM controller")
		hz      = flag.Uint("clk", 96_000_000, "CPU clock frequency (Hz)")
		verbose = flag.Bool("v", false, "enable verbose mode")
		dbname  = flag.String("db", "", "name of the EEPROM images database")
		hist    = flag.String("history", historyFile(), "path to the history file")
	)

	flag.Parse()

	dev, err := ctl.Open(*devmem, *sim, lpc40xx.FixedClock(*hz), lpc40xx.WithVerbose(*verbose))
	if err != nil {
		log.Fatalf("could not open EEPROM device: %+v", err)
	}
	defer dev.Close()

	var db *imgdb.DB
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	c := &ctl.Ctl{
		Dev: dev,
		Out: os.Stdout,
		DB: func() (ctl.ImageStore, error) {
			if db != nil {
				return db, nil
			}
			if *dbname == "" {
				return nil, fmt.Errorf("no images db name (use -db)")
			}
			var err error
			db, err = imgdb.Open(*dbname)
			if err != nil {
				return nil, err
			}
			return db, nil
		},
	}

	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	if f, err := os.Open(*hist); err == nil {
		_, _ = term.ReadHistory(f)
		f.Close()
	}

	err = run(c, term, os.Stdout)

	if f, err := os.Create(*hist); err == nil {
		_, _ = term.WriteHistory(f)
		f.Close()
	}

	if err != nil {
		term.Close()
		log.Fatalf("%+v", err)
	}
}

func historyFile() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".eeprom-sh_history"
	}
	return filepath.Join(dir, ".eeprom-sh_history")
}

type prompter interface {
	Prompt(p string) (string, error)
	AppendHistory(item string)
}

// run reads commands from term until quit, EOF or Ctrl-C.
// Command errors are reported on o and do not stop the shell.
func run(c *ctl.Ctl, term prompter, o io.Writer) error {
	ctx := context.Background()
	for {
		line, err := term.Prompt("eeprom> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(o)
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		term.AppendHistory(line)

		switch args[0] {
		case "quit", "exit":
			return nil
		}

		err = c.Exec(ctx, args)
		if err != nil {
			fmt.Fprintf(o, "error: %+v\n", err)
		}
	}
}
