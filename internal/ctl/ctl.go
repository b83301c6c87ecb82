// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ctl implements the EEPROM commands shared by eeprom-ctl and eeprom-sh.
package ctl // import "github.com/go-lpc/eeprom/internal/ctl"

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-lpc/eeprom/imgdb"
	"github.com/go-lpc/eeprom/internal/hwsim"
	"github.com/go-lpc/eeprom/lpc40xx"
)

// ImageStore stores and retrieves EEPROM images.
type ImageStore interface {
	LastImage(ctx context.Context, board string) (imgdb.Image, error)
	SaveImage(ctx context.Context, img imgdb.Image) error
}

// Open returns an EEPROM device, either mapped from devmem or backed by
// a simulated register block.
func Open(devmem string, sim bool, clk lpc40xx.Clock, opts ...lpc40xx.Option) (*lpc40xx.Device, error) {
	if sim {
		return lpc40xx.New(hwsim.New(), clk, opts...), nil
	}
	return lpc40xx.NewDevice(devmem, clk, opts...)
}

// Ctl runs EEPROM commands against a device.
type Ctl struct {
	Dev *lpc40xx.Device
	Out io.Writer

	// DB returns the image store used by the db-load and db-save commands.
	DB func() (ImageStore, error)
}

const usage = `commands:
 init                  initialize the EEPROM controller
 read    ADDR N        read N bytes at ADDR
 write   ADDR HEX      write hex-encoded bytes at ADDR
 program ADDR          program the page buffer into the page holding ADDR
 dump                  display the controller registers
 load    FILE ADDR     write the content of FILE at ADDR
 save    FILE ADDR N   save N bytes read at ADDR into FILE
 db-load BOARD         write the last image of BOARD from the images db
 db-save BOARD ADDR N  save N bytes read at ADDR as an image of BOARD
 help                  display this help
`

// Usage writes the list of commands to w.
func Usage(w io.Writer) {
	fmt.Fprint(w, usage)
}

// Exec runs the command described by args.
func (c *Ctl) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command")
	}

	name := args[0]
	args = args[1:]

	switch name {
	case "init":
		if err := nargs(name, args, 0); err != nil {
			return err
		}
		return c.Dev.Initialize()

	case "read":
		if err := nargs(name, args, 2); err != nil {
			return err
		}
		buf, err := c.read(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprint(c.Out, hex.Dump(buf))
		return nil

	case "write":
		if err := nargs(name, args, 2); err != nil {
			return err
		}
		addr, err := parseU32(args[0])
		if err != nil {
			return err
		}
		data, err := hex.DecodeString(strings.TrimPrefix(args[1], "0x"))
		if err != nil {
			return fmt.Errorf("could not decode hex payload %q: %w", args[1], err)
		}
		return c.Dev.Write(data, addr)

	case "program":
		if err := nargs(name, args, 1); err != nil {
			return err
		}
		addr, err := parseU32(args[0])
		if err != nil {
			return err
		}
		return c.Dev.Program(addr)

	case "dump":
		if err := nargs(name, args, 0); err != nil {
			return err
		}
		return c.Dev.DumpRegisters(c.Out)

	case "load":
		if err := nargs(name, args, 2); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("could not read image file: %w", err)
		}
		addr, err := parseU32(args[1])
		if err != nil {
			return err
		}
		err = c.Dev.Write(data, addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "wrote %d bytes at 0x%03x\n", len(data), lpc40xx.Mask(addr))
		return nil

	case "save":
		if err := nargs(name, args, 3); err != nil {
			return err
		}
		buf, err := c.read(args[1], args[2])
		if err != nil {
			return err
		}
		err = os.WriteFile(args[0], buf, 0644)
		if err != nil {
			return fmt.Errorf("could not write image file: %w", err)
		}
		return nil

	case "db-load":
		if err := nargs(name, args, 1); err != nil {
			return err
		}
		db, err := c.db()
		if err != nil {
			return err
		}
		img, err := db.LastImage(ctx, args[0])
		if err != nil {
			return err
		}
		err = c.Dev.Write(img.Data, img.Addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "wrote image of board %q (%v): %d bytes at 0x%03x\n",
			img.Board, img.Time, len(img.Data), lpc40xx.Mask(img.Addr),
		)
		return nil

	case "db-save":
		if err := nargs(name, args, 3); err != nil {
			return err
		}
		db, err := c.db()
		if err != nil {
			return err
		}
		addr, err := parseU32(args[1])
		if err != nil {
			return err
		}
		buf, err := c.read(args[1], args[2])
		if err != nil {
			return err
		}
		return db.SaveImage(ctx, imgdb.Image{
			Board: args[0],
			Addr:  lpc40xx.Mask(addr),
			Data:  buf,
		})

	case "help":
		Usage(c.Out)
		return nil

	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (c *Ctl) read(saddr, sn string) ([]byte, error) {
	addr, err := parseU32(saddr)
	if err != nil {
		return nil, err
	}
	n, err := parseU32(sn)
	if err != nil {
		return nil, err
	}
	if n > lpc40xx.Size {
		return nil, fmt.Errorf("invalid read size %d", n)
	}

	buf := make([]byte, n)
	err = c.Dev.Read(buf, addr)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *Ctl) db() (ImageStore, error) {
	if c.DB == nil {
		return nil, fmt.Errorf("no images db configured")
	}
	return c.DB()
}

func nargs(name string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("invalid number of arguments for %q (got=%d, want=%d)", name, len(args), n)
	}
	return nil
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("could not parse %q: %w", s, err)
	}
	return uint32(v), nil
}
