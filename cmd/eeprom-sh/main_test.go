// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/eeprom/internal/ctl"
	"github.com/go-lpc/eeprom/lpc40xx"
	"github.com/peterh/liner"
)

type script struct {
	lines []string
	end   error
	hist  []string
}

func (s *script) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", s.end
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *script) AppendHistory(item string) {
	s.hist = append(s.hist, item)
}

func newTestCtl(t *testing.T, o io.Writer) *ctl.Ctl {
	t.Helper()
	dev, err := ctl.Open("", true, lpc40xx.FixedClock(96_000_000),
		lpc40xx.WithLogger(log.New(io.Discard, "", 0)),
	)
	if err != nil {
		t.Fatalf("could not open simulated device: %+v", err)
	}
	return &ctl.Ctl{Dev: dev, Out: o}
}

func TestRun(t *testing.T) {
	for _, tc := range []struct {
		name string
		end  error
		err  bool
	}{
		{name: "eof", end: io.EOF},
		{name: "ctrl-c", end: liner.ErrPromptAborted},
		{name: "error", end: fmt.Errorf("tty is gone"), err: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := new(strings.Builder)
			term := &script{
				lines: []string{
					"init",
					"",
					"write 0x40 deadbeef",
					"read 0x40 4",
					"boom",
				},
				end: tc.end,
			}

			err := run(newTestCtl(t, o), term, o)
			switch {
			case err != nil && !tc.err:
				t.Fatalf("could not run shell: %+v", err)
			case err == nil && tc.err:
				t.Fatalf("expected an error")
			}

			want := []string{"init", "write 0x40 deadbeef", "read 0x40 4", "boom"}
			if !reflect.DeepEqual(term.hist, want) {
				t.Fatalf("invalid history:\ngot= %q\nwant=%q", term.hist, want)
			}

			out := o.String()
			for _, v := range []string{
				hex.Dump([]byte{0xde, 0xad, 0xbe, 0xef}),
				"error: unknown command \"boom\"\n",
			} {
				if !strings.Contains(out, v) {
					t.Fatalf("output is missing %q:\n%s", v, out)
				}
			}
		})
	}
}

func TestQuit(t *testing.T) {
	o := new(strings.Builder)
	term := &script{
		lines: []string{"quit", "init"},
		end:   io.EOF,
	}
	err := run(newTestCtl(t, o), term, o)
	if err != nil {
		t.Fatalf("could not run shell: %+v", err)
	}
	if got, want := len(term.lines), 1; got != want {
		t.Fatalf("shell did not stop at quit: %d lines left", got)
	}
}
