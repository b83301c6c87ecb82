// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package imgdb

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/eeprom/internal/fakedb"
)

func init() {
	drvName = "fakedb"
}

func TestOpen(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open imgdb: %+v", err)
	}
	defer db.Close()
}

func TestLastImage(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open imgdb: %+v", err)
	}
	defer db.Close()

	date := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	_, err = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"address", "data", "datetime"},
		Values: [][]driver.Value{
			{int64(0x100), []byte{0xef, 0xbe, 0xad, 0xde}, date},
		},
	}, func(ctx context.Context) error {
		img, err := db.LastImage(ctx, "board-42")
		if err != nil {
			t.Fatalf("could not retrieve last image: %+v", err)
		}

		want := Image{
			Board: "board-42",
			Addr:  0x100,
			Data:  []byte{0xef, 0xbe, 0xad, 0xde},
			Time:  date,
		}
		if !reflect.DeepEqual(img, want) {
			t.Fatalf("invalid image:\ngot= %+v\nwant=%+v", img, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("could not run fake db: %+v", err)
	}
}

func TestLastImageMissing(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open imgdb: %+v", err)
	}
	defer db.Close()

	_, _ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"address", "data", "datetime"},
	}, func(ctx context.Context) error {
		_, err := db.LastImage(ctx, "board-0")
		if !errors.Is(err, ErrNoImage) {
			t.Fatalf("invalid error: %+v", err)
		}
		return nil
	})
}

func TestSaveImage(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open imgdb: %+v", err)
	}
	defer db.Close()

	date := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	execs, err := fakedb.Run(context.Background(), fakedb.Rows{}, func(ctx context.Context) error {
		return db.SaveImage(ctx, Image{
			Board: "board-42",
			Addr:  0x40,
			Data:  []byte{1, 2, 3, 4},
			Time:  date,
		})
	})
	if err != nil {
		t.Fatalf("could not save image: %+v", err)
	}

	if got, want := len(execs), 1; got != want {
		t.Fatalf("invalid number of statements: got=%d, want=%d", got, want)
	}

	exec := execs[0]
	if !strings.HasPrefix(exec.Query, "INSERT INTO images") {
		t.Fatalf("invalid statement: %q", exec.Query)
	}
	if got, want := len(exec.Args), 4; got != want {
		t.Fatalf("invalid number of args: got=%d, want=%d", got, want)
	}
	if got, want := exec.Args[0], driver.Value("board-42"); got != want {
		t.Fatalf("invalid board: got=%v, want=%v", got, want)
	}
	if got, want := exec.Args[1], driver.Value(int64(0x40)); got != want {
		t.Fatalf("invalid address: got=%v (%T), want=%v", got, got, want)
	}
	if got := exec.Args[2].([]byte); !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("invalid data: got=%x", got)
	}
	if got := exec.Args[3].(time.Time); !got.Equal(date) {
		t.Fatalf("invalid datetime: got=%v, want=%v", got, date)
	}
}

func TestSaveImageNoBoard(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open imgdb: %+v", err)
	}
	defer db.Close()

	err = db.SaveImage(context.Background(), Image{Data: []byte{1}})
	if err == nil {
		t.Fatalf("expected an error")
	}
}
