// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package imgdb holds types to store and retrieve EEPROM images of boards
// from a database.
//
// Images are stored in the images table:
//
//	CREATE TABLE images (
//		board    VARCHAR(64) NOT NULL,
//		address  INT UNSIGNED NOT NULL,
//		data     BLOB NOT NULL,
//		datetime DATETIME NOT NULL
//	);
package imgdb // import "github.com/go-lpc/eeprom/imgdb"

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var (
	host = envOr("IMGDB_HOST", "localhost")
	usr  = envOr("IMGDB_USER", "username")
	pwd  = envOr("IMGDB_PASSWORD", "s3cr3t")

	drvName = "mysql"
)

// ErrNoImage is returned when no image is stored for a board.
var ErrNoImage = errors.New("imgdb: no image")

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Image is the content of an EEPROM region.
type Image struct {
	Board string    // board identifier
	Addr  uint32    // EEPROM address of the first byte of Data
	Data  []byte    // EEPROM content
	Time  time.Time // time the image was taken
}

// DB exposes convenience methods to store and retrieve EEPROM images.
type DB struct {
	db   *sql.DB
	name string // name of the images database
}

// Open opens a connection to the images database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("imgdb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("imgdb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("imgdb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// LastImage returns the most recent image stored for board.
func (db *DB) LastImage(ctx context.Context, board string) (Image, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	img := Image{Board: board}
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT address, data, datetime FROM images WHERE board=? ORDER BY datetime DESC LIMIT 1",
		board,
	)
	if err != nil {
		return img, fmt.Errorf("imgdb: could not query image of board %q: %w", board, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		err = rows.Scan(&img.Addr, &img.Data, &img.Time)
		if err != nil {
			return img, fmt.Errorf("imgdb: could not get image of board %q: %w", board, err)
		}
		n++
	}

	if err := rows.Err(); err != nil {
		return img, fmt.Errorf("imgdb: could not scan db for image of board %q: %w", board, err)
	}

	if err := ctx.Err(); err != nil {
		return img, fmt.Errorf("imgdb: context error while retrieving image of board %q: %w", board, err)
	}

	if n == 0 {
		return img, fmt.Errorf("imgdb: could not find image of board %q: %w", board, ErrNoImage)
	}

	return img, nil
}

// SaveImage stores img in the database.
// A zero img.Time is replaced with the current time.
func (db *DB) SaveImage(ctx context.Context, img Image) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if img.Board == "" {
		return fmt.Errorf("imgdb: invalid empty board name")
	}

	if img.Time.IsZero() {
		img.Time = time.Now().UTC()
	}

	_, err := db.db.ExecContext(
		ctx,
		"INSERT INTO images (board, address, data, datetime) VALUES (?, ?, ?, ?)",
		img.Board, img.Addr, img.Data, img.Time,
	)
	if err != nil {
		return fmt.Errorf("imgdb: could not save image of board %q: %w", img.Board, err)
	}

	return nil
}
