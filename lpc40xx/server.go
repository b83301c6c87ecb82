// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc40xx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
)

// Server allows to control an EEPROM device over TCP.
//
// Requests are JSON objects {"name": "...", "args": ...}, one at a time.
// Each request gets a {"msg": "ok"|"<error>", "data": ...} reply.
// Connections are served one after the other so the device is never
// accessed concurrently.
type Server struct {
	ctl net.Listener
	msg *log.Logger
	dev device

	alert func(err error)
}

// ServerOption configures a Server.
type ServerOption func(srv *Server)

// WithAlert sets the function called when the device did not complete an
// operation in time.
func WithAlert(f func(err error)) ServerOption {
	return func(srv *Server) {
		srv.alert = f
	}
}

// WithServerLogger sets the logger of the server.
func WithServerLogger(msg *log.Logger) ServerOption {
	return func(srv *Server) {
		srv.msg = msg
	}
}

// NewServer creates a new server listening on addr and controlling dev.
func NewServer(addr string, dev *Device, opts ...ServerOption) (*Server, error) {
	ctl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not create eeprom server on %q: %w", addr, err)
	}

	srv := &Server{
		ctl:   ctl,
		msg:   log.New(os.Stdout, "eeprom-srv: ", 0),
		dev:   dev,
		alert: func(error) {},
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv, nil
}

// Serve creates a server listening on addr and serves dev until an error
// occurs.
func Serve(addr string, dev *Device, opts ...ServerOption) error {
	srv, err := NewServer(addr, dev, opts...)
	if err != nil {
		return err
	}
	return srv.Serve()
}

// Addr returns the address the server listens on.
func (srv *Server) Addr() net.Addr {
	return srv.ctl.Addr()
}

// Close stops the server.
func (srv *Server) Close() error {
	return srv.ctl.Close()
}

// Serve accepts and handles connections until the server is closed.
func (srv *Server) Serve() error {
	defer srv.ctl.Close()

	for {
		conn, err := srv.ctl.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("could not accept connection: %w", err)
		}

		err = srv.handle(conn)
		if err != nil {
			srv.msg.Printf("could not serve %v: %+v", conn.RemoteAddr(), err)
			continue
		}
	}
}

type request struct {
	Name string           `json:"name"`
	Args *json.RawMessage `json:"args"`
}

type reply struct {
	Msg  string `json:"msg"`
	Data []byte `json:"data,omitempty"`
}

type rwArgs struct {
	Addr uint32 `json:"addr"`
	N    int    `json:"n,omitempty"`
	Data []byte `json:"data,omitempty"`
}

func (srv *Server) handle(conn net.Conn) error {
	defer conn.Close()
	srv.msg.Printf("serving %v...", conn.RemoteAddr())
	defer srv.msg.Printf("serving %v... [done]", conn.RemoteAddr())

	dec := json.NewDecoder(conn)
	for {
		var req request
		err := dec.Decode(&req)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			srv.msg.Printf("could not decode command request: %+v", err)
			srv.reply(conn, nil, err)
			return fmt.Errorf("could not decode command request: %w", err)
		}
		srv.msg.Printf("received request: name=%q", req.Name)

		name := strings.ToLower(req.Name)
		if name == "quit" {
			srv.reply(conn, nil, nil)
			return nil
		}

		data, err := srv.dispatch(name, req.Args)
		if err != nil {
			srv.msg.Printf("could not run %q: %+v", req.Name, err)
			if errors.Is(err, ErrTimeout) {
				srv.alert(err)
			}
		}
		srv.reply(conn, data, err)
	}
}

func (srv *Server) dispatch(name string, raw *json.RawMessage) ([]byte, error) {
	var args rwArgs
	switch name {
	case "read", "write", "program":
		if raw == nil {
			return nil, fmt.Errorf("missing arguments for %q", name)
		}
		err := json.Unmarshal(*raw, &args)
		if err != nil {
			return nil, fmt.Errorf("could not decode %q payload: %w", name, err)
		}
	}

	switch name {
	case "initialize":
		return nil, srv.dev.Initialize()

	case "read":
		if args.N < 0 || args.N > Size {
			return nil, fmt.Errorf("invalid read size %d", args.N)
		}
		buf := make([]byte, args.N)
		err := srv.dev.Read(buf, args.Addr)
		if err != nil {
			return nil, err
		}
		return buf, nil

	case "write":
		return nil, srv.dev.Write(args.Data, args.Addr)

	case "program":
		return nil, srv.dev.Program(args.Addr)

	case "dump":
		o := new(strings.Builder)
		err := srv.dev.DumpRegisters(o)
		if err != nil {
			return nil, err
		}
		return []byte(o.String()), nil

	default:
		return nil, fmt.Errorf("unknown command %q", name)
	}
}

func (srv *Server) reply(conn net.Conn, data []byte, err error) {
	rep := reply{Msg: "ok", Data: data}
	if err != nil {
		rep.Msg = fmt.Sprintf("%+v", err)
		rep.Data = nil
	}

	_ = json.NewEncoder(conn).Encode(rep)
}
