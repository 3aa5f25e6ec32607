// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package gdb is a GDB remote serial protocol server for a single hart.
//
// The server answers register, memory and single step requests. Continue,
// breakpoints and reverse execution are reported as unsupported, so a
// debugger drives the hart one instruction at a time.
package gdb

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/ezrec/rvhart/trap"
)

// Target is the debugged machine.
type Target interface {
	Registers() [32]uint32
	SetRegisters(regs [32]uint32)
	ProgramCounter() uint32
	SetProgramCounter(pc uint32)
	ReadMemory(address uint32, data []byte) error
	WriteMemory(address uint32, data []byte) error
	Tick() (done bool, err error)
}

// Stop signals, as GDB numbers them.
const (
	SIGINT  = 0x02
	SIGILL  = 0x04
	SIGTRAP = 0x05
	SIGBUS  = 0x0a
	SIGSEGV = 0x0b
)

const (
	replyOK           = "OK"
	replyUnsupported  = ""
	replyBadArgument  = "E01"
	replyBadAddress   = "E14"
	packetSizeMaximum = 0x4000
)

// Server serves one debugger connection at a time.
type Server struct {
	Verbose bool   // If set, logs every packet.
	Target  Target // Machine to debug.
}

// stopReply describes why the hart stopped.
func stopReply(signal uint8) string {
	return fmt.Sprintf("S%02x", signal)
}

// signalOf maps a fatal hart error to a stop signal.
func signalOf(err error) uint8 {
	var t *trap.Trap
	if !errors.As(err, &t) {
		return SIGTRAP
	}

	switch t.Cause {
	case trap.ILLEGAL_INSTRUCTION:
		return SIGILL
	case trap.INSTRUCTION_ADDRESS_MISALIGNED,
		trap.LOAD_ADDRESS_MISALIGNED,
		trap.STORE_ADDRESS_MISALIGNED:
		return SIGBUS
	case trap.INSTRUCTION_ACCESS_FAULT,
		trap.LOAD_ACCESS_FAULT,
		trap.STORE_ACCESS_FAULT:
		return SIGSEGV
	}

	return SIGTRAP
}

// parseAddrLength parses "addr,length".
func parseAddrLength(text string) (address uint32, length int, err error) {
	addrText, lenText, ok := strings.Cut(text, ",")
	if !ok {
		err = ErrPacketSyntax
		return
	}

	addr, err := strconv.ParseUint(addrText, 16, 32)
	if err != nil {
		return
	}

	size, err := strconv.ParseUint(lenText, 16, 32)
	if err != nil {
		return
	}

	if size > packetSizeMaximum {
		err = ErrPacketSyntax
		return
	}

	address = uint32(addr)
	length = int(size)
	return
}

// registers encodes x0..x31 and pc, in target byte order.
func (srv *Server) registers() string {
	var data []byte
	for _, reg := range srv.Target.Registers() {
		data = binary.LittleEndian.AppendUint32(data, reg)
	}
	data = binary.LittleEndian.AppendUint32(data, srv.Target.ProgramCounter())

	return hex.EncodeToString(data)
}

// setRegisters decodes x0..x31 and pc.
func (srv *Server) setRegisters(text string) (reply string) {
	data, err := hex.DecodeString(text)
	if err != nil || len(data) != 33*4 {
		return replyBadArgument
	}

	var regs [32]uint32
	for n := range regs {
		regs[n] = binary.LittleEndian.Uint32(data[n*4:])
	}
	srv.Target.SetRegisters(regs)
	srv.Target.SetProgramCounter(binary.LittleEndian.Uint32(data[32*4:]))

	return replyOK
}

func (srv *Server) readMemory(text string) (reply string) {
	address, length, err := parseAddrLength(text)
	if err != nil {
		return replyBadArgument
	}

	data := make([]byte, length)
	err = srv.Target.ReadMemory(address, data)
	if err != nil {
		if srv.Verbose {
			log.Printf("gdb: %v", err)
		}
		return replyBadAddress
	}

	return hex.EncodeToString(data)
}

func (srv *Server) writeMemory(text string) (reply string) {
	where, content, ok := strings.Cut(text, ":")
	if !ok {
		return replyBadArgument
	}

	address, length, err := parseAddrLength(where)
	if err != nil {
		return replyBadArgument
	}

	data, err := hex.DecodeString(content)
	if err != nil || len(data) != length {
		return replyBadArgument
	}

	err = srv.Target.WriteMemory(address, data)
	if err != nil {
		if srv.Verbose {
			log.Printf("gdb: %v", err)
		}
		return replyBadAddress
	}

	return replyOK
}

// step executes one instruction, optionally from a new address.
func (srv *Server) step(text string) (reply string) {
	if len(text) > 0 {
		pc, err := strconv.ParseUint(text, 16, 32)
		if err != nil {
			return replyBadArgument
		}
		srv.Target.SetProgramCounter(uint32(pc))
	}

	_, err := srv.Target.Tick()
	if err != nil {
		if srv.Verbose {
			log.Printf("gdb: %v", err)
		}
		return stopReply(signalOf(err))
	}

	return stopReply(SIGTRAP)
}

// query answers the general query packets.
func (srv *Server) query(payload string) (reply string) {
	name, _, _ := strings.Cut(payload, ":")
	switch name {
	case "qSupported":
		return fmt.Sprintf("PacketSize=%x;QStartNoAckMode+", packetSizeMaximum)
	case "qAttached":
		return "1"
	case "qC":
		return "QC1"
	case "qfThreadInfo":
		return "m1"
	case "qsThreadInfo":
		return "l"
	}

	return replyUnsupported
}

// Serve handles one debugger session, until it detaches, kills, or the
// connection closes.
func (srv *Server) Serve(rw io.ReadWriter) (err error) {
	c := newConn(rw)

	for {
		var payload string
		payload, err = c.receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			return
		}

		if srv.Verbose {
			log.Printf("gdb: <- %q", payload)
		}

		if len(payload) == 0 {
			err = c.send(replyUnsupported)
			if err != nil {
				return
			}
			continue
		}

		var reply string
		switch payload[0] {
		case packetInterrupt:
			reply = stopReply(SIGINT)
		case '?':
			reply = stopReply(SIGTRAP)
		case 'g':
			reply = srv.registers()
		case 'G':
			reply = srv.setRegisters(payload[1:])
		case 'm':
			reply = srv.readMemory(payload[1:])
		case 'M':
			reply = srv.writeMemory(payload[1:])
		case 's':
			reply = srv.step(payload[1:])
		case 'H':
			reply = replyOK
		case 'q':
			reply = srv.query(payload)
		case 'Q':
			if payload == "QStartNoAckMode" {
				reply = replyOK
				err = c.send(reply)
				c.noAck = true
				if err != nil {
					return
				}
				continue
			}
			reply = replyUnsupported
		case 'D':
			err = c.send(replyOK)
			return
		case 'k':
			return
		default:
			reply = replyUnsupported
		}

		if srv.Verbose {
			log.Printf("gdb: -> %q", reply)
		}

		err = c.send(reply)
		if err != nil {
			return
		}
	}
}

// ListenAndServe accepts debugger connections on addr until ctx is done.
// Sessions are served one after another.
func (srv *Server) ListenAndServe(ctx context.Context, addr string) (err error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return
	}
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	if srv.Verbose {
		log.Printf("gdb: listening on %v", ln.Addr())
	}

	for {
		var nc net.Conn
		nc, err = ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				err = nil
			}
			return
		}

		if srv.Verbose {
			log.Printf("gdb: connection from %v", nc.RemoteAddr())
		}

		closer := context.AfterFunc(ctx, func() { nc.Close() })
		err = srv.Serve(nc)
		closer()
		nc.Close()

		if ctx.Err() != nil {
			err = nil
			return
		}

		if err != nil {
			log.Printf("gdb: %v", err)
			err = nil
		}
	}
}

// ListenAndServe serves target to debuggers connecting on addr, until ctx
// is done.
func ListenAndServe(ctx context.Context, addr string, target Target) error {
	srv := &Server{Target: target}
	return srv.ListenAndServe(ctx, addr)
}
