package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/ezrec/rvhart/cpu"
	"github.com/ezrec/rvhart/emulator"
	"github.com/ezrec/rvhart/trap"
)

// ESCAPE stops a run from a raw terminal (Ctrl-]).
const ESCAPE = 0x1d

// idle is the host sleep while the hart waits for an interrupt.
const idle = time.Millisecond

// Host connects an emulator to the host console.
type Host struct {
	*emulator.Emulator

	Input  <-chan byte  // Bytes for the UART. May be nil.
	Output io.Writer    // UART output.
	Stop   *atomic.Bool // Set to end Run.
	Steps  int          // Step limit, zero for none.
	Report bool         // Keep UART output for the test report.
	Escape int          // Input byte that sets Stop, negative for none.
}

// feed moves pending input into the UART.
func (host *Host) feed() {
	for {
		select {
		case b, ok := <-host.Input:
			if !ok {
				host.Input = nil
				return
			}
			if host.Escape >= 0 && int(b) == host.Escape {
				host.Stop.Store(true)
				return
			}
			host.Cpu.Mmu.Uart.HostPush(b)
		default:
			return
		}
	}
}

// drain copies UART output to the host.
func (host *Host) drain() (err error) {
	uart := host.Cpu.Mmu.Uart
	if uart.Pending() == 0 {
		return
	}

	buf := make([]byte, 0, uart.Pending())
	for {
		b, ok := uart.TryGetByte()
		if !ok {
			break
		}
		buf = append(buf, b)
	}

	_, err = host.Output.Write(buf)
	return
}

// Tick steps the hart once, with the console attached.
func (host *Host) Tick() (done bool, err error) {
	host.feed()

	if host.Cpu.Wfi {
		host.Cpu.Wfi = false
		time.Sleep(idle)
	}

	done, err = host.Emulator.Tick()
	if host.Report {
		return
	}

	werr := host.drain()
	if err == nil && werr != nil {
		done, err = true, werr
	}

	return
}

// Run ticks until stopped, the step limit, or a fatal error.
func (host *Host) Run() (err error) {
	return emulator.Run(host.Tick, host.Stop, host.Steps)
}

// Describe explains a fatal error, with the trap decoded.
func (host *Host) Describe(err error) (text string) {
	text = err.Error()

	var rt *emulator.ErrRuntime
	var t *trap.Trap
	if !errors.As(err, &rt) || !errors.As(err, &t) {
		return
	}

	text = f("%v at 0x%08x (mtval 0x%08x)", t.Cause, rt.Pc, t.Value)

	word := make([]byte, 4)
	if host.ReadMemory(rt.Pc, word) == nil {
		text += fmt.Sprintf(": %v", cpu.Instr(binary.LittleEndian.Uint32(word)))
	}

	if rt.LineNo != 0 {
		text += f(", line %v", rt.LineNo)
	}

	return
}

// TestReport writes the UART test results, and fails if any result is
// not a pass.
func (host *Host) TestReport(w io.Writer) (err error) {
	for _, result := range host.Emulator.Report() {
		fmt.Fprintf(w, "Test %d: %c\n", result.Id, result.Result)
		if !result.Passed() {
			err = ErrTestFailed
		}
	}

	return
}
