// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator ties a hart, its address space, and a loaded image
// together into a runnable machine.
package emulator

import (
	"debug/elf"
	"errors"
	"io"
	"iter"
	"log"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/ezrec/rvhart/cpu"
	"github.com/ezrec/rvhart/internal"
	rvio "github.com/ezrec/rvhart/io"
	"github.com/ezrec/rvhart/mmu"
)

// segment is a piece of the loaded image.
type segment struct {
	Addr uint32
	Data []byte
}

// TestResult is one result reported by a test image over the UART, as a
// result character and test number pair.
type TestResult struct {
	Id     byte
	Result byte
}

// Passed is true for a 'y' result.
func (tr TestResult) Passed() bool {
	return tr.Result == 'y'
}

// Emulator state. Hart + address space + loaded image.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the hart.
	Program  *cpu.Program // Listing of an assembled image, if any.

	Audio *rvio.AudioProducer // Playback end of the audio device.

	image   []segment
	entry   uint32
	started time.Time
}

// NewEmulator creates a new emulator, with nothing loaded.
func NewEmulator() (emu *Emulator) {
	memory, audio := mmu.NewMmu()

	emu = &Emulator{
		Cpu:     cpu.NewCpu(memory, mmu.RAM_BASE),
		Program: &cpu.Program{},
		Audio:   audio,
		entry:   mmu.RAM_BASE,
		started: time.Now(),
	}

	return
}

// Defines returns an iterator over all of the defines, in name order.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Sorted(internal.IterSeq2Concat(
		emu.Cpu.Defines(),
		emu.Cpu.Mmu.Defines(),
	))
}

// Entry is the initial program counter of the loaded image.
func (emu *Emulator) Entry() uint32 {
	return emu.entry
}

// Reset clears RAM and the devices, reloads the image, and restarts the
// hart at the image entry point.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Mmu.Reset()

	for _, seg := range emu.image {
		err = emu.Cpu.Mmu.LoadRam(seg.Addr, seg.Data)
		if err != nil {
			return
		}
	}

	emu.Cpu.Reset(emu.entry)
	emu.started = time.Now()

	return
}

// load replaces the image, and resets.
func (emu *Emulator) load(entry uint32, image ...segment) (err error) {
	emu.image = image
	emu.entry = entry

	return emu.Reset()
}

// LoadBinary loads a raw image at the start of RAM.
func (emu *Emulator) LoadBinary(data []byte) (err error) {
	emu.Program = &cpu.Program{}

	return emu.load(mmu.RAM_BASE, segment{Addr: mmu.RAM_BASE, Data: data})
}

// LoadElf loads the PT_LOAD segments of a RISC-V ELF32 image.
func (emu *Emulator) LoadElf(r io.ReaderAt) (err error) {
	file, err := elf.NewFile(r)
	if err != nil {
		return
	}
	defer file.Close()

	if file.Class != elf.ELFCLASS32 || file.Data != elf.ELFDATA2LSB {
		err = ErrElfClass
		return
	}

	if file.Machine != elf.EM_RISCV {
		err = ErrElfMachine
		return
	}

	var image []segment
	for _, prog := range file.Progs {
		if emu.Verbose {
			log.Printf("emulator: %v", spew.Sdump(prog.ProgHeader))
		}

		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}

		data := make([]byte, prog.Memsz)
		_, err = prog.ReadAt(data[:min(prog.Filesz, prog.Memsz)], 0)
		if err != nil && !errors.Is(err, io.EOF) {
			return
		}
		err = nil

		image = append(image, segment{Addr: uint32(prog.Paddr), Data: data})
	}

	emu.Program = &cpu.Program{}

	return emu.load(uint32(file.Entry), image...)
}

// LoadProgram loads an assembled program.
func (emu *Emulator) LoadProgram(prog *cpu.Program) (err error) {
	err = emu.load(prog.Entry, segment{Addr: prog.Origin, Data: prog.Binary()})
	if err != nil {
		return
	}

	emu.Program = prog
	return
}

// Assemble assembles source, with the emulator defines predefined, and
// loads the result.
func (emu *Emulator) Assemble(source io.Reader) (err error) {
	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(source)
	if err != nil {
		return
	}

	return emu.LoadProgram(prog)
}

// LineNo returns the current line number for the executing opcode, or
// zero when the image has no listing.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single step of the hart. done is set on a fatal error,
// after which the emulator must be reset.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set verbosity
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Mmu.Verbose = emu.Verbose

	emu.Cpu.Csr.SetTimer(uint64(time.Since(emu.started).Microseconds()))

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()

	_, err = emu.Cpu.Step()
	if err != nil {
		err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
		done = true
	}

	return
}

// Run calls tick until stop is set, tick fails, or limit ticks have run.
// A limit of zero or less is no limit. stop is only read between ticks, so
// it may be set from another goroutine.
func Run(tick func() (bool, error), stop *atomic.Bool, limit int) (err error) {
	for steps := 0; limit <= 0 || steps < limit; steps++ {
		if stop != nil && stop.Load() {
			break
		}

		_, err = tick()
		if err != nil {
			break
		}
	}

	return
}

// Run ticks the emulator until stop is set, a fatal error occurs, or limit
// steps have run.
func (emu *Emulator) Run(stop *atomic.Bool, limit int) (err error) {
	return Run(emu.Tick, stop, limit)
}

// Report drains the UART output as test results.
func (emu *Emulator) Report() (results []TestResult) {
	uart := emu.Cpu.Mmu.Uart
	for uart.Pending() >= 2 {
		result, _ := uart.TryGetByte()
		id, _ := uart.TryGetByte()
		results = append(results, TestResult{Id: id, Result: result})
	}

	return
}

// ProgramCounter returns the address of the next instruction.
func (emu *Emulator) ProgramCounter() uint32 {
	return emu.Cpu.Pc
}

// SetProgramCounter moves execution to pc.
func (emu *Emulator) SetProgramCounter(pc uint32) {
	emu.Cpu.Pc = pc
}

// ReadMemory reads RAM into data. Nothing outside of RAM can be read.
func (emu *Emulator) ReadMemory(address uint32, data []byte) (err error) {
	for n := range data {
		var ok bool
		data[n], ok = emu.Cpu.Mmu.ReadRaw(address + uint32(n))
		if !ok {
			err = &ErrMemory{Address: address + uint32(n)}
			return
		}
	}

	return
}

// WriteMemory writes data into RAM. Nothing outside of RAM can be written.
func (emu *Emulator) WriteMemory(address uint32, data []byte) (err error) {
	for n, b := range data {
		if !emu.Cpu.Mmu.WriteRaw(address+uint32(n), b) {
			err = &ErrMemory{Address: address + uint32(n)}
			return
		}
	}

	return
}
