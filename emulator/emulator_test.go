package emulator

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/rvhart/cpu"
	"github.com/ezrec/rvhart/mmu"
	"github.com/ezrec/rvhart/trap"
)

// elfImage builds a single segment ELF32 image.
func elfImage(machine elf.Machine, entry uint32, paddr uint32, code []byte, memsz uint32) []byte {
	const hdrSize = 52
	const phdrSize = 32

	hdr := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     hdrSize,
		Ehsize:    hdrSize,
		Phentsize: phdrSize,
		Phnum:     1,
		Shentsize: 40,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	phdr := elf.Prog32{
		Type:   uint32(elf.PT_LOAD),
		Off:    hdrSize + phdrSize,
		Vaddr:  paddr,
		Paddr:  paddr,
		Filesz: uint32(len(code)),
		Memsz:  memsz,
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Align:  4,
	}

	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, &hdr)
	binary.Write(buf, binary.LittleEndian, &phdr)
	buf.Write(code)

	return buf.Bytes()
}

func doAssemble(t *testing.T, emu *Emulator, source ...string) {
	err := emu.Assemble(strings.NewReader(strings.Join(source, "\n")))
	if err != nil {
		t.Fatal(err)
	}
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.NotNil(emu.Audio)
	assert.Equal(mmu.RAM_BASE, emu.Entry())
	assert.Equal(mmu.RAM_BASE, emu.ProgramCounter())
	assert.Equal(0, emu.LineNo())

	defines := map[string]string{}
	var names []string
	for key, value := range emu.Defines() {
		defines[key] = value
		names = append(names, key)
	}
	assert.True(slices.IsSorted(names))
	assert.Equal("0x10000000", defines["UART_BASE"])
	assert.Equal("3", defines["CAUSE_BREAKPOINT"])
}

func TestEmulator_Assemble(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doAssemble(t, emu,
		"_start:",
		"  li t0, UART_BASE",
		"  li t1, 'y'",
		"  sb t1, 0(t0)",
		"  li t1, 1",
		"  sb t1, 0(t0)",
		"  li t1, 'n'",
		"  sb t1, 0(t0)",
		"  li t1, 2",
		"  sb t1, 0(t0)",
		"done:",
		"  j done",
	)

	assert.Equal(2, emu.LineNo())

	err := emu.Run(nil, 20)
	assert.NoError(err)
	assert.Equal(12, emu.LineNo())

	results := emu.Report()
	assert.Equal([]TestResult{{Id: 1, Result: 'y'}, {Id: 2, Result: 'n'}}, results)
	assert.True(results[0].Passed())
	assert.False(results[1].Passed())

	assert.Equal(0, len(emu.Report()))
}

func TestEmulator_Tick(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doAssemble(t, emu,
		"  nop",
		"  ebreak",
	)

	done, err := emu.Tick()
	assert.NoError(err)
	assert.False(done)

	done, err = emu.Tick()
	assert.True(done)
	assert.ErrorIs(err, cpu.ErrUnsetTrapHandler)

	var rt *ErrRuntime
	if assert.True(errors.As(err, &rt)) {
		assert.Equal(mmu.RAM_BASE+4, rt.Pc)
		assert.Equal(2, rt.LineNo)
	}

	var tr *trap.Trap
	if assert.True(errors.As(err, &tr)) {
		assert.Equal(trap.BREAKPOINT, tr.Cause)
	}

	// Reset restarts the image.
	assert.NoError(emu.Reset())
	assert.Equal(mmu.RAM_BASE, emu.ProgramCounter())
	assert.Equal(uint64(0), emu.Cpu.Csr.Cycles())
}

func TestEmulator_Run(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doAssemble(t, emu, "loop: addi a0, a0, 1", "  j loop")

	stop := &atomic.Bool{}
	stop.Store(true)
	assert.NoError(emu.Run(stop, 0))
	assert.Equal(uint32(0), emu.Reg(10))

	stop.Store(false)
	assert.NoError(emu.Run(stop, 10))
	assert.Equal(uint32(5), emu.Reg(10))
}

func TestRun(t *testing.T) {
	assert := assert.New(t)

	errDone := errors.New("done")

	table := []struct {
		fail  int
		limit int
		ticks int
		err   error
	}{
		{0, 5, 5, nil},
		{3, 5, 3, errDone},
		{3, 0, 3, errDone},
		{7, 5, 5, nil},
	}

	for _, entry := range table {
		ticks := 0
		tick := func() (bool, error) {
			ticks++
			if ticks == entry.fail {
				return true, errDone
			}
			return false, nil
		}

		err := Run(tick, &atomic.Bool{}, entry.limit)
		assert.Equal(entry.err, err, "%+v", entry)
		assert.Equal(entry.ticks, ticks, "%+v", entry)
	}

	// stop is checked before every tick.
	stop := &atomic.Bool{}
	ticks := 0
	err := Run(func() (bool, error) {
		ticks++
		if ticks == 2 {
			stop.Store(true)
		}
		return false, nil
	}, stop, 0)
	assert.NoError(err)
	assert.Equal(2, ticks)
}

func TestEmulator_LoadElf(t *testing.T) {
	assert := assert.New(t)

	addr := mmu.RAM_BASE + 0x1000
	code := []byte{
		0x13, 0x05, 0xa0, 0x02, // addi a0, zero, 42
		0x73, 0x00, 0x10, 0x00, // ebreak
	}

	emu := NewEmulator()

	// Stale RAM must be cleared by the load.
	assert.NoError(emu.WriteMemory(addr+8, []byte{0xff, 0xff}))

	err := emu.LoadElf(bytes.NewReader(elfImage(elf.EM_RISCV, addr, addr, code, 16)))
	assert.NoError(err)
	assert.Equal(addr, emu.Entry())
	assert.Equal(addr, emu.ProgramCounter())

	mem := make([]byte, 16)
	assert.NoError(emu.ReadMemory(addr, mem))
	assert.Equal(append(code, make([]byte, 8)...), mem)

	done, err := emu.Tick()
	assert.NoError(err)
	assert.False(done)
	assert.Equal(uint32(42), emu.Reg(10))

	_, err = emu.Tick()
	assert.ErrorIs(err, cpu.ErrUnsetTrapHandler)

	// The image survives a reset.
	assert.NoError(emu.WriteMemory(addr, []byte{0, 0, 0, 0}))
	assert.NoError(emu.Reset())
	assert.NoError(emu.ReadMemory(addr, mem))
	assert.Equal(code, mem[:8])
}

func TestEmulator_LoadElf_Invalid(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	err := emu.LoadElf(bytes.NewReader(elfImage(elf.EM_386, mmu.RAM_BASE, mmu.RAM_BASE, []byte{0, 0, 0, 0}, 4)))
	assert.ErrorIs(err, ErrElfMachine)

	err = emu.LoadElf(bytes.NewReader([]byte("not an elf file at all")))
	assert.Error(err)

	// Segment outside of RAM.
	err = emu.LoadElf(bytes.NewReader(elfImage(elf.EM_RISCV, 0x1000, 0x1000, []byte{0, 0, 0, 0}, 4)))
	var er *mmu.ErrRange
	assert.True(errors.As(err, &er))
}

func TestEmulator_LoadBinary(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	err := emu.LoadBinary([]byte{
		0x93, 0x05, 0x70, 0x00, // addi a1, zero, 7
	})
	assert.NoError(err)
	assert.Equal(mmu.RAM_BASE, emu.ProgramCounter())

	_, err = emu.Tick()
	assert.NoError(err)
	assert.Equal(uint32(7), emu.Reg(11))
	assert.Equal(0, emu.LineNo())
}

func TestEmulator_Memory(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	data := []byte{1, 2, 3, 4}
	assert.NoError(emu.WriteMemory(mmu.RAM_BASE+0x10, data))

	got := make([]byte, 4)
	assert.NoError(emu.ReadMemory(mmu.RAM_BASE+0x10, got))
	assert.Equal(data, got)

	var em *ErrMemory
	err := emu.ReadMemory(mmu.RAM_END-1, got)
	if assert.True(errors.As(err, &em)) {
		assert.Equal(mmu.RAM_END+1, em.Address)
	}

	err = emu.WriteMemory(mmu.UART_BASE, data)
	if assert.True(errors.As(err, &em)) {
		assert.Equal(mmu.UART_BASE, em.Address)
	}

	emu.SetProgramCounter(mmu.RAM_BASE + 0x40)
	assert.Equal(mmu.RAM_BASE+0x40, emu.ProgramCounter())
}
