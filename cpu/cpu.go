// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/rvhart/mmu"
	"github.com/ezrec/rvhart/trap"
)

// Privilege is a RISC-V privilege level, as encoded in mstatus.MPP.
type Privilege uint8

//go:generate go tool stringer -linecomment -type=Privilege
const (
	PRIVILEGE_USER       = Privilege(0) // user
	PRIVILEGE_SUPERVISOR = Privilege(1) // supervisor
	PRIVILEGE_RESERVED   = Privilege(2) // reserved
	PRIVILEGE_MACHINE    = Privilege(3) // machine
)

// ABI register names, by register index.
var RegisterNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// Register indexes used by the hart itself.
const (
	REG_ZERO = 0
	REG_RA   = 1
	REG_SP   = 2
)

var _cpu_defines = map[string]string{
	"MSTATUS_MIE":  fmt.Sprintf("0x%x", MSTATUS_MIE),
	"MSTATUS_MPIE": fmt.Sprintf("0x%x", MSTATUS_MPIE),
	"MSTATUS_MPP":  fmt.Sprintf("0x%x", MSTATUS_MPP_MASK),
	"MIP_MTIP":     fmt.Sprintf("0x%x", MIP_MTIP),

	"CAUSE_MISALIGNED_FETCH": fmt.Sprintf("%d", trap.INSTRUCTION_ADDRESS_MISALIGNED),
	"CAUSE_FETCH_ACCESS":     fmt.Sprintf("%d", trap.INSTRUCTION_ACCESS_FAULT),
	"CAUSE_ILLEGAL":          fmt.Sprintf("%d", trap.ILLEGAL_INSTRUCTION),
	"CAUSE_BREAKPOINT":       fmt.Sprintf("%d", trap.BREAKPOINT),
	"CAUSE_MISALIGNED_LOAD":  fmt.Sprintf("%d", trap.LOAD_ADDRESS_MISALIGNED),
	"CAUSE_LOAD_ACCESS":      fmt.Sprintf("%d", trap.LOAD_ACCESS_FAULT),
	"CAUSE_MISALIGNED_STORE": fmt.Sprintf("%d", trap.STORE_ADDRESS_MISALIGNED),
	"CAUSE_STORE_ACCESS":     fmt.Sprintf("%d", trap.STORE_ACCESS_FAULT),
	"CAUSE_USER_ECALL":       fmt.Sprintf("%d", trap.ECALL_FROM_U_MODE),
	"CAUSE_SUPERVISOR_ECALL": fmt.Sprintf("%d", trap.ECALL_FROM_S_MODE),
	"CAUSE_MACHINE_ECALL":    fmt.Sprintf("%d", trap.ECALL_FROM_M_MODE),
}

// Cpu is a single RV32IMA hart, running in machine mode.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Mmu *mmu.Mmu // Physical address space.

	Pc        uint32    // Address of the next instruction.
	Privilege Privilege // Current privilege level.
	Csr       Csr       // Control and status registers.
	Wfi       bool      // Set by WFI; cleared by the host.

	x           [32]uint32 // Integer registers; x[0] is always zero.
	reserved    bool       // LR.W reservation is valid.
	reservation uint32     // LR.W reservation address.
}

// NewCpu creates a hart attached to mmu, that starts executing at entry.
func NewCpu(mmu *mmu.Mmu, entry uint32) (cpu *Cpu) {
	cpu = &Cpu{
		Mmu: mmu,
	}

	cpu.Reset(entry)

	return
}

// Reset the hart state. RAM and devices are not touched.
// - Clears the registers, except for sp, which points to the top of RAM.
// - Clears all control and status registers.
// - Enters machine mode at entry.
func (cpu *Cpu) Reset(entry uint32) {
	cpu.x = [32]uint32{}
	cpu.x[REG_SP] = mmu.STACK_TOP
	cpu.Pc = entry
	cpu.Privilege = PRIVILEGE_MACHINE
	cpu.Csr = Csr{}
	cpu.Wfi = false
	cpu.reserved = false
	cpu.reservation = 0
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reg reads an integer register.
func (cpu *Cpu) Reg(n uint8) uint32 {
	return cpu.x[n&0x1f]
}

// SetReg writes an integer register. Writes to x0 are discarded.
func (cpu *Cpu) SetReg(n uint8, value uint32) {
	if n&0x1f != REG_ZERO {
		cpu.x[n&0x1f] = value
	}
}

// Registers returns a copy of the register file.
func (cpu *Cpu) Registers() (regs [32]uint32) {
	return cpu.x
}

// SetRegisters replaces the register file. x0 stays zero.
func (cpu *Cpu) SetRegisters(regs [32]uint32) {
	cpu.x = regs
	cpu.x[REG_ZERO] = 0
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() string {
	var text strings.Builder

	fmt.Fprintf(&text, "   pc: %08x  %v\n", cpu.Pc, cpu.Privilege)
	for n, name := range RegisterNames {
		fmt.Fprintf(&text, "% 5s: %08x", name, cpu.x[n])
		if n%4 == 3 {
			text.WriteString("\n")
		} else {
			text.WriteString(" ")
		}
	}

	return text.String()
}

// fetch reads the instruction at the program counter.
func (cpu *Cpu) fetch() (instr Instr, err error) {
	word, err := cpu.Mmu.FetchWord(cpu.Pc)
	instr = Instr(word)
	return
}

// Execute runs a single instruction. Faults are returned as *trap.Trap
// errors, with no trap processing, and the program counter unchanged.
func (cpu *Cpu) Execute() (instr Instr, err error) {
	if cpu.Pc&0b11 != 0 {
		err = trap.New(trap.INSTRUCTION_ADDRESS_MISALIGNED, cpu.Pc)
		return
	}

	instr, err = cpu.fetch()
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: %08x: %08x %v", cpu.Pc, uint32(instr), instr)
	}

	if instr.Length() != 4 {
		instr &= 0xffff
		err = illegal(instr)
		return
	}

	exec := lookup(instr)
	if exec == nil {
		err = illegal(instr)
		return
	}

	err = exec(cpu, instr)
	if err != nil {
		return
	}

	cpu.Pc += 4

	return
}

// Step runs a single instruction, and delivers any fault it raises to the
// machine mode trap handler. Only host level failures are returned.
func (cpu *Cpu) Step() (instr Instr, err error) {
	cpu.Csr.tick()

	instr, err = cpu.Execute()
	if err == nil {
		return
	}

	var t *trap.Trap
	if !errors.As(err, &t) {
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: %08x: %v", cpu.Pc, t)
	}

	err = cpu.ProcessTrap(t)

	return
}

// Run steps the hart until a fatal error occurs, or limit steps have run.
// A limit of zero or less is no limit.
func (cpu *Cpu) Run(limit int) (steps int, err error) {
	for limit <= 0 || steps < limit {
		_, err = cpu.Step()
		steps++
		if err != nil {
			break
		}
	}

	return
}
