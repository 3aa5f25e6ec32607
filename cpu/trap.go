package cpu

import (
	"errors"
	"log"

	"github.com/ezrec/rvhart/trap"
)

func illegal(instr Instr) error {
	return trap.New(trap.ILLEGAL_INSTRUCTION, uint32(instr))
}

// ProcessTrap delivers a trap to the machine mode trap handler.
//
// The interrupt enable and privilege are stacked in mstatus, mepc is set to
// the faulting instruction, and mcause and mtval describe the trap. With no
// trap handler installed (mtvec is zero) nothing is changed, and the trap is
// returned wrapped in ErrUnsetTrapHandler.
func (cpu *Cpu) ProcessTrap(t *trap.Trap) (err error) {
	csr := &cpu.Csr

	if csr.Mtvec == 0 {
		err = errors.Join(ErrUnsetTrapHandler, t)
		return
	}

	var target uint32
	base := csr.Mtvec &^ MTVEC_MODE_MASK
	switch csr.Mtvec & MTVEC_MODE_MASK {
	case MTVEC_MODE_DIRECT:
		target = base
	case MTVEC_MODE_VECTORED:
		target = base
		if t.Cause.Interrupt() {
			target += 4 * t.Cause.Code()
		}
	default:
		err = errors.Join(ErrTrapVectorMode, t)
		return
	}

	mstatus := csr.Mstatus &^ (MSTATUS_MPIE | MSTATUS_MIE | MSTATUS_MPP_MASK)
	if csr.Mstatus&MSTATUS_MIE != 0 {
		mstatus |= MSTATUS_MPIE
	}
	mstatus |= uint32(cpu.Privilege) << MSTATUS_MPP_LSB
	csr.Mstatus = mstatus

	cpu.Privilege = PRIVILEGE_MACHINE
	csr.Mepc = cpu.Pc
	csr.Mcause = uint32(t.Cause)
	csr.Mtval = t.Value
	cpu.reserved = false

	if cpu.Verbose {
		log.Printf("cpu: trap %v, mepc=0x%08x, handler 0x%08x", t, csr.Mepc, target)
	}

	cpu.Pc = target

	return
}

// mret returns from the machine mode trap handler, restoring the stacked
// interrupt enable and privilege.
func (cpu *Cpu) mret(instr Instr) (err error) {
	csr := &cpu.Csr

	if cpu.Privilege != PRIVILEGE_MACHINE {
		err = illegal(instr)
		return
	}

	cpu.Privilege = Privilege((csr.Mstatus & MSTATUS_MPP_MASK) >> MSTATUS_MPP_LSB)

	mstatus := csr.Mstatus &^ (MSTATUS_MIE | MSTATUS_MPP_MASK)
	if csr.Mstatus&MSTATUS_MPIE != 0 {
		mstatus |= MSTATUS_MIE
	}
	mstatus |= MSTATUS_MPIE
	mstatus |= uint32(PRIVILEGE_MACHINE) << MSTATUS_MPP_LSB
	csr.Mstatus = mstatus

	cpu.reserved = false
	cpu.Pc = csr.Mepc - 4

	return
}
