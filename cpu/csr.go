package cpu

// CSR numbers.
const (
	CSR_MSTATUS  = 0x300
	CSR_MISA     = 0x301
	CSR_MIE      = 0x304
	CSR_MTVEC    = 0x305
	CSR_MSTATUSH = 0x310
	CSR_MSCRATCH = 0x340
	CSR_MEPC     = 0x341
	CSR_MCAUSE   = 0x342
	CSR_MTVAL    = 0x343
	CSR_MIP      = 0x344

	CSR_MTIMECMP  = 0x7c0 // Custom: timer compare, low word.
	CSR_MTIMECMPH = 0x7c1 // Custom: timer compare, high word.

	CSR_MCYCLE    = 0xb00
	CSR_MINSTRET  = 0xb02
	CSR_MCYCLEH   = 0xb80
	CSR_MINSTRETH = 0xb82

	CSR_CYCLE    = 0xc00
	CSR_TIME     = 0xc01
	CSR_INSTRET  = 0xc02
	CSR_CYCLEH   = 0xc80
	CSR_TIMEH    = 0xc81
	CSR_INSTRETH = 0xc82

	CSR_MVENDORID  = 0xf11
	CSR_MARCHID    = 0xf12
	CSR_MIMPID     = 0xf13
	CSR_MHARTID    = 0xf14
	CSR_MCONFIGPTR = 0xf15
)

// CsrNames maps assembler CSR names to CSR numbers.
var CsrNames = map[string]uint16{
	"mstatus":    CSR_MSTATUS,
	"misa":       CSR_MISA,
	"mie":        CSR_MIE,
	"mtvec":      CSR_MTVEC,
	"mstatush":   CSR_MSTATUSH,
	"mscratch":   CSR_MSCRATCH,
	"mepc":       CSR_MEPC,
	"mcause":     CSR_MCAUSE,
	"mtval":      CSR_MTVAL,
	"mip":        CSR_MIP,
	"mtimecmp":   CSR_MTIMECMP,
	"mtimecmph":  CSR_MTIMECMPH,
	"mcycle":     CSR_MCYCLE,
	"minstret":   CSR_MINSTRET,
	"mcycleh":    CSR_MCYCLEH,
	"minstreth":  CSR_MINSTRETH,
	"cycle":      CSR_CYCLE,
	"time":       CSR_TIME,
	"instret":    CSR_INSTRET,
	"cycleh":     CSR_CYCLEH,
	"timeh":      CSR_TIMEH,
	"instreth":   CSR_INSTRETH,
	"mvendorid":  CSR_MVENDORID,
	"marchid":    CSR_MARCHID,
	"mimpid":     CSR_MIMPID,
	"mhartid":    CSR_MHARTID,
	"mconfigptr": CSR_MCONFIGPTR,
}

// mstatus and mip fields.
const (
	MSTATUS_MIE      = uint32(1 << 3)
	MSTATUS_MPIE     = uint32(1 << 7)
	MSTATUS_MPP_MASK = uint32(0b11 << 11)
	MSTATUS_MPP_LSB  = 11

	MIP_MTIP = uint32(1 << 7)
)

// Read only identification values.
const (
	MVENDORID = uint32(0xff0ff0ff)

	// MISA reports MXL=1 (32-bit) and the A, I, M and X extensions.
	MISA = uint32(0b01<<30 | 1<<('X'-'A') | 1<<('M'-'A') | 1<<('I'-'A') | 1<<('A'-'A'))
)

// MTVEC_MODE_MASK selects the trap vector mode bits of mtvec.
const (
	MTVEC_MODE_MASK     = uint32(0b11)
	MTVEC_MODE_DIRECT   = uint32(0)
	MTVEC_MODE_VECTORED = uint32(1)
)

// Csr is the control and status register bank.
type Csr struct {
	Mstatus  uint32
	Mstatush uint32

	CycleL uint32
	CycleH uint32

	TimerL uint32 // Microseconds since reset, set by the host.
	TimerH uint32

	TimerMatchL uint32
	TimerMatchH uint32

	Mscratch uint32
	Mtvec    uint32
	Mie      uint32
	Mip      uint32
	Mepc     uint32
	Mtval    uint32
	Mcause   uint32
}

// tick advances the cycle counter.
func (csr *Csr) tick() {
	csr.CycleL++
	if csr.CycleL == 0 {
		csr.CycleH++
	}
}

// Cycles returns the 64-bit cycle counter.
func (csr *Csr) Cycles() uint64 {
	return uint64(csr.CycleH)<<32 | uint64(csr.CycleL)
}

// Timer returns the 64-bit timer.
func (csr *Csr) Timer() uint64 {
	return uint64(csr.TimerH)<<32 | uint64(csr.TimerL)
}

// SetTimer updates the timer, and the pending timer interrupt bit.
// Timer interrupts are flagged in mip, but never taken.
func (csr *Csr) SetTimer(value uint64) {
	csr.TimerL = uint32(value)
	csr.TimerH = uint32(value >> 32)
	csr.updateTimerPending()
}

func (csr *Csr) updateTimerPending() {
	match := uint64(csr.TimerMatchH)<<32 | uint64(csr.TimerMatchL)
	if match != 0 && csr.Timer() >= match {
		csr.Mip |= MIP_MTIP
	} else {
		csr.Mip &^= MIP_MTIP
	}
}

// field returns the storage of a writable CSR.
func (csr *Csr) field(index uint16) *uint32 {
	switch index {
	case CSR_MSTATUS:
		return &csr.Mstatus
	case CSR_MSTATUSH:
		return &csr.Mstatush
	case CSR_MIE:
		return &csr.Mie
	case CSR_MTVEC:
		return &csr.Mtvec
	case CSR_MSCRATCH:
		return &csr.Mscratch
	case CSR_MEPC:
		return &csr.Mepc
	case CSR_MCAUSE:
		return &csr.Mcause
	case CSR_MTVAL:
		return &csr.Mtval
	case CSR_MIP:
		return &csr.Mip
	case CSR_MTIMECMP:
		return &csr.TimerMatchL
	case CSR_MTIMECMPH:
		return &csr.TimerMatchH
	case CSR_MCYCLE, CSR_MINSTRET:
		return &csr.CycleL
	case CSR_MCYCLEH, CSR_MINSTRETH:
		return &csr.CycleH
	}

	return nil
}

// Get reads a CSR. ok is false for unknown CSR numbers.
func (csr *Csr) Get(index uint16) (value uint32, ok bool) {
	ptr := csr.field(index)
	if ptr != nil {
		return *ptr, true
	}

	ok = true
	switch index {
	case CSR_CYCLE, CSR_INSTRET:
		value = csr.CycleL
	case CSR_CYCLEH, CSR_INSTRETH:
		value = csr.CycleH
	case CSR_TIME:
		value = csr.TimerL
	case CSR_TIMEH:
		value = csr.TimerH
	case CSR_MISA:
		value = MISA
	case CSR_MVENDORID:
		value = MVENDORID
	case CSR_MARCHID, CSR_MIMPID, CSR_MHARTID, CSR_MCONFIGPTR:
		value = 0
	default:
		ok = false
	}

	return
}

// Set writes a CSR. ok is false for unknown CSR numbers, and writable is
// false for read only CSRs, which are left unchanged.
func (csr *Csr) Set(index uint16, value uint32) (writable bool, ok bool) {
	ptr := csr.field(index)
	if ptr == nil {
		_, ok = csr.Get(index)
		return
	}

	switch index {
	case CSR_MTVEC:
		// Reserved modes are not retained.
		if value&MTVEC_MODE_MASK > MTVEC_MODE_VECTORED {
			value &^= MTVEC_MODE_MASK
		}
	case CSR_MSTATUS:
		// The reserved privilege level is not retained.
		if (value&MSTATUS_MPP_MASK)>>MSTATUS_MPP_LSB == uint32(PRIVILEGE_RESERVED) {
			value |= MSTATUS_MPP_MASK
		}
	case CSR_MEPC:
		// Instructions are word aligned.
		value &^= 0b11
	case CSR_MIP:
		// The timer pending bit follows the timer.
		value = (value &^ MIP_MTIP) | (csr.Mip & MIP_MTIP)
	}

	*ptr = value

	switch index {
	case CSR_MTIMECMP, CSR_MTIMECMPH:
		csr.updateTimerPending()
	}

	return true, true
}
