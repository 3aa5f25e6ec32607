package cpu

import (
	"math/bits"

	"github.com/ezrec/rvhart/trap"
)

// handler executes one decoded instruction. Control transfers set the
// program counter to the target less 4, as Execute always advances it.
type handler func(cpu *Cpu, instr Instr) error

// execTable is indexed by major opcode, then by Instr.Key().
var execTable [128]map[uint32]handler

func init() {
	handlers := map[string]handler{
		"lui":   (*Cpu).execLui,
		"auipc": (*Cpu).execAuipc,
		"jal":   (*Cpu).execJal,
		"jalr":  (*Cpu).execJalr,

		"beq":  branch(func(a, b uint32) bool { return a == b }),
		"bne":  branch(func(a, b uint32) bool { return a != b }),
		"blt":  branch(func(a, b uint32) bool { return int32(a) < int32(b) }),
		"bge":  branch(func(a, b uint32) bool { return int32(a) >= int32(b) }),
		"bltu": branch(func(a, b uint32) bool { return a < b }),
		"bgeu": branch(func(a, b uint32) bool { return a >= b }),

		"lb":  (*Cpu).execLb,
		"lh":  (*Cpu).execLh,
		"lw":  (*Cpu).execLw,
		"lbu": (*Cpu).execLbu,
		"lhu": (*Cpu).execLhu,
		"sb":  (*Cpu).execSb,
		"sh":  (*Cpu).execSh,
		"sw":  (*Cpu).execSw,

		"addi":  aluImm(aluAdd),
		"slti":  aluImm(aluSlt),
		"sltiu": aluImm(aluSltu),
		"xori":  aluImm(aluXor),
		"ori":   aluImm(aluOr),
		"andi":  aluImm(aluAnd),
		"slli":  aluImm(aluSll),
		"srli":  aluImm(aluSrl),
		"srai":  aluImm(aluSra),

		"add":  alu(aluAdd),
		"sub":  alu(aluSub),
		"sll":  alu(aluSll),
		"slt":  alu(aluSlt),
		"sltu": alu(aluSltu),
		"xor":  alu(aluXor),
		"srl":  alu(aluSrl),
		"sra":  alu(aluSra),
		"or":   alu(aluOr),
		"and":  alu(aluAnd),

		"mul":    alu(aluMul),
		"mulh":   alu(aluMulh),
		"mulhsu": alu(aluMulhsu),
		"mulhu":  alu(aluMulhu),
		"div":    alu(aluDiv),
		"divu":   alu(aluDivu),
		"rem":    alu(aluRem),
		"remu":   alu(aluRemu),

		"fence":   (*Cpu).execFence,
		"fence.i": (*Cpu).execFence,

		"ecall":  (*Cpu).execEcall,
		"ebreak": (*Cpu).execEbreak,
		"wfi":    (*Cpu).execWfi,
		"mret":   (*Cpu).mret,

		"csrrw":  csrOp(csrWrite, true, false),
		"csrrs":  csrOp(csrSet, false, false),
		"csrrc":  csrOp(csrClear, false, false),
		"csrrwi": csrOp(csrWrite, true, true),
		"csrrsi": csrOp(csrSet, false, true),
		"csrrci": csrOp(csrClear, false, true),

		"lr.w": (*Cpu).execLr,
		"sc.w": (*Cpu).execSc,
	}

	for n := range Instructions {
		in := &Instructions[n]
		exec, ok := handlers[in.Name]
		if !ok {
			// Decodes, but raises an illegal instruction trap.
			continue
		}
		if execTable[in.Opcode] == nil {
			execTable[in.Opcode] = map[uint32]handler{}
		}
		execTable[in.Opcode][in.Key()] = exec
	}
}

// lookup finds the handler for an instruction, or nil if it is illegal.
func lookup(instr Instr) handler {
	group := execTable[instr.Opcode()]
	if group == nil {
		return nil
	}

	if instr.Opcode() == OPCODE_SYSTEM && instr.Funct3() == 0 && (instr.Rd() != 0 || instr.Rs1() != 0) {
		return nil
	}

	return group[instr.Key()]
}

// jump transfers control to target.
func (cpu *Cpu) jump(target uint32) (err error) {
	if target&0b11 != 0 {
		err = trap.New(trap.INSTRUCTION_ADDRESS_MISALIGNED, target)
		return
	}

	cpu.Pc = target - 4
	return
}

func (cpu *Cpu) execLui(instr Instr) error {
	cpu.SetReg(instr.Rd(), instr.ImmU())
	return nil
}

func (cpu *Cpu) execAuipc(instr Instr) error {
	cpu.SetReg(instr.Rd(), cpu.Pc+instr.ImmU())
	return nil
}

func (cpu *Cpu) execJal(instr Instr) (err error) {
	link := cpu.Pc + 4
	err = cpu.jump(cpu.Pc + instr.ImmJ())
	if err != nil {
		return
	}
	cpu.SetReg(instr.Rd(), link)
	return
}

func (cpu *Cpu) execJalr(instr Instr) (err error) {
	link := cpu.Pc + 4
	err = cpu.jump((cpu.Reg(instr.Rs1()) + instr.ImmI()) &^ 1)
	if err != nil {
		return
	}
	cpu.SetReg(instr.Rd(), link)
	return
}

func branch(cond func(a, b uint32) bool) handler {
	return func(cpu *Cpu, instr Instr) (err error) {
		if cond(cpu.Reg(instr.Rs1()), cpu.Reg(instr.Rs2())) {
			err = cpu.jump(cpu.Pc + instr.ImmB())
		}
		return
	}
}

func (cpu *Cpu) loadAddress(instr Instr) uint32 {
	return cpu.Reg(instr.Rs1()) + instr.ImmI()
}

func (cpu *Cpu) storeAddress(instr Instr) uint32 {
	return cpu.Reg(instr.Rs1()) + instr.ImmS()
}

func (cpu *Cpu) execLb(instr Instr) (err error) {
	value, err := cpu.Mmu.LoadByte(cpu.loadAddress(instr))
	if err == nil {
		cpu.SetReg(instr.Rd(), uint32(int32(int8(value))))
	}
	return
}

func (cpu *Cpu) execLh(instr Instr) (err error) {
	value, err := cpu.Mmu.LoadHalf(cpu.loadAddress(instr))
	if err == nil {
		cpu.SetReg(instr.Rd(), uint32(int32(int16(value))))
	}
	return
}

func (cpu *Cpu) execLw(instr Instr) (err error) {
	value, err := cpu.Mmu.LoadWord(cpu.loadAddress(instr))
	if err == nil {
		cpu.SetReg(instr.Rd(), value)
	}
	return
}

func (cpu *Cpu) execLbu(instr Instr) (err error) {
	value, err := cpu.Mmu.LoadByte(cpu.loadAddress(instr))
	if err == nil {
		cpu.SetReg(instr.Rd(), uint32(value))
	}
	return
}

func (cpu *Cpu) execLhu(instr Instr) (err error) {
	value, err := cpu.Mmu.LoadHalf(cpu.loadAddress(instr))
	if err == nil {
		cpu.SetReg(instr.Rd(), uint32(value))
	}
	return
}

func (cpu *Cpu) execSb(instr Instr) error {
	return cpu.Mmu.StoreByte(cpu.storeAddress(instr), uint8(cpu.Reg(instr.Rs2())))
}

func (cpu *Cpu) execSh(instr Instr) error {
	return cpu.Mmu.StoreHalf(cpu.storeAddress(instr), uint16(cpu.Reg(instr.Rs2())))
}

func (cpu *Cpu) execSw(instr Instr) error {
	return cpu.Mmu.StoreWord(cpu.storeAddress(instr), cpu.Reg(instr.Rs2()))
}

// aluFunc is a two operand integer operation.
type aluFunc func(a, b uint32) uint32

func alu(op aluFunc) handler {
	return func(cpu *Cpu, instr Instr) error {
		cpu.SetReg(instr.Rd(), op(cpu.Reg(instr.Rs1()), cpu.Reg(instr.Rs2())))
		return nil
	}
}

func aluImm(op aluFunc) handler {
	return func(cpu *Cpu, instr Instr) error {
		cpu.SetReg(instr.Rd(), op(cpu.Reg(instr.Rs1()), instr.ImmI()))
		return nil
	}
}

func boolean(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func aluAdd(a, b uint32) uint32  { return a + b }
func aluSub(a, b uint32) uint32  { return a - b }
func aluXor(a, b uint32) uint32  { return a ^ b }
func aluOr(a, b uint32) uint32   { return a | b }
func aluAnd(a, b uint32) uint32  { return a & b }
func aluSll(a, b uint32) uint32  { return a << (b & 0x1f) }
func aluSrl(a, b uint32) uint32  { return a >> (b & 0x1f) }
func aluSra(a, b uint32) uint32  { return uint32(int32(a) >> (b & 0x1f)) }
func aluSlt(a, b uint32) uint32  { return boolean(int32(a) < int32(b)) }
func aluSltu(a, b uint32) uint32 { return boolean(a < b) }
func aluMul(a, b uint32) uint32  { return a * b }

func aluMulh(a, b uint32) uint32 {
	return uint32(uint64(int64(int32(a))*int64(int32(b))) >> 32)
}

func aluMulhsu(a, b uint32) uint32 {
	return uint32(uint64(int64(int32(a))*int64(b)) >> 32)
}

func aluMulhu(a, b uint32) uint32 {
	hi, _ := bits.Mul32(a, b)
	return hi
}

func aluDiv(a, b uint32) uint32 {
	switch {
	case b == 0:
		return ^uint32(0)
	case a == 0x8000_0000 && b == ^uint32(0):
		return a
	}
	return uint32(int32(a) / int32(b))
}

func aluDivu(a, b uint32) uint32 {
	if b == 0 {
		return ^uint32(0)
	}
	return a / b
}

func aluRem(a, b uint32) uint32 {
	switch {
	case b == 0:
		return a
	case a == 0x8000_0000 && b == ^uint32(0):
		return 0
	}
	return uint32(int32(a) % int32(b))
}

func aluRemu(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}

func (cpu *Cpu) execFence(instr Instr) error {
	return nil
}

func (cpu *Cpu) execEcall(instr Instr) error {
	cause := trap.ECALL_FROM_M_MODE
	switch cpu.Privilege {
	case PRIVILEGE_USER:
		cause = trap.ECALL_FROM_U_MODE
	case PRIVILEGE_SUPERVISOR:
		cause = trap.ECALL_FROM_S_MODE
	}
	return trap.New(cause, cpu.Pc)
}

func (cpu *Cpu) execEbreak(instr Instr) error {
	return trap.New(trap.BREAKPOINT, cpu.Pc)
}

func (cpu *Cpu) execWfi(instr Instr) error {
	cpu.Wfi = true
	return nil
}

// CSR read-modify-write operations.
type csrFunc func(old, src uint32) uint32

func csrWrite(old, src uint32) uint32 { return src }
func csrSet(old, src uint32) uint32   { return old | src }
func csrClear(old, src uint32) uint32 { return old &^ src }

// csrOp builds a Zicsr handler. The immediate forms take the 5-bit rs1
// field as the source value. Unless always is set, a zero source register
// or immediate does not write the CSR.
func csrOp(op csrFunc, always bool, immediate bool) handler {
	return func(cpu *Cpu, instr Instr) (err error) {
		src := uint32(instr.Rs1())
		if !immediate {
			src = cpu.Reg(instr.Rs1())
		}

		old, ok := cpu.Csr.Get(instr.Csr())
		if !ok {
			err = illegal(instr)
			return
		}

		if always || instr.Rs1() != 0 {
			writable, _ := cpu.Csr.Set(instr.Csr(), op(old, src))
			if !writable {
				err = illegal(instr)
				return
			}
		}

		cpu.SetReg(instr.Rd(), old)
		return
	}
}

func (cpu *Cpu) execLr(instr Instr) (err error) {
	address := cpu.Reg(instr.Rs1())
	if address&0b11 != 0 {
		err = trap.New(trap.LOAD_ADDRESS_MISALIGNED, address)
		return
	}

	value, err := cpu.Mmu.LoadWord(address)
	if err != nil {
		return
	}

	cpu.reserved = true
	cpu.reservation = address
	cpu.SetReg(instr.Rd(), value)
	return
}

func (cpu *Cpu) execSc(instr Instr) (err error) {
	address := cpu.Reg(instr.Rs1())
	if address&0b11 != 0 {
		err = trap.New(trap.STORE_ADDRESS_MISALIGNED, address)
		return
	}

	result := uint32(1)
	if cpu.reserved && cpu.reservation == address {
		err = cpu.Mmu.StoreWord(address, cpu.Reg(instr.Rs2()))
		if err != nil {
			return
		}
		result = 0
	}

	cpu.reserved = false
	cpu.SetReg(instr.Rd(), result)
	return
}
