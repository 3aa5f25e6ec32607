package cpu

import (
	"slices"
)

// Major opcodes, bits [6:0].
const (
	OPCODE_LOAD     = 0b000_0011
	OPCODE_MISC_MEM = 0b000_1111
	OPCODE_OP_IMM   = 0b001_0011
	OPCODE_AUIPC    = 0b001_0111
	OPCODE_STORE    = 0b010_0011
	OPCODE_AMO      = 0b010_1111
	OPCODE_OP       = 0b011_0011
	OPCODE_LUI      = 0b011_0111
	OPCODE_BRANCH   = 0b110_0011
	OPCODE_JALR     = 0b110_0111
	OPCODE_JAL      = 0b110_1111
	OPCODE_SYSTEM   = 0b111_0011
)

// funct7 values of the OP and OP-IMM opcodes.
const (
	FUNCT7_BASE   = 0b000_0000
	FUNCT7_MULDIV = 0b000_0001
	FUNCT7_ALT    = 0b010_0000 // SUB, SRA, SRAI
)

// SYSTEM funct12 values when funct3 is zero.
const (
	SYSTEM_ECALL  = 0x000
	SYSTEM_EBREAK = 0x001
	SYSTEM_SRET   = 0x102
	SYSTEM_WFI    = 0x105
	SYSTEM_MRET   = 0x302
)

// Format is the operand layout of an instruction.
type Format int

const (
	FORMAT_R      = Format(0)  // rd, rs1, rs2
	FORMAT_I      = Format(1)  // rd, rs1, imm
	FORMAT_SHIFT  = Format(2)  // rd, rs1, shamt
	FORMAT_LOAD   = Format(3)  // rd, imm(rs1)
	FORMAT_S      = Format(4)  // rs2, imm(rs1)
	FORMAT_B      = Format(5)  // rs1, rs2, offset
	FORMAT_U      = Format(6)  // rd, imm
	FORMAT_J      = Format(7)  // rd, offset
	FORMAT_JALR   = Format(8)  // rd, imm(rs1)
	FORMAT_CSR    = Format(9)  // rd, csr, rs1
	FORMAT_CSRI   = Format(10) // rd, csr, uimm
	FORMAT_FENCE  = Format(11) // fence
	FORMAT_SYSTEM = Format(12) // system
	FORMAT_LR     = Format(13) // rd, (rs1)
	FORMAT_AMO    = Format(14) // rd, rs2, (rs1)
)

// Insn describes one instruction encoding.
type Insn struct {
	Name    string
	Format  Format
	Opcode  uint8
	Funct3  uint8
	Funct7  uint8  // funct7 of R and shift forms, funct5 of AMO forms.
	Funct12 uint16 // SYSTEM function.
}

// Instructions is the RV32IMA instruction set, plus Zicsr and Zifencei.
var Instructions = []Insn{
	{Name: "lui", Format: FORMAT_U, Opcode: OPCODE_LUI},
	{Name: "auipc", Format: FORMAT_U, Opcode: OPCODE_AUIPC},
	{Name: "jal", Format: FORMAT_J, Opcode: OPCODE_JAL},
	{Name: "jalr", Format: FORMAT_JALR, Opcode: OPCODE_JALR},

	{Name: "beq", Format: FORMAT_B, Opcode: OPCODE_BRANCH, Funct3: 0},
	{Name: "bne", Format: FORMAT_B, Opcode: OPCODE_BRANCH, Funct3: 1},
	{Name: "blt", Format: FORMAT_B, Opcode: OPCODE_BRANCH, Funct3: 4},
	{Name: "bge", Format: FORMAT_B, Opcode: OPCODE_BRANCH, Funct3: 5},
	{Name: "bltu", Format: FORMAT_B, Opcode: OPCODE_BRANCH, Funct3: 6},
	{Name: "bgeu", Format: FORMAT_B, Opcode: OPCODE_BRANCH, Funct3: 7},

	{Name: "lb", Format: FORMAT_LOAD, Opcode: OPCODE_LOAD, Funct3: 0},
	{Name: "lh", Format: FORMAT_LOAD, Opcode: OPCODE_LOAD, Funct3: 1},
	{Name: "lw", Format: FORMAT_LOAD, Opcode: OPCODE_LOAD, Funct3: 2},
	{Name: "lbu", Format: FORMAT_LOAD, Opcode: OPCODE_LOAD, Funct3: 4},
	{Name: "lhu", Format: FORMAT_LOAD, Opcode: OPCODE_LOAD, Funct3: 5},

	{Name: "sb", Format: FORMAT_S, Opcode: OPCODE_STORE, Funct3: 0},
	{Name: "sh", Format: FORMAT_S, Opcode: OPCODE_STORE, Funct3: 1},
	{Name: "sw", Format: FORMAT_S, Opcode: OPCODE_STORE, Funct3: 2},

	{Name: "addi", Format: FORMAT_I, Opcode: OPCODE_OP_IMM, Funct3: 0},
	{Name: "slti", Format: FORMAT_I, Opcode: OPCODE_OP_IMM, Funct3: 2},
	{Name: "sltiu", Format: FORMAT_I, Opcode: OPCODE_OP_IMM, Funct3: 3},
	{Name: "xori", Format: FORMAT_I, Opcode: OPCODE_OP_IMM, Funct3: 4},
	{Name: "ori", Format: FORMAT_I, Opcode: OPCODE_OP_IMM, Funct3: 6},
	{Name: "andi", Format: FORMAT_I, Opcode: OPCODE_OP_IMM, Funct3: 7},
	{Name: "slli", Format: FORMAT_SHIFT, Opcode: OPCODE_OP_IMM, Funct3: 1, Funct7: FUNCT7_BASE},
	{Name: "srli", Format: FORMAT_SHIFT, Opcode: OPCODE_OP_IMM, Funct3: 5, Funct7: FUNCT7_BASE},
	{Name: "srai", Format: FORMAT_SHIFT, Opcode: OPCODE_OP_IMM, Funct3: 5, Funct7: FUNCT7_ALT},

	{Name: "add", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 0, Funct7: FUNCT7_BASE},
	{Name: "sub", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 0, Funct7: FUNCT7_ALT},
	{Name: "sll", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 1, Funct7: FUNCT7_BASE},
	{Name: "slt", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 2, Funct7: FUNCT7_BASE},
	{Name: "sltu", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 3, Funct7: FUNCT7_BASE},
	{Name: "xor", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 4, Funct7: FUNCT7_BASE},
	{Name: "srl", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 5, Funct7: FUNCT7_BASE},
	{Name: "sra", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 5, Funct7: FUNCT7_ALT},
	{Name: "or", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 6, Funct7: FUNCT7_BASE},
	{Name: "and", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 7, Funct7: FUNCT7_BASE},

	{Name: "mul", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 0, Funct7: FUNCT7_MULDIV},
	{Name: "mulh", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 1, Funct7: FUNCT7_MULDIV},
	{Name: "mulhsu", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 2, Funct7: FUNCT7_MULDIV},
	{Name: "mulhu", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 3, Funct7: FUNCT7_MULDIV},
	{Name: "div", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 4, Funct7: FUNCT7_MULDIV},
	{Name: "divu", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 5, Funct7: FUNCT7_MULDIV},
	{Name: "rem", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 6, Funct7: FUNCT7_MULDIV},
	{Name: "remu", Format: FORMAT_R, Opcode: OPCODE_OP, Funct3: 7, Funct7: FUNCT7_MULDIV},

	{Name: "fence", Format: FORMAT_FENCE, Opcode: OPCODE_MISC_MEM, Funct3: 0},
	{Name: "fence.i", Format: FORMAT_FENCE, Opcode: OPCODE_MISC_MEM, Funct3: 1},

	{Name: "ecall", Format: FORMAT_SYSTEM, Opcode: OPCODE_SYSTEM, Funct12: SYSTEM_ECALL},
	{Name: "ebreak", Format: FORMAT_SYSTEM, Opcode: OPCODE_SYSTEM, Funct12: SYSTEM_EBREAK},
	{Name: "sret", Format: FORMAT_SYSTEM, Opcode: OPCODE_SYSTEM, Funct12: SYSTEM_SRET},
	{Name: "wfi", Format: FORMAT_SYSTEM, Opcode: OPCODE_SYSTEM, Funct12: SYSTEM_WFI},
	{Name: "mret", Format: FORMAT_SYSTEM, Opcode: OPCODE_SYSTEM, Funct12: SYSTEM_MRET},

	{Name: "csrrw", Format: FORMAT_CSR, Opcode: OPCODE_SYSTEM, Funct3: 1},
	{Name: "csrrs", Format: FORMAT_CSR, Opcode: OPCODE_SYSTEM, Funct3: 2},
	{Name: "csrrc", Format: FORMAT_CSR, Opcode: OPCODE_SYSTEM, Funct3: 3},
	{Name: "csrrwi", Format: FORMAT_CSRI, Opcode: OPCODE_SYSTEM, Funct3: 5},
	{Name: "csrrsi", Format: FORMAT_CSRI, Opcode: OPCODE_SYSTEM, Funct3: 6},
	{Name: "csrrci", Format: FORMAT_CSRI, Opcode: OPCODE_SYSTEM, Funct3: 7},

	{Name: "lr.w", Format: FORMAT_LR, Opcode: OPCODE_AMO, Funct3: 2, Funct7: 0b00010},
	{Name: "sc.w", Format: FORMAT_AMO, Opcode: OPCODE_AMO, Funct3: 2, Funct7: 0b00011},
	{Name: "amoswap.w", Format: FORMAT_AMO, Opcode: OPCODE_AMO, Funct3: 2, Funct7: 0b00001},
	{Name: "amoadd.w", Format: FORMAT_AMO, Opcode: OPCODE_AMO, Funct3: 2, Funct7: 0b00000},
	{Name: "amoxor.w", Format: FORMAT_AMO, Opcode: OPCODE_AMO, Funct3: 2, Funct7: 0b00100},
	{Name: "amoand.w", Format: FORMAT_AMO, Opcode: OPCODE_AMO, Funct3: 2, Funct7: 0b01100},
	{Name: "amoor.w", Format: FORMAT_AMO, Opcode: OPCODE_AMO, Funct3: 2, Funct7: 0b01000},
	{Name: "amomin.w", Format: FORMAT_AMO, Opcode: OPCODE_AMO, Funct3: 2, Funct7: 0b10000},
	{Name: "amomax.w", Format: FORMAT_AMO, Opcode: OPCODE_AMO, Funct3: 2, Funct7: 0b10100},
	{Name: "amominu.w", Format: FORMAT_AMO, Opcode: OPCODE_AMO, Funct3: 2, Funct7: 0b11000},
	{Name: "amomaxu.w", Format: FORMAT_AMO, Opcode: OPCODE_AMO, Funct3: 2, Funct7: 0b11100},
}

// Key selects an encoding within its major opcode: the second level of
// instruction dispatch.
func (in *Insn) Key() uint32 {
	return insnKey(in.Opcode, in.Funct3, in.Funct7, in.Funct12)
}

func insnKey(opcode, funct3, funct7 uint8, funct12 uint16) (key uint32) {
	key = uint32(funct3)
	switch opcode {
	case OPCODE_LUI, OPCODE_AUIPC, OPCODE_JAL:
		key = 0
	case OPCODE_OP:
		key |= uint32(funct7) << 3
	case OPCODE_OP_IMM:
		if funct3 == 1 || funct3 == 5 {
			key |= uint32(funct7) << 3
		}
	case OPCODE_AMO:
		key |= uint32(funct7) << 3
	case OPCODE_SYSTEM:
		if funct3 == 0 {
			key |= uint32(funct12) << 3
		}
	}

	return
}

// Key is the second level dispatch key of an instruction word.
func (i Instr) Key() uint32 {
	funct7 := i.Funct7()
	if i.Opcode() == OPCODE_AMO {
		funct7 = i.Rs3()
	}
	return insnKey(i.Opcode(), i.Funct3(), funct7, i.Csr())
}

// Lookup finds an instruction description by mnemonic.
func Lookup(name string) (in *Insn, ok bool) {
	index := slices.IndexFunc(Instructions, func(in Insn) bool { return in.Name == name })
	if index < 0 {
		return
	}

	return &Instructions[index], true
}

// Decode finds the description of an instruction word. The SYSTEM
// privileged forms also require rd and rs1 to be zero.
func Decode(i Instr) (in *Insn, ok bool) {
	if i.Length() != 4 {
		return
	}

	if i.Opcode() == OPCODE_SYSTEM && i.Funct3() == 0 && (i.Rd() != 0 || i.Rs1() != 0) {
		return
	}

	key := i.Key()
	for n := range Instructions {
		in = &Instructions[n]
		if in.Opcode == i.Opcode() && in.Key() == key {
			return in, true
		}
	}

	return nil, false
}

// Encode builds the fixed fields of an instruction, with all operands zero.
func (in *Insn) Encode() (i Instr) {
	i = Instr(in.Opcode)
	switch in.Format {
	case FORMAT_U, FORMAT_J:
		return
	case FORMAT_SYSTEM:
		i |= Instr(in.Funct12) << 20
		return
	case FORMAT_R, FORMAT_SHIFT:
		i |= Instr(in.Funct7) << 25
	case FORMAT_LR, FORMAT_AMO:
		i |= Instr(in.Funct7) << 27
	}
	i |= Instr(in.Funct3) << 12

	return
}
