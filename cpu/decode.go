package cpu

// Instr is a 32-bit RISC-V instruction word.
type Instr uint32

// extract returns width bits of the word starting at bit lsb.
func extract(word uint32, lsb, width uint) uint32 {
	return (word >> lsb) & (^uint32(0) >> (32 - width))
}

// move relocates bits [hi:lo] of word to start at bit at.
func move(word uint32, hi, lo, at uint) uint32 {
	return extract(word, lo, hi-lo+1) << at
}

// signExtend extends the low size bits of value to 32 bits.
func signExtend(value uint32, size uint) uint32 {
	return uint32(int32(value<<(32-size)) >> (32 - size))
}

// Length is the encoded size of the instruction in bytes.
func (i Instr) Length() int {
	if i&0b11 != 0b11 {
		return 2
	}
	return 4
}

// Instruction fields, named as in the base ISA formats.

func (i Instr) Opcode() uint8 { return uint8(extract(uint32(i), 0, 7)) }
func (i Instr) Rd() uint8     { return uint8(extract(uint32(i), 7, 5)) }
func (i Instr) Funct3() uint8 { return uint8(extract(uint32(i), 12, 3)) }
func (i Instr) Rs1() uint8    { return uint8(extract(uint32(i), 15, 5)) }
func (i Instr) Rs2() uint8    { return uint8(extract(uint32(i), 20, 5)) }
func (i Instr) Funct7() uint8 { return uint8(extract(uint32(i), 25, 7)) }

// Rs3 is the AMO function selector, bits [31:27].
func (i Instr) Rs3() uint8 { return uint8(extract(uint32(i), 27, 5)) }

// Csr is the CSR number of a Zicsr instruction.
func (i Instr) Csr() uint16 { return uint16(extract(uint32(i), 20, 12)) }

// ImmI is the sign extended I-type immediate.
func (i Instr) ImmI() uint32 {
	return signExtend(extract(uint32(i), 20, 12), 12)
}

// ImmS is the sign extended S-type immediate.
func (i Instr) ImmS() uint32 {
	return signExtend(uint32(i.Funct7())<<5|uint32(i.Rd()), 12)
}

// ImmB is the sign extended B-type branch offset.
func (i Instr) ImmB() uint32 {
	w := uint32(i)
	imm := move(w, 11, 8, 1) |
		move(w, 30, 25, 5) |
		move(w, 7, 7, 11) |
		move(w, 31, 31, 12)
	return signExtend(imm, 13)
}

// ImmU is the U-type immediate, already shifted into place.
func (i Instr) ImmU() uint32 {
	return uint32(i) &^ 0xfff
}

// ImmJ is the sign extended J-type jump offset.
func (i Instr) ImmJ() uint32 {
	w := uint32(i)
	imm := move(w, 24, 21, 1) |
		move(w, 30, 25, 5) |
		move(w, 20, 20, 11) |
		move(w, 19, 12, 12) |
		move(w, 31, 31, 20)
	return signExtend(imm, 21)
}

// Shamt is the shift amount of an immediate shift.
func (i Instr) Shamt() uint32 {
	return uint32(i.Rs2())
}

// CInstr is a 16-bit compressed instruction. These are decoded, but the
// hart does not execute them.
type CInstr uint16

// Compressed instruction fields, named as in the RVC formats.

func (c CInstr) Op() uint8     { return uint8(c & 0b11) }
func (c CInstr) Funct2() uint8 { return uint8(extract(uint32(c), 10, 2)) }
func (c CInstr) Funct3() uint8 { return uint8(extract(uint32(c), 13, 3)) }
func (c CInstr) Funct4() uint8 { return uint8(extract(uint32(c), 12, 4)) }
func (c CInstr) Funct6() uint8 { return uint8(extract(uint32(c), 10, 6)) }

// Funct is the CA-format sub-function, bits [6:5].
func (c CInstr) Funct() uint8 { return uint8(extract(uint32(c), 5, 2)) }

// Full register fields of the CR and CI formats.

func (c CInstr) Rd() uint8  { return uint8(extract(uint32(c), 7, 5)) }
func (c CInstr) Rs2() uint8 { return uint8(extract(uint32(c), 2, 5)) }

// Rs1c is the 3-bit rs1'/rd' field, as an index into x8..x15.
func (c CInstr) Rs1c() uint8 { return uint8(extract(uint32(c), 7, 3)) + 8 }

// Rdc is the 3-bit rd'/rs2' field, as an index into x8..x15.
func (c CInstr) Rdc() uint8 { return uint8(extract(uint32(c), 2, 3)) + 8 }

// ImmCJ is the C.J / C.JAL offset.
func (c CInstr) ImmCJ() uint32 {
	w := uint32(c)
	imm := move(w, 5, 3, 1) |
		move(w, 11, 11, 4) |
		move(w, 2, 2, 5) |
		move(w, 7, 7, 6) |
		move(w, 6, 6, 7) |
		move(w, 10, 9, 8) |
		move(w, 8, 8, 10) |
		move(w, 12, 12, 11)
	return signExtend(imm, 12)
}

// ImmLwsp is the C.LWSP offset.
func (c CInstr) ImmLwsp() uint32 {
	w := uint32(c)
	return move(w, 6, 4, 2) | move(w, 12, 12, 5) | move(w, 3, 2, 6)
}

// ImmSwsp is the C.SWSP offset.
func (c CInstr) ImmSwsp() uint32 {
	w := uint32(c)
	return move(w, 12, 9, 2) | move(w, 8, 7, 6)
}

// ImmCL is the C.LW offset.
func (c CInstr) ImmCL() uint32 {
	w := uint32(c)
	return move(w, 6, 6, 2) | move(w, 12, 10, 3) | move(w, 5, 5, 6)
}

// ImmCS is the C.SW offset.
func (c CInstr) ImmCS() uint32 {
	return c.ImmCL()
}

// ImmCBShift is the C.SRLI / C.SRAI / C.SLLI shift amount.
func (c CInstr) ImmCBShift() uint32 {
	w := uint32(c)
	return move(w, 6, 2, 0) | move(w, 12, 12, 5)
}

// ImmCBAnd is the C.ANDI immediate.
func (c CInstr) ImmCBAnd() uint32 {
	return signExtend(c.ImmCBShift(), 6)
}

// ImmCB is the C.BEQZ / C.BNEZ offset.
func (c CInstr) ImmCB() uint32 {
	w := uint32(c)
	imm := move(w, 4, 3, 1) |
		move(w, 11, 10, 3) |
		move(w, 2, 2, 5) |
		move(w, 6, 5, 6) |
		move(w, 12, 12, 8)
	return signExtend(imm, 9)
}

// ImmAddi16sp is the C.ADDI16SP immediate.
func (c CInstr) ImmAddi16sp() uint32 {
	w := uint32(c)
	imm := move(w, 6, 6, 4) |
		move(w, 2, 2, 5) |
		move(w, 5, 5, 6) |
		move(w, 4, 3, 7) |
		move(w, 12, 12, 9)
	return signExtend(imm, 10)
}

// ImmCI is the C.LI / C.ADDI immediate.
func (c CInstr) ImmCI() uint32 {
	return c.ImmCBAnd()
}

// ImmCLui is the C.LUI immediate, already shifted into place.
func (c CInstr) ImmCLui() uint32 {
	w := uint32(c)
	return signExtend(move(w, 6, 2, 12)|move(w, 12, 12, 17), 18)
}

// ImmAddi4spn is the C.ADDI4SPN immediate.
func (c CInstr) ImmAddi4spn() uint32 {
	w := uint32(c)
	return move(w, 6, 6, 2) |
		move(w, 5, 5, 3) |
		move(w, 12, 11, 4) |
		move(w, 10, 7, 6)
}
