package cpu

// Operand encoders. Each returns ErrImmediateRange when a value does not
// fit its field.

func checkRange(value int32, min, max int32, align int32) (err error) {
	if value < min || value > max || value%align != 0 {
		err = &ErrImmediateRange{Value: int64(value), Min: int64(min), Max: int64(max)}
	}
	return
}

func field5(r uint8) Instr {
	return Instr(r & 0x1f)
}

// EncodeR encodes a register-register instruction.
func EncodeR(opcode, rd, funct3, rs1, rs2, funct7 uint8) Instr {
	return Instr(opcode&0x7f) |
		field5(rd)<<7 |
		Instr(funct3&0x7)<<12 |
		field5(rs1)<<15 |
		field5(rs2)<<20 |
		Instr(funct7&0x7f)<<25
}

// EncodeI encodes a register-immediate instruction.
func EncodeI(opcode, rd, funct3, rs1 uint8, imm int32) (i Instr, err error) {
	err = checkRange(imm, -2048, 2047, 1)
	if err != nil {
		return
	}

	i = Instr(opcode&0x7f) |
		field5(rd)<<7 |
		Instr(funct3&0x7)<<12 |
		field5(rs1)<<15 |
		Instr(uint32(imm)&0xfff)<<20
	return
}

// EncodeS encodes a store.
func EncodeS(opcode, funct3, rs1, rs2 uint8, imm int32) (i Instr, err error) {
	err = checkRange(imm, -2048, 2047, 1)
	if err != nil {
		return
	}

	u := uint32(imm)
	i = Instr(opcode&0x7f) |
		Instr(extract(u, 0, 5))<<7 |
		Instr(funct3&0x7)<<12 |
		field5(rs1)<<15 |
		field5(rs2)<<20 |
		Instr(extract(u, 5, 7))<<25
	return
}

// EncodeB encodes a conditional branch to a pc relative offset.
func EncodeB(opcode, funct3, rs1, rs2 uint8, offset int32) (i Instr, err error) {
	err = checkRange(offset, -4096, 4094, 2)
	if err != nil {
		return
	}

	u := uint32(offset)
	i = Instr(opcode&0x7f) |
		Instr(move(u, 11, 11, 7)) |
		Instr(move(u, 4, 1, 8)) |
		Instr(funct3&0x7)<<12 |
		field5(rs1)<<15 |
		field5(rs2)<<20 |
		Instr(move(u, 10, 5, 25)) |
		Instr(move(u, 12, 12, 31))
	return
}

// EncodeU encodes an upper immediate. The low 12 bits of imm are ignored.
func EncodeU(opcode, rd uint8, imm uint32) Instr {
	return Instr(opcode&0x7f) | field5(rd)<<7 | Instr(imm&^0xfff)
}

// EncodeJ encodes a jump to a pc relative offset.
func EncodeJ(opcode, rd uint8, offset int32) (i Instr, err error) {
	err = checkRange(offset, -(1 << 20), (1<<20)-2, 2)
	if err != nil {
		return
	}

	u := uint32(offset)
	i = Instr(opcode&0x7f) |
		field5(rd)<<7 |
		Instr(move(u, 19, 12, 12)) |
		Instr(move(u, 11, 11, 20)) |
		Instr(move(u, 10, 1, 21)) |
		Instr(move(u, 20, 20, 31))
	return
}

// EncodeCsr encodes a Zicsr instruction. For the immediate forms, src is
// the 5-bit unsigned immediate instead of rs1.
func EncodeCsr(funct3, rd uint8, csr uint16, src uint8) Instr {
	return Instr(OPCODE_SYSTEM) |
		field5(rd)<<7 |
		Instr(funct3&0x7)<<12 |
		field5(src)<<15 |
		Instr(csr&0xfff)<<20
}

// SplitImm splits a 32-bit value into the upper immediate and the sign
// extended low 12 bits, so that hi + lo == value.
func SplitImm(value uint32) (hi uint32, lo int32) {
	lo = int32(signExtend(value&0xfff, 12))
	hi = value - uint32(lo)
	return
}
