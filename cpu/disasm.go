package cpu

import (
	"fmt"
)

var csrByNumber = func() map[uint16]string {
	names := make(map[uint16]string, len(CsrNames))
	for name, index := range CsrNames {
		names[index] = name
	}
	return names
}()

func csrName(index uint16) string {
	name, ok := csrByNumber[index]
	if ok {
		return name
	}
	return fmt.Sprintf("0x%03x", index)
}

func relative(offset uint32) string {
	return fmt.Sprintf(".%+d", int32(offset))
}

// String disassembles the instruction. Words that do not decode are shown
// as a .word directive.
func (i Instr) String() string {
	in, ok := Decode(i)
	if !ok {
		if i.Length() == 2 {
			return fmt.Sprintf(".half 0x%04x", uint16(i))
		}
		return fmt.Sprintf(".word 0x%08x", uint32(i))
	}

	rd := RegisterNames[i.Rd()]
	rs1 := RegisterNames[i.Rs1()]
	rs2 := RegisterNames[i.Rs2()]

	switch in.Format {
	case FORMAT_R:
		return fmt.Sprintf("%v %v, %v, %v", in.Name, rd, rs1, rs2)
	case FORMAT_I:
		return fmt.Sprintf("%v %v, %v, %v", in.Name, rd, rs1, int32(i.ImmI()))
	case FORMAT_SHIFT:
		return fmt.Sprintf("%v %v, %v, %v", in.Name, rd, rs1, i.Shamt())
	case FORMAT_LOAD, FORMAT_JALR:
		return fmt.Sprintf("%v %v, %v(%v)", in.Name, rd, int32(i.ImmI()), rs1)
	case FORMAT_S:
		return fmt.Sprintf("%v %v, %v(%v)", in.Name, rs2, int32(i.ImmS()), rs1)
	case FORMAT_B:
		return fmt.Sprintf("%v %v, %v, %v", in.Name, rs1, rs2, relative(i.ImmB()))
	case FORMAT_U:
		return fmt.Sprintf("%v %v, 0x%x", in.Name, rd, i.ImmU()>>12)
	case FORMAT_J:
		return fmt.Sprintf("%v %v, %v", in.Name, rd, relative(i.ImmJ()))
	case FORMAT_CSR:
		return fmt.Sprintf("%v %v, %v, %v", in.Name, rd, csrName(i.Csr()), rs1)
	case FORMAT_CSRI:
		return fmt.Sprintf("%v %v, %v, %v", in.Name, rd, csrName(i.Csr()), i.Rs1())
	case FORMAT_LR:
		return fmt.Sprintf("%v %v, (%v)", in.Name, rd, rs1)
	case FORMAT_AMO:
		return fmt.Sprintf("%v %v, %v, (%v)", in.Name, rd, rs2, rs1)
	}

	return in.Name
}
