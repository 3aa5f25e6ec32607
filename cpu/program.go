package cpu

import (
	"encoding/binary"
	"iter"
)

// LinkKind is the way a label reference is patched into an opcode.
type LinkKind int

const (
	LINK_BRANCH = LinkKind(0) // B-type pc relative offset.
	LINK_JUMP   = LinkKind(1) // J-type pc relative offset.
	LINK_PCREL  = LinkKind(2) // auipc + I-type pair, pc relative.
	LINK_WORD   = LinkKind(3) // 32-bit absolute data word.
)

// Link is an unresolved label reference.
type Link struct {
	Label string
	Kind  LinkKind
	Index int // Code index (or data word index) to patch.
}

// Opcode is the assembled output of a single source line.
type Opcode struct {
	LineNo int      // Source line number.
	Addr   uint32   // Address of the first byte.
	Words  []string // Source words.
	Codes  []Instr  // Instructions, or
	Data   []byte   // data.
	Links  []Link   // Label references.
}

// Size is the number of bytes the opcode occupies.
func (op *Opcode) Size() uint32 {
	return uint32(4*len(op.Codes) + len(op.Data))
}

// Bytes returns the little endian image of the opcode.
func (op *Opcode) Bytes() (data []byte) {
	if len(op.Codes) == 0 {
		return op.Data
	}

	data = make([]byte, 0, op.Size())
	for _, code := range op.Codes {
		data = binary.LittleEndian.AppendUint32(data, uint32(code))
	}
	return
}

// Program is an assembled program.
type Program struct {
	Origin  uint32            // Load address of the image.
	Entry   uint32            // Initial program counter.
	Labels  map[string]uint32 // Label addresses.
	Opcodes []Opcode
}

// Debug locates the source of an address.
type Debug struct {
	*Opcode
	Index int // Code index within the opcode.
}

// Debug finds the opcode that covers address.
func (prog *Program) Debug(addr uint32) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if addr >= op.Addr && addr < op.Addr+op.Size() {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr-op.Addr) / 4,
			}
			break
		}
	}

	return
}

// End is the address after the last byte of the program.
func (prog *Program) End() (end uint32) {
	end = prog.Origin
	for _, op := range prog.Opcodes {
		end = max(end, op.Addr+op.Size())
	}
	return
}

// Binary returns the image, from Origin to End. Gaps are zero filled.
func (prog *Program) Binary() (bin []byte) {
	bin = make([]byte, prog.End()-prog.Origin)
	for _, op := range prog.Opcodes {
		copy(bin[op.Addr-prog.Origin:], op.Bytes())
	}

	return
}

// Codes iterates over every instruction and its address.
func (prog *Program) Codes() iter.Seq2[uint32, Instr] {
	return func(yield func(addr uint32, code Instr) bool) {
		for _, op := range prog.Opcodes {
			for n, code := range op.Codes {
				if !yield(op.Addr+uint32(4*n), code) {
					return
				}
			}
		}
	}
}
