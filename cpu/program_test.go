package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testProgram() *Program {
	return &Program{
		Origin: 0x100,
		Entry:  0x100,
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0x100, Words: []string{"li", "a0", "0x12345678"},
				Codes: []Instr{0x1234_5537, 0x6785_0513}},
			{LineNo: 2, Addr: 0x108, Words: []string{"nop"},
				Codes: []Instr{0x0000_0013}},
			{LineNo: 4, Addr: 0x110, Words: []string{".byte", "1", "2"},
				Data: []byte{1, 2}},
		},
	}
}

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	dbg := prog.Debug(0x100)
	assert.NotNil(dbg.Opcode)
	assert.Equal(1, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(0x104)
	assert.NotNil(dbg.Opcode)
	assert.Equal(1, dbg.Opcode.LineNo)
	assert.Equal(1, dbg.Index)

	dbg = prog.Debug(0x108)
	assert.NotNil(dbg.Opcode)
	assert.Equal(2, dbg.Opcode.LineNo)

	dbg = prog.Debug(0x111)
	assert.NotNil(dbg.Opcode)
	assert.Equal(4, dbg.Opcode.LineNo)
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	assert.Nil(prog.Debug(0x10c).Opcode)
	assert.Nil(prog.Debug(0x112).Opcode)
	assert.Nil(prog.Debug(0).Opcode)
}

func TestProgram_Binary(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	assert.Equal(uint32(0x112), prog.End())
	assert.Equal([]byte{
		0x37, 0x55, 0x34, 0x12,
		0x13, 0x05, 0x85, 0x67,
		0x13, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x01, 0x02,
	}, prog.Binary())

	var addrs []uint32
	for addr, code := range prog.Codes() {
		addrs = append(addrs, addr)
		assert.Equal(4, code.Length())
	}
	assert.Equal([]uint32{0x100, 0x104, 0x108}, addrs)

	empty := &Program{Origin: 0x200}
	assert.Equal(uint32(0x200), empty.End())
	assert.Equal(0, len(empty.Binary()))
}
