package gdb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/rvhart/emulator"
)

var _ Target = (*emulator.Emulator)(nil)

func TestServe_Emulator(t *testing.T) {
	assert := assert.New(t)

	emu := emulator.NewEmulator()
	err := emu.Assemble(strings.NewReader(strings.Join([]string{
		"  li a0, 5",
		"  addi a0, a0, 2",
		"  ebreak",
	}, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	out := session(t, emu, frame("s")+frame("s")+frame("m80000000,4")+frame("s"))
	assert.Equal("+"+frame("S05")+
		"+"+frame("S05")+
		"+"+frame("13055000")+
		"+"+frame("S05"), out)

	assert.Equal(uint32(7), emu.Reg(10))
	assert.Equal(uint32(0x8000_0008), emu.ProgramCounter())

	// Registers report a0 and the pc.
	out = session(t, emu, frame("g"))
	regs := strings.TrimSuffix(strings.TrimPrefix(out, "+$"), out[len(out)-3:])
	assert.Equal("07000000", regs[10*8:11*8])
	assert.Equal("08000080", regs[32*8:33*8])
}
